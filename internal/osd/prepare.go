package osd

import (
	"context"
	"fmt"
	"slices"

	"osdctl/internal/defaults"
	"osdctl/internal/logging"
	"osdctl/internal/remote"
)

// PrepareRequest describes one disk to prepare or create on a host.
type PrepareRequest struct {
	Host          string
	Cluster       string
	Data          string
	Journal       string
	Zap           bool
	FSType        string
	Dmcrypt       bool
	DmcryptKeyDir string
	Store         StoreType
	BlockWAL      string
	BlockDB       string
	// Create runs `lvm create` (prepare and activate) instead of `lvm prepare`.
	Create bool
}

// Validate checks the request without contacting the host.
func (r PrepareRequest) Validate() error {
	if r.Data == "" {
		return MissingDiskError(r.Host)
	}
	switch r.Store {
	case Bluestore:
	case Filestore:
		if r.Journal == "" {
			return fmt.Errorf("%w: a journal lv or GPT partition must be specified when using filestore (%s:%s)", ErrConfig, r.Host, r.Data)
		}
	default:
		return fmt.Errorf("%w: unknown store type %v", ErrConfig, r.Store)
	}
	if r.FSType != "" && !slices.Contains(defaults.SupportedFSTypes, r.FSType) {
		return fmt.Errorf("%w: unsupported filesystem type %q (want one of %v)", ErrConfig, r.FSType, defaults.SupportedFSTypes)
	}
	return nil
}

// PrepareArgs builds the ceph-volume invocation for req using the executable
// at exe.
func PrepareArgs(exe string, req PrepareRequest) ([]string, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	log := logging.L().With("host", req.Host)

	subcommand := "prepare"
	if req.Create {
		subcommand = "create"
	}
	args := []string{
		exe,
		"--cluster", req.Cluster,
		"lvm",
		subcommand,
		"--" + req.Store.String(),
		"--data", req.Data,
	}

	if req.Dmcrypt {
		args = append(args, "--dmcrypt")
	}

	switch req.Store {
	case Bluestore:
		if req.BlockWAL != "" {
			args = append(args, "--block.wal", req.BlockWAL)
		}
		if req.BlockDB != "" {
			args = append(args, "--block.db", req.BlockDB)
		}
	case Filestore:
		if req.BlockWAL != "" || req.BlockDB != "" {
			log.Warn("block.wal and block.db are only used with bluestore, ignoring")
		}
		args = append(args, "--journal", req.Journal)
	}
	return args, nil
}

// PrepareDisk runs ceph-volume on the host for req.
func PrepareDisk(ctx context.Context, sess remote.Session, req PrepareRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	log := logging.L().With("host", sess.Host())

	if req.Zap {
		log.Warn("zapping is no longer supported when preparing")
	}
	if req.Dmcrypt {
		log.Warnw("dmcrypt keys are managed by ceph-volume", "ignoredKeyDir", req.DmcryptKeyDir)
	}

	exe, err := ResolveExecutable(ctx, sess, "ceph-volume")
	if err != nil {
		return err
	}
	args, err := PrepareArgs(exe, req)
	if err != nil {
		return err
	}

	log.Debugw("preparing disk", "data", req.Data, "journal", req.Journal, "store", req.Store.String())
	if err := sess.Run(ctx, args); err != nil {
		return fmt.Errorf("failed to prepare %s on %s: %w", req.Data, sess.Host(), err)
	}
	return nil
}

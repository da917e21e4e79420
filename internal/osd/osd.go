// Package osd builds and runs the per-host OSD provisioning steps and
// assembles the OSD inventory.
package osd

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"osdctl/internal/defaults"
	"osdctl/internal/remote"
)

var (
	// ErrConfig marks invalid input detected before any remote command runs.
	ErrConfig = errors.New("configuration error")

	// ErrMissingDisk is returned when a target names no data device.
	ErrMissingDisk = errors.New("must supply disk/path argument")
)

// MissingDiskError wraps ErrMissingDisk with the offending host.
func MissingDiskError(host string) error {
	return fmt.Errorf("%w: %s", ErrMissingDisk, host)
}

// StoreType selects the OSD object store backend.
type StoreType int

const (
	Bluestore StoreType = iota
	Filestore
)

func (s StoreType) String() string {
	switch s {
	case Bluestore:
		return "bluestore"
	case Filestore:
		return "filestore"
	default:
		return fmt.Sprintf("StoreType(%d)", int(s))
	}
}

// ParseStoreType accepts "bluestore" or "filestore". The empty string is
// bluestore.
func ParseStoreType(s string) (StoreType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "bluestore":
		return Bluestore, nil
	case "filestore":
		return Filestore, nil
	default:
		return Bluestore, fmt.Errorf("%w: unknown store type %q", ErrConfig, s)
	}
}

// TargetSpec is one HOST[:DATA[:JOURNAL]] argument.
type TargetSpec struct {
	Host    string
	Data    string
	Journal string
}

func (t TargetSpec) String() string {
	parts := []string{t.Host, t.Data, t.Journal}
	return strings.TrimRight(strings.Join(parts, ":"), ":")
}

// ParseTarget splits HOST[:DATA[:JOURNAL]]. Device paths may themselves
// contain colons (by-path names), so the journal is only split off at a
// ":/" boundary when the data part is an absolute path.
func ParseTarget(s string) (TargetSpec, error) {
	host, rest, _ := strings.Cut(s, ":")
	if host == "" {
		return TargetSpec{}, fmt.Errorf("%w: target %q has no host", ErrConfig, s)
	}
	t := TargetSpec{Host: host}
	if rest == "" {
		return t, nil
	}

	if i := strings.LastIndex(rest, ":/"); i > 0 {
		t.Data, t.Journal = rest[:i], rest[i+1:]
	} else if !strings.HasPrefix(rest, "/") && strings.Contains(rest, ":") {
		i := strings.LastIndex(rest, ":")
		t.Data, t.Journal = rest[:i], rest[i+1:]
	} else {
		t.Data = rest
	}
	return t, nil
}

// ResolveExecutable finds name on the host's standard binary paths.
func ResolveExecutable(ctx context.Context, sess remote.Session, name string) (string, error) {
	for _, dir := range defaults.ExecutablePaths {
		p := path.Join(dir, name)
		ok, err := sess.PathExists(ctx, p)
		if err != nil {
			return "", err
		}
		if ok {
			return p, nil
		}
	}
	return "", fmt.Errorf("could not find executable %s on %s", name, sess.Host())
}

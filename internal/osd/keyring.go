package osd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"osdctl/internal/defaults"
	"osdctl/internal/logging"
	"osdctl/internal/remote"
)

// BootstrapKeyPath is where a host expects the bootstrap-osd keyring.
func BootstrapKeyPath(cluster string) string {
	return path.Join(defaults.BootstrapOSDDir, cluster+".keyring")
}

// LoadBootstrapKey reads <dir>/<cluster>.bootstrap-osd.keyring, which the
// operator gathers from a monitor beforehand.
func LoadBootstrapKey(dir, cluster string) ([]byte, error) {
	p := filepath.Join(dir, cluster+".bootstrap-osd.keyring")
	key, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: bootstrap-osd keyring not found at %s; run 'gatherkeys'", ErrConfig, p)
		}
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}
	return key, nil
}

// EnsureBootstrapKey writes the bootstrap-osd keyring to the host unless it is
// already there. It reports whether a keyring was written.
func EnsureBootstrapKey(ctx context.Context, sess remote.Session, cluster string, key []byte) (bool, error) {
	p := BootstrapKeyPath(cluster)
	exists, err := sess.PathExists(ctx, p)
	if err != nil {
		return false, fmt.Errorf("failed to check %s on %s: %w", p, sess.Host(), err)
	}
	if exists {
		return false, nil
	}

	logging.L().With("host", sess.Host()).Warn("osd keyring does not exist yet, creating one")
	if err := sess.WriteKeyring(ctx, p, key); err != nil {
		return false, fmt.Errorf("failed to write %s on %s: %w", p, sess.Host(), err)
	}
	return true, nil
}

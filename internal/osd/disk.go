package osd

import (
	"context"
	"fmt"

	"osdctl/internal/logging"
	"osdctl/internal/remote"
)

// ZapDisk destroys the partition table on disk, including the backup GPT at
// the end of the device.
func ZapDisk(ctx context.Context, sess remote.Session, disk string) error {
	logging.L().Debugw("zapping disk", "host", sess.Host(), "disk", disk)

	if err := sess.ZeroDevice(ctx, disk); err != nil {
		return fmt.Errorf("failed to zero %s on %s: %w", disk, sess.Host(), err)
	}

	exe, err := ResolveExecutable(ctx, sess, "ceph-disk")
	if err != nil {
		return err
	}
	if err := sess.Run(ctx, []string{exe, "zap", disk}); err != nil {
		return fmt.Errorf("failed to zap %s on %s: %w", disk, sess.Host(), err)
	}
	return nil
}

// ListDisks runs ceph-disk list, streaming its output to the log.
func ListDisks(ctx context.Context, sess remote.Session) error {
	logging.L().Debugw("listing disks", "host", sess.Host())

	exe, err := ResolveExecutable(ctx, sess, "ceph-disk")
	if err != nil {
		return err
	}
	if err := sess.Run(ctx, []string{exe, "list"}); err != nil {
		return fmt.Errorf("failed to list disks on %s: %w", sess.Host(), err)
	}
	return nil
}

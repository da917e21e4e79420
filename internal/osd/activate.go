package osd

import (
	"context"
	"fmt"

	"osdctl/internal/hostinfo"
	"osdctl/internal/logging"
	"osdctl/internal/remote"
)

// ActivateArgs builds the ceph-disk activate invocation.
func ActivateArgs(exe string, init hostinfo.InitSystem, disk string) []string {
	return []string{exe, "-v", "activate", "--mark-init", init.String(), "--mount", disk}
}

// ActivateDisk mounts and starts a previously prepared OSD.
func ActivateDisk(ctx context.Context, sess remote.Session, init hostinfo.InitSystem, disk string) error {
	logging.L().Debugw("activating disk", "host", sess.Host(), "disk", disk, "init", init.String())

	exe, err := ResolveExecutable(ctx, sess, "ceph-disk")
	if err != nil {
		return err
	}
	if err := sess.Run(ctx, ActivateArgs(exe, init, disk)); err != nil {
		return fmt.Errorf("failed to activate %s on %s: %w", disk, sess.Host(), err)
	}
	return nil
}

// EnableService makes the ceph services start at boot. Upstart jobs are
// already enabled by ceph-disk.
func EnableService(ctx context.Context, sess remote.Session, init hostinfo.InitSystem) error {
	var argv []string
	switch init {
	case hostinfo.Systemd:
		argv = []string{"systemctl", "enable", "ceph.target"}
	case hostinfo.SysVinit:
		argv = []string{"chkconfig", "ceph", "on"}
	case hostinfo.Upstart:
		return nil
	default:
		return fmt.Errorf("unknown init system %v on %s", init, sess.Host())
	}

	exe, err := ResolveExecutable(ctx, sess, argv[0])
	if err != nil {
		return err
	}
	argv[0] = exe
	if err := sess.Run(ctx, argv); err != nil {
		return fmt.Errorf("failed to enable ceph services on %s: %w", sess.Host(), err)
	}
	return nil
}

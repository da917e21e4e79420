package deployer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"osdctl/internal/logging"
	"osdctl/internal/osd"
)

// requireDisks rejects the whole batch when any target lacks a host or disk.
func requireDisks(op string, targets []osd.TargetSpec) error {
	for _, t := range targets {
		if t.Host == "" || t.Data == "" {
			return fmt.Errorf("%w: %s command needs both HOSTNAME and DISK but got %q", osd.ErrConfig, op, t.Host+" "+t.Data)
		}
	}
	return nil
}

// Activate activates a previously prepared disk per target.
func (d *Deployer) Activate(ctx context.Context, targets []osd.TargetSpec) (*Report, error) {
	run := NewRun()
	log := logging.L().With("component", "deployer", "operation", "activate", "runID", run.ID)
	report := &Report{Operation: "activate", Noun: "OSD", RunID: run.ID}

	if err := requireDisks("activate", targets); err != nil {
		return report, err
	}

	for _, t := range targets {
		warnings, err := d.activateHost(ctx, log.With("host", t.Host), t)
		record(log, report, t, err, warnings)

		if ctx.Err() != nil {
			return report, ctx.Err()
		}
	}
	return report, report.Err()
}

func (d *Deployer) activateHost(ctx context.Context, log *zap.SugaredLogger, t osd.TargetSpec) ([]string, error) {
	sess, info, err := d.connect(ctx, log, t.Host)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	log.Debugw("activating disk", "disk", t.Data, "init", info.Init.String())
	if err := osd.ActivateDisk(ctx, sess, info.Init, t.Data); err != nil {
		return nil, err
	}

	if err := d.settle(ctx); err != nil {
		return nil, err
	}
	warnings, err := d.checkHealth(ctx, sess)
	if err != nil {
		return warnings, err
	}

	if err := osd.EnableService(ctx, sess, info.Init); err != nil {
		return warnings, err
	}
	log.Infow(logging.FormatNodeMessage("✓", t.Host, info.Init.String(), "activated "+t.Data))
	return warnings, nil
}

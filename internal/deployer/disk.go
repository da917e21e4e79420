package deployer

import (
	"context"

	"osdctl/internal/logging"
	"osdctl/internal/osd"
)

// Zap wipes the partition table of one disk per target. Every target must
// name both host and disk, or nothing is touched.
func (d *Deployer) Zap(ctx context.Context, targets []osd.TargetSpec) (*Report, error) {
	run := NewRun()
	log := logging.L().With("component", "deployer", "operation", "zap", "runID", run.ID)
	report := &Report{Operation: "zap", Noun: "disk", RunID: run.ID}

	if err := requireDisks("zap", targets); err != nil {
		return report, err
	}

	for _, t := range targets {
		hostLog := log.With("host", t.Host)
		err := func() error {
			sess, _, err := d.connect(ctx, hostLog, t.Host)
			if err != nil {
				return err
			}
			defer sess.Close()

			hostLog.Infow(logging.FormatNodeMessage("→", t.Host, "", "zapping "+t.Data))
			return osd.ZapDisk(ctx, sess, t.Data)
		}()
		record(log, report, t, err, nil)

		if ctx.Err() != nil {
			return report, ctx.Err()
		}
	}
	return report, report.Err()
}

// DiskList runs the disk listing on each distinct host.
func (d *Deployer) DiskList(ctx context.Context, targets []osd.TargetSpec) (*Report, error) {
	run := NewRun()
	log := logging.L().With("component", "deployer", "operation", "list", "runID", run.ID)
	report := &Report{Operation: "list disks on", Noun: "host", RunID: run.ID}

	for _, t := range uniqueHosts(targets) {
		hostLog := log.With("host", t.Host)
		err := func() error {
			sess, _, err := d.connect(ctx, hostLog, t.Host)
			if err != nil {
				return err
			}
			defer sess.Close()

			hostLog.Debugw("listing disks")
			return osd.ListDisks(ctx, sess)
		}()
		record(log, report, t, err, nil)

		if ctx.Err() != nil {
			return report, ctx.Err()
		}
	}
	return report, report.Err()
}

package deployer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"osdctl/internal/cephconf"
	"osdctl/internal/logging"
	"osdctl/internal/osd"
)

// Prepare prepares (or, with tmpl.Create, creates) one OSD per target. tmpl
// carries the options shared by every target; host, data and journal come
// from each target.
//
// The bootstrap key and cluster config are loaded before any host is
// contacted and their absence aborts the batch. After that a failing target
// is recorded and the batch moves on; the returned error is a *BatchError
// when any target failed.
func (d *Deployer) Prepare(ctx context.Context, targets []osd.TargetSpec, tmpl osd.PrepareRequest) (*Report, error) {
	op := "prepare"
	if tmpl.Create {
		op = "create"
	}
	run := NewRun()
	log := logging.L().With("component", "deployer", "operation", op, "runID", run.ID)
	report := &Report{Operation: op, Noun: "OSD", RunID: run.ID}

	log.Debugw("preparing cluster", "cluster", d.opts.Cluster, "targets", len(targets))

	key, err := osd.LoadBootstrapKey(d.opts.WorkDir, d.opts.Cluster)
	if err != nil {
		return report, err
	}
	conf, err := cephconf.Load(d.opts.WorkDir, d.opts.Cluster)
	if err != nil {
		return report, fmt.Errorf("%w: %w", osd.ErrConfig, err)
	}

	for _, t := range targets {
		req := tmpl
		req.Host, req.Data, req.Journal = t.Host, t.Data, t.Journal
		req.Cluster = d.opts.Cluster

		warnings, err := d.prepareHost(ctx, log.With("host", t.Host), run, conf, key, req)
		record(log, report, t, err, warnings)

		if ctx.Err() != nil {
			return report, ctx.Err()
		}
	}
	return report, report.Err()
}

func (d *Deployer) prepareHost(ctx context.Context, log *zap.SugaredLogger, run *Run, conf *cephconf.Conf, key []byte, req osd.PrepareRequest) ([]string, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sess, _, err := d.connect(ctx, log, req.Host)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	err = run.Configure(req.Host, func() error {
		log.Debugw("deploying osd config and keyring", "fsid", conf.FSID())
		if err := sess.WriteConf(ctx, d.opts.Cluster, conf.Raw, d.opts.OverwriteConf); err != nil {
			return err
		}
		_, err := osd.EnsureBootstrapKey(ctx, sess, d.opts.Cluster, key)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Infow(logging.FormatNodeMessage("→", req.Host, "", "preparing "+req.Data))
	if err := osd.PrepareDisk(ctx, sess, req); err != nil {
		return nil, err
	}

	if err := d.settle(ctx); err != nil {
		return nil, err
	}
	warnings, err := d.checkHealth(ctx, sess)
	if err != nil {
		return warnings, err
	}

	log.Infow(logging.FormatNodeMessage("✓", req.Host, "", "host is now ready for osd use"))
	return warnings, nil
}

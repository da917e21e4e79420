package deployer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"osdctl/internal/cephconf"
	"osdctl/internal/logging"
	"osdctl/internal/osd"
)

// List builds the OSD inventory of each distinct host. The topology comes
// from monitor, or from the first mon_initial_members entry of the local
// cluster config when monitor is empty. An unreachable monitor only costs the
// cluster-side fields of each record.
func (d *Deployer) List(ctx context.Context, monitor string, targets []osd.TargetSpec) ([]osd.Record, *Report, error) {
	run := NewRun()
	log := logging.L().With("component", "deployer", "operation", "list", "runID", run.ID)
	report := &Report{Operation: "list OSDs on", Noun: "host", RunID: run.ID}

	if monitor == "" {
		m, err := d.defaultMonitor()
		if err != nil {
			return nil, report, err
		}
		monitor = m
	}

	tree := d.fetchTree(ctx, log.With("host", monitor), monitor)

	var records []osd.Record
	for _, t := range uniqueHosts(targets) {
		hostRecords, err := d.hostRecords(ctx, t.Host, tree)
		records = append(records, hostRecords...)
		record(log, report, t, err, nil)

		if ctx.Err() != nil {
			return records, report, ctx.Err()
		}
	}
	return records, report, report.Err()
}

func (d *Deployer) defaultMonitor() (string, error) {
	conf, err := cephconf.Load(d.opts.WorkDir, d.opts.Cluster)
	if err != nil {
		return "", fmt.Errorf("%w: %w", osd.ErrConfig, err)
	}
	members := conf.MonInitialMembers()
	if len(members) == 0 {
		return "", fmt.Errorf("%w: no mon_initial_members in %s; pass a monitor host with --mon", osd.ErrConfig, conf.Path)
	}
	return members[0], nil
}

func (d *Deployer) fetchTree(ctx context.Context, log *zap.SugaredLogger, monitor string) *osd.Tree {
	sess, err := d.dialer.Dial(ctx, monitor)
	if err != nil {
		log.Warnw("could not reach monitor, cluster status will be missing", "error", err)
		return &osd.Tree{}
	}
	defer sess.Close()

	tree, err := osd.FetchTree(ctx, sess, d.opts.Cluster)
	if err != nil {
		log.Warnw("could not fetch osd tree, cluster status will be missing", "error", err)
		return &osd.Tree{}
	}
	return tree
}

func (d *Deployer) hostRecords(ctx context.Context, host string, tree *osd.Tree) ([]osd.Record, error) {
	sess, err := d.dialer.Dial(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", host, err)
	}
	defer sess.Close()

	return d.opts.Inventory.HostRecords(ctx, sess, tree)
}

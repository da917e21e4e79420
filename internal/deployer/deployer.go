package deployer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"go.uber.org/zap"

	"osdctl/internal/hostinfo"
	"osdctl/internal/logging"
	"osdctl/internal/osd"
	"osdctl/internal/remote"
)

// Options configures a Deployer.
type Options struct {
	Cluster        string
	WorkDir        string // holds <cluster>.conf and <cluster>.bootstrap-osd.keyring
	OverwriteConf  bool
	SettleInterval time.Duration
	StatusTimeout  time.Duration

	// Clock drives the settle wait. Defaults to the wall clock.
	Clock clock.Clock
	// Inventory correlates OSDs for List. Defaults to osd.NewInventory().
	Inventory *osd.Inventory
}

// Deployer sequences the per-host OSD operations over a batch of targets.
// Hosts are processed one at a time in the order given.
type Deployer struct {
	dialer remote.Dialer
	opts   Options
}

// New returns a Deployer that reaches hosts through dialer.
func New(dialer remote.Dialer, opts Options) *Deployer {
	if opts.Clock == nil {
		opts.Clock = clock.WallClock
	}
	if opts.Inventory == nil {
		opts.Inventory = osd.NewInventory()
	}
	return &Deployer{dialer: dialer, opts: opts}
}

// Run is the state owned by one batch.
type Run struct {
	ID string
	// configured holds the outcome of the config push per host. A host that
	// is present was attempted; a nil value means it succeeded.
	configured map[string]error
}

// NewRun starts a batch.
func NewRun() *Run {
	return &Run{ID: uuid.NewString(), configured: map[string]error{}}
}

// Configure runs push the first time host is seen in this run and returns its
// result on every later call, so a host whose config or keyring could not be
// deployed never gets a disk prepared.
func (r *Run) Configure(host string, push func() error) error {
	if err, seen := r.configured[host]; seen {
		return err
	}
	err := push()
	r.configured[host] = err
	return err
}

// connect dials host and logs its distro.
func (d *Deployer) connect(ctx context.Context, log *zap.SugaredLogger, host string) (remote.Session, *hostinfo.Info, error) {
	sess, err := d.dialer.Dial(ctx, host)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to %s: %w", host, err)
	}

	info, err := hostinfo.Detect(ctx, sess)
	if err != nil {
		sess.Close()
		return nil, nil, err
	}
	log.Infof("Distro info: %s %s %s", info.Name, info.Release, info.Codename)
	return sess, info, nil
}

// settle gives a freshly started OSD time to come up before its status is
// checked.
func (d *Deployer) settle(ctx context.Context) error {
	if d.opts.SettleInterval <= 0 {
		return nil
	}
	select {
	case <-d.opts.Clock.After(d.opts.SettleInterval):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// checkHealth runs the advisory status check.
func (d *Deployer) checkHealth(ctx context.Context, sess remote.Session) ([]string, error) {
	return osd.CheckHealth(ctx, sess, d.opts.Cluster, d.opts.StatusTimeout)
}

// record adds the outcome to the report and logs failures.
func record(log *zap.SugaredLogger, report *Report, target osd.TargetSpec, err error, warnings []string) {
	report.Add(target, err, warnings)
	if err != nil {
		log.Errorw(logging.FormatNodeMessage("✗", target.Host, "", err.Error()), "kind", Classify(err).String())
	}
}

func uniqueHosts(targets []osd.TargetSpec) []osd.TargetSpec {
	seen := map[string]bool{}
	var out []osd.TargetSpec
	for _, t := range targets {
		if seen[t.Host] {
			continue
		}
		seen[t.Host] = true
		out = append(out, osd.TargetSpec{Host: t.Host})
	}
	return out
}

package deployer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"osdctl/internal/osd"
	"osdctl/internal/remote"
)

// FailureKind classifies why a target failed.
type FailureKind int

const (
	// NoFailure means the target succeeded.
	NoFailure FailureKind = iota
	// ConfigFailure is invalid input caught before or instead of remote work.
	ConfigFailure
	// HostFailure is a remote command or connection failure on the host.
	HostFailure
	// TransportFailure is a timeout or cancellation talking to the host.
	TransportFailure
)

func (k FailureKind) String() string {
	switch k {
	case NoFailure:
		return "ok"
	case ConfigFailure:
		return "config"
	case HostFailure:
		return "host"
	case TransportFailure:
		return "transport"
	default:
		return fmt.Sprintf("FailureKind(%d)", int(k))
	}
}

// Classify maps an error to its FailureKind.
func Classify(err error) FailureKind {
	switch {
	case err == nil:
		return NoFailure
	case errors.Is(err, osd.ErrConfig), errors.Is(err, osd.ErrMissingDisk):
		return ConfigFailure
	case errors.Is(err, remote.ErrTimeout), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return TransportFailure
	default:
		return HostFailure
	}
}

// HostResult is the outcome for one target.
type HostResult struct {
	Target   osd.TargetSpec
	Kind     FailureKind
	Err      error
	Warnings []string
}

// Failed reports whether the target failed.
func (r HostResult) Failed() bool {
	return r.Err != nil
}

// Report collects the per-target results of one batch.
type Report struct {
	// Operation is the verb used in the batch error, e.g. "create".
	Operation string
	// Noun names what each target is, e.g. "OSD".
	Noun    string
	RunID   string
	Results []HostResult
}

// Add records the outcome for target.
func (r *Report) Add(target osd.TargetSpec, err error, warnings []string) {
	r.Results = append(r.Results, HostResult{Target: target, Kind: Classify(err), Err: err, Warnings: warnings})
}

// Failed returns the number of failed targets.
func (r *Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Failed() {
			n++
		}
	}
	return n
}

// Err returns a *BatchError when any target failed.
func (r *Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Failed() {
			errs = append(errs, res.Err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return &BatchError{Op: r.Operation, Noun: r.Noun, Failed: len(errs), Err: multierr.Combine(errs...)}
}

// BatchError is returned after a batch in which at least one target failed.
type BatchError struct {
	Op     string
	Noun   string
	Failed int
	// Err combines the individual target errors.
	Err error
}

func (e *BatchError) Error() string {
	noun := e.Noun
	if e.Failed != 1 {
		noun += "s"
	}
	return fmt.Sprintf("failed to %s %d %s", e.Op, e.Failed, noun)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

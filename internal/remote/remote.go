// Package remote defines the boundary between the provisioning engine and the
// transport that reaches target hosts.
package remote

//go:generate go run go.uber.org/mock/mockgen -package mocks -destination mocks/remote_mock.go osdctl/internal/remote Session,Dialer

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrTimeout is returned when the transport gives up waiting on a remote
// command before it produced a result.
var ErrTimeout = errors.New("remote command timed out")

// Result is the captured outcome of a remote command.
type Result struct {
	Stdout   []string
	Stderr   []string
	ExitCode int
}

// ExitError reports a remote command that ran to completion with a non-zero
// exit status.
type ExitError struct {
	Host     string
	Command  string
	ExitCode int
	Stderr   []string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("command returned non-zero exit status %d on %s: %s", e.ExitCode, e.Host, e.Command)
	if len(e.Stderr) > 0 {
		msg += " (stderr: " + strings.Join(e.Stderr, "; ") + ")"
	}
	return msg
}

// Session is an open connection to one host.
//
// Run and Check spawn processes on the host. The remaining methods are
// host-side helpers that operate on the remote filesystem directly.
type Session interface {
	// Host returns the host name the session was opened for.
	Host() string

	// Run executes argv, streaming its output to the log. A non-zero exit
	// status is returned as *ExitError.
	Run(ctx context.Context, argv []string) error

	// Check executes argv and captures its output. A non-zero exit status
	// is reported in Result.ExitCode, not as an error. A transport timeout
	// returns an error wrapping ErrTimeout.
	Check(ctx context.Context, argv []string) (*Result, error)

	PathExists(ctx context.Context, path string) (bool, error)
	ReadLine(ctx context.Context, path string) (string, error)
	Realpath(ctx context.Context, path string) (string, error)
	ListDir(ctx context.Context, path string) ([]string, error)

	// WriteKeyring writes key to path, creating the parent directory.
	WriteKeyring(ctx context.Context, path string, key []byte) error

	// ZeroDevice overwrites the tail of a block device so stale partition
	// table backups are gone.
	ZeroDevice(ctx context.Context, path string) error

	// WriteConf installs /etc/ceph/<cluster>.conf. An existing file with
	// different contents is only replaced when overwrite is set.
	WriteConf(ctx context.Context, cluster string, contents []byte, overwrite bool) error

	Close() error
}

// Dialer opens sessions to hosts.
type Dialer interface {
	Dial(ctx context.Context, host string) (Session, error)
}

package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/pkg/sftp"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"

	"osdctl/internal/defaults"
	"osdctl/internal/logging"
	"osdctl/internal/remote"
)

// Client wraps an SSH client connection for remote command execution and
// implements remote.Session.
type Client struct {
	client     *ssh.Client
	host       string
	username   string
	sftpServer string
	log        *zap.SugaredLogger

	mu          sync.Mutex
	sftp        *sftp.Client
	sftpSession *ssh.Session
}

var _ remote.Session = (*Client)(nil)

// killWait bounds how long a cancelled command may take to release its
// output writers after SIGKILL.
const killWait = 5 * time.Second

// AuthConfig contains SSH authentication configuration.
type AuthConfig struct {
	Address        string // dial address when it differs from the host name
	Username       string
	Password       string
	PrivateKeyPEM  []byte
	PrivateKeyPath string
	Port           int // SSH port (default: 22)
	ConnectTimeout time.Duration
	SFTPServer     string // sftp-server binary started under sudo for non-root users; found on the host when empty
}

// NewClient creates a new SSH client connection to the specified host using the provided authentication.
func NewClient(ctx context.Context, host string, auth AuthConfig) (*Client, error) {
	var authMethods []ssh.AuthMethod

	// Try private key authentication first
	if len(auth.PrivateKeyPEM) > 0 {
		signer, err := ssh.ParsePrivateKey(auth.PrivateKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		authMethods = append(authMethods, ssh.PublicKeys(signer))
	} else if auth.PrivateKeyPath != "" {
		keyData, err := os.ReadFile(auth.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key from %s: %w", auth.PrivateKeyPath, err)
		}
		signer, err := ssh.ParsePrivateKey(keyData)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key from %s: %w", auth.PrivateKeyPath, err)
		}
		authMethods = append(authMethods, ssh.PublicKeys(signer))
	}

	if auth.Password != "" {
		authMethods = append(authMethods, ssh.Password(auth.Password))
	}

	if len(authMethods) == 0 {
		return nil, fmt.Errorf("no authentication method provided for %s (need password or private key)", host)
	}

	username := auth.Username
	if username == "" {
		username = defaults.SSHUsername
	}
	timeout := auth.ConnectTimeout
	if timeout <= 0 {
		timeout = defaults.SSHConnectTimeout
	}

	config := &ssh.ClientConfig{
		User:            username,
		Auth:            authMethods,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // TODO: verify against known_hosts once hosts.<name>.host_key is configurable
		Timeout:         timeout,
	}

	addr := host
	if auth.Address != "" {
		addr = auth.Address
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		port := defaults.SSHPort
		if auth.Port > 0 {
			port = auth.Port
		}
		addr = net.JoinHostPort(addr, fmt.Sprintf("%d", port))
	}

	dialer := &net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to establish ssh connection to %s: %w", addr, err)
	}

	return &Client{
		client:     ssh.NewClient(sshConn, chans, reqs),
		host:       host,
		username:   username,
		sftpServer: auth.SFTPServer,
		log:        logging.L().With("host", host),
	}, nil
}

// Host returns the hostname of the SSH connection.
func (c *Client) Host() string {
	return c.host
}

// Run executes argv, logging each output line as it arrives.
func (c *Client) Run(ctx context.Context, argv []string) error {
	command := commandLine(c.username, argv)
	c.log.Info(logging.FormatNodeMessage("→", c.host, "", "running command: "+command))

	var stderr capture
	stdout := &lineWriter{emit: func(line string) {
		c.log.Info(logging.FormatNodeMessage("", c.host, "", line))
	}}
	stderrLog := &lineWriter{emit: func(line string) {
		stderr.add(line)
		c.log.Warn(logging.FormatNodeMessage("", c.host, "", line))
	}}

	code, err := c.exec(ctx, command, stdout, stderrLog)
	stdout.flush()
	stderrLog.flush()
	if err != nil {
		return err
	}
	if code != 0 {
		return &remote.ExitError{Host: c.host, Command: command, ExitCode: code, Stderr: stderr.lines}
	}
	return nil
}

// Check executes argv and returns its captured output and exit status.
func (c *Client) Check(ctx context.Context, argv []string) (*remote.Result, error) {
	command := commandLine(c.username, argv)
	c.log.Debugw("checking command", "command", command)

	var stdoutBuf, stderrBuf bytes.Buffer
	code, err := c.exec(ctx, command, &stdoutBuf, &stderrBuf)
	if err != nil {
		return nil, err
	}
	return &remote.Result{
		Stdout:   splitLines(stdoutBuf.String()),
		Stderr:   splitLines(stderrBuf.String()),
		ExitCode: code,
	}, nil
}

// exec runs command in a fresh session. A remote non-zero exit is returned as
// the exit code with a nil error.
func (c *Client) exec(ctx context.Context, command string, stdout, stderr io.Writer) (int, error) {
	session, err := c.client.NewSession()
	if err != nil {
		return -1, fmt.Errorf("failed to create session on %s: %w", c.host, err)
	}
	defer session.Close()

	session.Stdout = stdout
	session.Stderr = stderr

	errChan := make(chan error, 1)
	go func() {
		errChan <- session.Run(command)
	}()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		_ = session.Close()
		if !awaitExit(errChan, killWait) {
			c.log.Warnw("command did not exit after SIGKILL", "command", command)
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return -1, fmt.Errorf("%w: %s on %s", remote.ErrTimeout, command, c.host)
		}
		return -1, ctx.Err()
	case err := <-errChan:
		if err == nil {
			return 0, nil
		}
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitStatus(), nil
		}
		return -1, fmt.Errorf("failed to run %q on %s: %w", command, c.host, err)
	}
}

// awaitExit waits up to d for session.Run to return. Run only returns once
// the stdout and stderr copiers are done with their writers.
func awaitExit(done <-chan error, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

// Close closes the SFTP subsystem, if one was opened, and the SSH connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sftp != nil {
		_ = c.sftp.Close()
		c.sftp = nil
	}
	if c.sftpSession != nil {
		_ = c.sftpSession.Close()
		c.sftpSession = nil
	}
	return c.client.Close()
}

// commandLine renders argv as a single shell command, prefixed with sudo for
// non-root users.
func commandLine(username string, argv []string) string {
	if username != "" && username != "root" {
		argv = append([]string{"sudo"}, argv...)
	}
	return shellquote.Join(argv...)
}

func splitLines(s string) []string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, "\r")
	}
	return lines
}

// lineWriter calls emit once per complete line written to it. It is safe
// for the copier goroutine and the caller to use at once.
type lineWriter struct {
	mu   sync.Mutex
	buf  bytes.Buffer
	emit func(string)
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// Partial line; keep it for the next write.
			w.buf.Reset()
			w.buf.WriteString(line)
			return len(p), nil
		}
		w.emit(strings.TrimRight(line, "\r\n"))
	}
}

func (w *lineWriter) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.buf.Len() > 0 {
		w.emit(strings.TrimRight(w.buf.String(), "\r\n"))
		w.buf.Reset()
	}
}

type capture struct {
	lines []string
}

func (c *capture) add(line string) {
	c.lines = append(c.lines, line)
}

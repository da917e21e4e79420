package ssh

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/pkg/sftp"

	"osdctl/internal/defaults"
)

// gptBackupSize is the span at the end of a disk holding the backup GPT
// header and partition entries (33 sectors of 4096 bytes).
const gptBackupSize = 33 * 4096

// sftpClient returns the session's SFTP client, opening it on first use.
// Non-root users get an sftp-server started through sudo so the helpers can
// reach root-owned paths.
func (c *Client) sftpClient() (*sftp.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sftp != nil {
		return c.sftp, nil
	}

	if c.username == "" || c.username == "root" {
		sc, err := sftp.NewClient(c.client)
		if err != nil {
			return nil, fmt.Errorf("failed to open sftp on %s: %w", c.host, err)
		}
		c.sftp = sc
		return sc, nil
	}

	server, err := pickSFTPServer(c.sftpServer, defaults.SFTPServerPaths, c.executable)
	if err != nil {
		return nil, fmt.Errorf("%w on %s; set ssh.sftp_server", err, c.host)
	}
	c.sftpServer = server

	session, err := c.client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create sftp session on %s: %w", c.host, err)
	}
	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to open sftp stdin on %s: %w", c.host, err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to open sftp stdout on %s: %w", c.host, err)
	}
	if err := session.Start(commandLine(c.username, []string{c.sftpServer})); err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to start %s on %s: %w", c.sftpServer, c.host, err)
	}
	sc, err := sftp.NewClientPipe(stdout, stdin)
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to open sftp on %s: %w", c.host, err)
	}
	c.sftp = sc
	c.sftpSession = session
	return sc, nil
}

// pickSFTPServer returns configured if set, otherwise the first candidate
// that is executable.
func pickSFTPServer(configured string, candidates []string, executable func(string) (bool, error)) (string, error) {
	if configured != "" {
		return configured, nil
	}
	for _, p := range candidates {
		ok, err := executable(p)
		if err != nil {
			return "", err
		}
		if ok {
			return p, nil
		}
	}
	return "", fmt.Errorf("could not find sftp-server in %s", strings.Join(candidates, ", "))
}

// executable reports whether p is an executable file on the host.
func (c *Client) executable(p string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaults.SSHConnectTimeout)
	defer cancel()

	code, err := c.exec(ctx, shellquote.Join("test", "-x", p), io.Discard, io.Discard)
	if err != nil {
		return false, err
	}
	return code == 0, nil
}

// PathExists reports whether path exists on the host.
func (c *Client) PathExists(ctx context.Context, p string) (bool, error) {
	sc, err := c.sftpClient()
	if err != nil {
		return false, err
	}
	if _, err := sc.Stat(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %s on %s: %w", p, c.host, err)
	}
	return true, nil
}

// ReadLine returns the first line of the file at path without its line ending.
func (c *Client) ReadLine(ctx context.Context, p string) (string, error) {
	sc, err := c.sftpClient()
	if err != nil {
		return "", err
	}
	f, err := sc.Open(p)
	if err != nil {
		return "", fmt.Errorf("failed to open %s on %s: %w", p, c.host, err)
	}
	defer f.Close()

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read %s on %s: %w", p, c.host, err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Realpath resolves symlinks in path on the host.
func (c *Client) Realpath(ctx context.Context, p string) (string, error) {
	sc, err := c.sftpClient()
	if err != nil {
		return "", err
	}
	resolved, err := sc.RealPath(p)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s on %s: %w", p, c.host, err)
	}
	return resolved, nil
}

// ListDir returns the entry names of a directory. A missing directory yields
// an error wrapping fs.ErrNotExist.
func (c *Client) ListDir(ctx context.Context, p string) ([]string, error) {
	sc, err := c.sftpClient()
	if err != nil {
		return nil, err
	}
	entries, err := sc.ReadDir(p)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s on %s: %w", p, c.host, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

// WriteKeyring writes key to path with mode 0600, creating the parent
// directory if needed.
func (c *Client) WriteKeyring(ctx context.Context, p string, key []byte) error {
	return c.writeFile(p, key, 0o600)
}

// WriteConf installs /etc/ceph/<cluster>.conf.
func (c *Client) WriteConf(ctx context.Context, cluster string, contents []byte, overwrite bool) error {
	sc, err := c.sftpClient()
	if err != nil {
		return err
	}
	p := path.Join(defaults.ConfDir, cluster+".conf")

	f, err := sc.Open(p)
	switch {
	case err == nil:
		existing, readErr := io.ReadAll(f)
		f.Close()
		if readErr != nil {
			return fmt.Errorf("failed to read %s on %s: %w", p, c.host, readErr)
		}
		if bytes.Equal(existing, contents) {
			return nil
		}
		if !overwrite {
			return fmt.Errorf("config file %s exists with different content; use --overwrite-conf to overwrite", p)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("failed to open %s on %s: %w", p, c.host, err)
	}

	return c.writeFile(p, contents, 0o644)
}

// ZeroDevice zeroes the last gptBackupSize bytes of a block device.
func (c *Client) ZeroDevice(ctx context.Context, p string) error {
	sc, err := c.sftpClient()
	if err != nil {
		return err
	}

	size, err := c.deviceSize(ctx, sc, p)
	if err != nil {
		return err
	}

	f, err := sc.OpenFile(p, os.O_WRONLY)
	if err != nil {
		return fmt.Errorf("failed to open %s on %s: %w", p, c.host, err)
	}
	defer f.Close()

	n := int64(gptBackupSize)
	if size < n {
		n = size
	}
	if _, err := f.WriteAt(make([]byte, n), size-n); err != nil {
		return fmt.Errorf("failed to zero %s on %s: %w", p, c.host, err)
	}
	return nil
}

// deviceSize returns the byte size of p. Block devices stat as zero over
// SFTP, so those fall back to blockdev.
func (c *Client) deviceSize(ctx context.Context, sc *sftp.Client, p string) (int64, error) {
	info, err := sc.Stat(p)
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s on %s: %w", p, c.host, err)
	}
	if info.Size() > 0 {
		return info.Size(), nil
	}

	res, err := c.Check(ctx, []string{"blockdev", "--getsize64", p})
	if err != nil {
		return 0, err
	}
	if res.ExitCode != 0 || len(res.Stdout) == 0 {
		return 0, fmt.Errorf("failed to determine size of %s on %s: %s", p, c.host, strings.Join(res.Stderr, "; "))
	}
	size, err := strconv.ParseInt(strings.TrimSpace(res.Stdout[0]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse size of %s on %s: %w", p, c.host, err)
	}
	return size, nil
}

// writeFile writes data to a temporary sibling and renames it over p.
func (c *Client) writeFile(p string, data []byte, mode os.FileMode) error {
	sc, err := c.sftpClient()
	if err != nil {
		return err
	}
	if err := sc.MkdirAll(path.Dir(p)); err != nil {
		return fmt.Errorf("failed to create %s on %s: %w", path.Dir(p), c.host, err)
	}

	tmp := p + ".tmp"
	f, err := sc.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return fmt.Errorf("failed to create %s on %s: %w", tmp, c.host, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s on %s: %w", tmp, c.host, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s on %s: %w", tmp, c.host, err)
	}
	if err := sc.Chmod(tmp, mode); err != nil {
		return fmt.Errorf("failed to chmod %s on %s: %w", tmp, c.host, err)
	}
	if err := sc.PosixRename(tmp, p); err != nil {
		return fmt.Errorf("failed to install %s on %s: %w", p, c.host, err)
	}
	return nil
}

package ssh

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCommandLine(t *testing.T) {
	tests := []struct {
		name     string
		username string
		argv     []string
		want     string
	}{
		{
			name:     "root runs directly",
			username: "root",
			argv:     []string{"ceph-disk", "-v", "activate", "--mount", "/dev/sdb1"},
			want:     "ceph-disk -v activate --mount /dev/sdb1",
		},
		{
			name:     "other users go through sudo",
			username: "deploy",
			argv:     []string{"systemctl", "enable", "ceph.target"},
			want:     "sudo systemctl enable ceph.target",
		},
		{
			name:     "arguments are quoted",
			username: "root",
			argv:     []string{"ls", "/var/lib/ceph/osd dir"},
			want:     `ls '/var/lib/ceph/osd dir'`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, commandLine(tt.username, tt.argv))
		})
	}
}

func TestSplitLines(t *testing.T) {
	assert.Nil(t, splitLines(""))
	assert.Nil(t, splitLines("\n"))
	assert.Equal(t, []string{"a", "b"}, splitLines("a\r\nb\n"))
	assert.Equal(t, []string{"a", "", "c"}, splitLines("a\n\nc"))
}

func TestLineWriter(t *testing.T) {
	var got []string
	w := &lineWriter{emit: func(s string) { got = append(got, s) }}

	_, _ = w.Write([]byte("first\nsec"))
	_, _ = w.Write([]byte("ond\r\nthi"))
	assert.Equal(t, []string{"first", "second"}, got)

	w.flush()
	assert.Equal(t, []string{"first", "second", "thi"}, got)
}

func TestDialerAuthFor(t *testing.T) {
	d := &Dialer{
		Defaults: AuthConfig{Username: "root", Port: 22, PrivateKeyPath: "/root/.ssh/id_ed25519"},
		Overrides: map[string]AuthConfig{
			"node2": {Address: "10.0.0.2", Port: 2222, Password: "secret"},
		},
	}

	assert.Equal(t, d.Defaults, d.authFor("node1"))

	got := d.authFor("node2")
	assert.Equal(t, "10.0.0.2", got.Address)
	assert.Equal(t, "root", got.Username)
	assert.Equal(t, 2222, got.Port)
	assert.Equal(t, "secret", got.Password)
	assert.Empty(t, got.PrivateKeyPath)

	assert.Equal(t, "10.0.0.2", d.authFor("NODE2").Address)
}

func TestLineWriterConcurrentFlush(t *testing.T) {
	var mu sync.Mutex
	count := 0
	w := &lineWriter{emit: func(string) {
		mu.Lock()
		count++
		mu.Unlock()
	}}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			_, _ = fmt.Fprintf(w, "line %d\n", i)
		}
	}()
	for i := 0; i < 100; i++ {
		w.flush()
	}
	wg.Wait()
	w.flush()

	assert.Equal(t, 100, count)
}

func TestAwaitExit(t *testing.T) {
	done := make(chan error, 1)
	assert.False(t, awaitExit(done, 10*time.Millisecond))

	done <- nil
	assert.True(t, awaitExit(done, time.Second))
}

func TestPickSFTPServer(t *testing.T) {
	candidates := []string{"/usr/lib/openssh/sftp-server", "/usr/libexec/openssh/sftp-server"}
	rhel := func(p string) (bool, error) { return p == "/usr/libexec/openssh/sftp-server", nil }

	got, err := pickSFTPServer("", candidates, rhel)
	assert.NoError(t, err)
	assert.Equal(t, "/usr/libexec/openssh/sftp-server", got)

	got, err = pickSFTPServer("/opt/sftp-server", candidates, rhel)
	assert.NoError(t, err)
	assert.Equal(t, "/opt/sftp-server", got)

	_, err = pickSFTPServer("", candidates, func(string) (bool, error) { return false, nil })
	assert.ErrorContains(t, err, "could not find sftp-server")

	_, err = pickSFTPServer("", candidates, func(string) (bool, error) { return false, fmt.Errorf("session closed") })
	assert.EqualError(t, err, "session closed")
}

// Package remotetest provides an in-memory remote.Session for tests.
package remotetest

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"osdctl/internal/remote"
)

// Session is a scripted remote.Session backed by maps. Commands are matched
// on their space-joined argv.
type Session struct {
	HostName string

	// Files maps absolute paths to contents.
	Files map[string]string
	// Links maps symlink paths to their resolved targets.
	Links map[string]string
	// Dirs lists directories that exist even when empty.
	Dirs map[string]bool

	// Responses scripts Check and Run results per command.
	Responses map[string]*remote.Result
	// Errors scripts transport errors per command.
	Errors map[string]error

	mu       sync.Mutex
	Commands []string
	Written  map[string][]byte
	WriteLog []string
	Zeroed   []string
	Closed   bool
}

var _ remote.Session = (*Session)(nil)

// NewSession returns a session for host with the usual ceph tools installed
// under /usr/bin and /usr/sbin.
func NewSession(host string) *Session {
	s := &Session{
		HostName:  host,
		Files:     map[string]string{},
		Links:     map[string]string{},
		Dirs:      map[string]bool{},
		Responses: map[string]*remote.Result{},
		Errors:    map[string]error{},
		Written:   map[string][]byte{},
	}
	for _, exe := range []string{"ceph", "ceph-disk", "ceph-volume", "systemctl", "chkconfig", "cat", "blockdev"} {
		s.Files["/usr/bin/"+exe] = ""
	}
	s.Files["/usr/sbin/ceph-disk"] = ""
	return s
}

// Respond scripts the result of argv.
func (s *Session) Respond(argv []string, stdout []string, exitCode int) {
	s.Responses[strings.Join(argv, " ")] = &remote.Result{Stdout: stdout, ExitCode: exitCode}
}

// Fail scripts a transport error for argv.
func (s *Session) Fail(argv []string, err error) {
	s.Errors[strings.Join(argv, " ")] = err
}

// Ran reports whether argv was executed.
func (s *Session) Ran(argv []string) bool {
	want := strings.Join(argv, " ")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.Commands {
		if c == want {
			return true
		}
	}
	return false
}

func (s *Session) Host() string { return s.HostName }

func (s *Session) Run(ctx context.Context, argv []string) error {
	res, err := s.Check(ctx, argv)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return &remote.ExitError{Host: s.HostName, Command: strings.Join(argv, " "), ExitCode: res.ExitCode, Stderr: res.Stderr}
	}
	return nil
}

func (s *Session) Check(ctx context.Context, argv []string) (*remote.Result, error) {
	cmd := strings.Join(argv, " ")
	s.mu.Lock()
	s.Commands = append(s.Commands, cmd)
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := s.Errors[cmd]; ok {
		return nil, err
	}
	if res, ok := s.Responses[cmd]; ok {
		return res, nil
	}
	if len(argv) == 2 && argv[0] == "cat" {
		s.mu.Lock()
		content, ok := s.Files[argv[1]]
		s.mu.Unlock()
		if !ok {
			return &remote.Result{Stderr: []string{"cat: " + argv[1] + ": No such file or directory"}, ExitCode: 1}, nil
		}
		return &remote.Result{Stdout: strings.Split(strings.TrimRight(content, "\n"), "\n")}, nil
	}
	return &remote.Result{}, nil
}

func (s *Session) PathExists(ctx context.Context, p string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.Files[p]; ok {
		return true, nil
	}
	if _, ok := s.Links[p]; ok {
		return true, nil
	}
	if s.Dirs[p] {
		return true, nil
	}
	prefix := strings.TrimSuffix(p, "/") + "/"
	for f := range s.Files {
		if strings.HasPrefix(f, prefix) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Session) ReadLine(ctx context.Context, p string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.Files[p]
	if !ok {
		return "", fmt.Errorf("open %s: %w", p, fs.ErrNotExist)
	}
	line, _, _ := strings.Cut(content, "\n")
	return strings.TrimRight(line, "\r"), nil
}

func (s *Session) Realpath(ctx context.Context, p string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if target, ok := s.Links[p]; ok {
		return target, nil
	}
	return p, nil
}

func (s *Session) ListDir(ctx context.Context, p string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := strings.TrimSuffix(p, "/") + "/"
	seen := map[string]bool{}
	found := s.Dirs[p]
	collect := func(name string) {
		if !strings.HasPrefix(name, prefix) {
			return
		}
		found = true
		rest := strings.TrimPrefix(name, prefix)
		if first, _, _ := strings.Cut(rest, "/"); first != "" {
			seen[first] = true
		}
	}
	for f := range s.Files {
		collect(f)
	}
	for l := range s.Links {
		collect(l)
	}
	for d := range s.Dirs {
		collect(d)
	}
	if !found {
		return nil, fmt.Errorf("open %s: %w", p, fs.ErrNotExist)
	}

	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Session) WriteKeyring(ctx context.Context, p string, key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Written[p] = key
	s.WriteLog = append(s.WriteLog, p)
	s.Files[p] = string(key)
	return nil
}

func (s *Session) ZeroDevice(ctx context.Context, p string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Zeroed = append(s.Zeroed, p)
	return nil
}

func (s *Session) WriteConf(ctx context.Context, cluster string, contents []byte, overwrite bool) error {
	p := path.Join("/etc/ceph", cluster+".conf")
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.Files[p]; ok && existing != string(contents) && !overwrite {
		return fmt.Errorf("config file %s exists with different content; use --overwrite-conf to overwrite", p)
	}
	s.Written[p] = contents
	s.WriteLog = append(s.WriteLog, p)
	s.Files[p] = string(contents)
	return nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
	return nil
}

// Dialer hands out pre-built sessions by host name.
type Dialer struct {
	Sessions map[string]*Session
	// Errors scripts dial failures per host.
	Errors map[string]error

	mu     sync.Mutex
	Dialed []string
}

var _ remote.Dialer = (*Dialer)(nil)

// NewDialer returns a dialer serving the given sessions.
func NewDialer(sessions ...*Session) *Dialer {
	d := &Dialer{Sessions: map[string]*Session{}, Errors: map[string]error{}}
	for _, s := range sessions {
		d.Sessions[s.HostName] = s
	}
	return d
}

func (d *Dialer) Dial(ctx context.Context, host string) (remote.Session, error) {
	d.mu.Lock()
	d.Dialed = append(d.Dialed, host)
	d.mu.Unlock()

	if err, ok := d.Errors[host]; ok {
		return nil, err
	}
	s, ok := d.Sessions[host]
	if !ok {
		return nil, fmt.Errorf("failed to dial %s: no route to host", host)
	}
	return s, nil
}

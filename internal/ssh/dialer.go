package ssh

import (
	"context"
	"strings"

	"osdctl/internal/remote"
)

// Dialer opens SSH sessions using shared credentials with optional per-host
// overrides. Override keys are lower-case host names.
type Dialer struct {
	Defaults  AuthConfig
	Overrides map[string]AuthConfig
}

var _ remote.Dialer = (*Dialer)(nil)

// Dial connects to host.
func (d *Dialer) Dial(ctx context.Context, host string) (remote.Session, error) {
	c, err := NewClient(ctx, host, d.authFor(host))
	if err != nil {
		return nil, err
	}
	return c, nil
}

// authFor merges the host override onto the defaults. Only set fields of the
// override win.
func (d *Dialer) authFor(host string) AuthConfig {
	auth := d.Defaults
	o, ok := d.Overrides[strings.ToLower(host)]
	if !ok {
		return auth
	}
	if o.Address != "" {
		auth.Address = o.Address
	}
	if o.Username != "" {
		auth.Username = o.Username
	}
	if o.Port > 0 {
		auth.Port = o.Port
	}
	if o.Password != "" || len(o.PrivateKeyPEM) > 0 || o.PrivateKeyPath != "" {
		auth.Password = o.Password
		auth.PrivateKeyPEM = o.PrivateKeyPEM
		auth.PrivateKeyPath = o.PrivateKeyPath
	}
	if o.ConnectTimeout > 0 {
		auth.ConnectTimeout = o.ConnectTimeout
	}
	if o.SFTPServer != "" {
		auth.SFTPServer = o.SFTPServer
	}
	return auth
}

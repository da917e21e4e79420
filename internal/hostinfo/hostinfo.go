// Package hostinfo identifies a host's distribution and init system.
package hostinfo

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/ini.v1"

	"osdctl/internal/defaults"
	"osdctl/internal/remote"
)

// InitSystem is the service manager running on a host.
type InitSystem int

const (
	Systemd InitSystem = iota
	SysVinit
	Upstart
)

func (i InitSystem) String() string {
	switch i {
	case Systemd:
		return "systemd"
	case SysVinit:
		return "sysvinit"
	case Upstart:
		return "upstart"
	default:
		return fmt.Sprintf("InitSystem(%d)", int(i))
	}
}

// Info describes a host.
type Info struct {
	Name     string
	Release  string
	Codename string
	Init     InitSystem
}

// Detect reads /etc/os-release and probes for the init system.
func Detect(ctx context.Context, sess remote.Session) (*Info, error) {
	res, err := sess.Check(ctx, []string{"cat", defaults.OSRelease})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s on %s: %w", defaults.OSRelease, sess.Host(), err)
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("failed to read %s on %s: %s", defaults.OSRelease, sess.Host(), strings.Join(res.Stderr, "; "))
	}

	info, err := ParseOSRelease(strings.Join(res.Stdout, "\n"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s on %s: %w", defaults.OSRelease, sess.Host(), err)
	}

	initSys, err := detectInit(ctx, sess)
	if err != nil {
		return nil, err
	}
	info.Init = initSys
	return info, nil
}

// ParseOSRelease extracts name, release and codename from os-release content.
func ParseOSRelease(content string) (*Info, error) {
	f, err := ini.LoadSources(ini.LoadOptions{SkipUnrecognizableLines: true}, []byte(content))
	if err != nil {
		return nil, err
	}
	sec := f.Section(ini.DefaultSection)
	return &Info{
		Name:     sec.Key("NAME").String(),
		Release:  sec.Key("VERSION_ID").String(),
		Codename: sec.Key("VERSION_CODENAME").String(),
	}, nil
}

func detectInit(ctx context.Context, sess remote.Session) (InitSystem, error) {
	systemd, err := sess.PathExists(ctx, defaults.SystemdRunDir)
	if err != nil {
		return Systemd, err
	}
	if systemd {
		return Systemd, nil
	}
	upstart, err := sess.PathExists(ctx, defaults.UpstartInitctl)
	if err != nil {
		return Systemd, err
	}
	if upstart {
		return Upstart, nil
	}
	return SysVinit, nil
}

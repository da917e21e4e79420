// Package cephconf reads the local cluster configuration file that gets
// pushed to every host.
package cephconf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"
)

// Conf is a parsed <cluster>.conf.
type Conf struct {
	Cluster string
	Path    string
	// Raw is the file exactly as read, which is what hosts receive.
	Raw []byte

	file *ini.File
}

// Path returns the location of the conf file for cluster under dir.
func Path(dir, cluster string) string {
	return filepath.Join(dir, cluster+".conf")
}

// Load reads <dir>/<cluster>.conf.
func Load(dir, cluster string) (*Conf, error) {
	p := Path(dir, cluster)
	raw, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("failed to read cluster config %s: %w", p, err)
	}
	return Parse(cluster, p, raw)
}

// Parse parses conf contents. Keys are matched with spaces and underscores
// treated alike, the way ceph itself reads them.
func Parse(cluster, path string, raw []byte) (*Conf, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		Insensitive:             true,
		IgnoreInlineComment:     false,
		AllowBooleanKeys:        true,
		SkipUnrecognizableLines: true,
	}, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse cluster config %s: %w", path, err)
	}
	return &Conf{Cluster: cluster, Path: path, Raw: raw, file: f}, nil
}

// Get returns the value of key in section, or "" when unset.
func (c *Conf) Get(section, key string) string {
	sec, err := c.file.GetSection(section)
	if err != nil {
		return ""
	}
	want := normalizeKey(key)
	for _, k := range sec.Keys() {
		if normalizeKey(k.Name()) == want {
			return strings.TrimSpace(k.String())
		}
	}
	return ""
}

// FSID returns the cluster fsid from [global].
func (c *Conf) FSID() string {
	return c.Get("global", "fsid")
}

// MonInitialMembers returns the initial monitor host names from [global].
func (c *Conf) MonInitialMembers() []string {
	raw := c.Get("global", "mon_initial_members")
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
}

func normalizeKey(k string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(k), " ", "_"))
}

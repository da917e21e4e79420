package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"osdctl/internal/config"
	"osdctl/internal/osd"
)

func TestParseTargetsFillsFromFlags(t *testing.T) {
	targets, err := parseTargets([]string{"node1", "node2:/dev/sdc", "node3:/dev/sdd:/dev/sde"}, "/dev/sdb", "/dev/nvme0n1p1")
	require.NoError(t, err)

	assert.Equal(t, []osd.TargetSpec{
		{Host: "node1", Data: "/dev/sdb", Journal: "/dev/nvme0n1p1"},
		{Host: "node2", Data: "/dev/sdc", Journal: "/dev/nvme0n1p1"},
		{Host: "node3", Data: "/dev/sdd", Journal: "/dev/sde"},
	}, targets)
}

func TestParseTargetsRejectsEmptyHost(t *testing.T) {
	_, err := parseTargets([]string{":/dev/sdb"}, "", "")
	assert.ErrorIs(t, err, osd.ErrConfig)
}

func TestPrepareRequest(t *testing.T) {
	c := &cmdPrepare{create: true, flagFilestore: true, flagFSType: "btrfs", flagDmcrypt: true, flagBlockDB: "/dev/sdz"}
	req, err := c.request()
	require.NoError(t, err)

	assert.Equal(t, osd.Filestore, req.Store)
	assert.True(t, req.Create)
	assert.True(t, req.Dmcrypt)
	assert.Equal(t, "btrfs", req.FSType)
	assert.Equal(t, "/dev/sdz", req.BlockDB)

	c = &cmdPrepare{}
	req, err = c.request()
	require.NoError(t, err)
	assert.Equal(t, osd.Bluestore, req.Store)
	assert.False(t, req.Create)

	c = &cmdPrepare{flagStore: "Filestore"}
	req, err = c.request()
	require.NoError(t, err)
	assert.Equal(t, osd.Filestore, req.Store)

	c = &cmdPrepare{flagStore: "kstore"}
	_, err = c.request()
	assert.ErrorIs(t, err, osd.ErrConfig)

	c = &cmdPrepare{flagFilestore: true, flagBluestore: true}
	_, err = c.request()
	assert.ErrorIs(t, err, osd.ErrConfig)
}

func TestNewDialerOverrides(t *testing.T) {
	cfg := &config.Config{
		SSH: config.SSHConfig{Username: "ceph", Port: 22, Password: "secret"},
		Hosts: map[string]config.HostConfig{
			"Node2": {Address: "10.0.0.2", Port: 2222, ConnectTimeout: 3 * time.Second, SFTPServer: "/usr/libexec/openssh/sftp-server"},
		},
	}

	d := newDialer(cfg)
	assert.Equal(t, "ceph", d.Defaults.Username)
	assert.Equal(t, "secret", d.Defaults.Password)
	assert.Empty(t, d.Defaults.PrivateKeyPath)

	o, ok := d.Overrides["node2"]
	require.True(t, ok)
	assert.Equal(t, "10.0.0.2", o.Address)
	assert.Equal(t, 2222, o.Port)
	assert.Equal(t, 3*time.Second, o.ConnectTimeout)
	assert.Equal(t, "/usr/libexec/openssh/sftp-server", o.SFTPServer)
}

func TestCommandTree(t *testing.T) {
	app := newApp()

	for _, path := range [][]string{
		{"osd", "prepare"}, {"osd", "create"}, {"osd", "activate"}, {"osd", "list"},
		{"disk", "prepare"}, {"disk", "create"}, {"disk", "activate"}, {"disk", "zap"}, {"disk", "list"},
	} {
		cmd, _, err := app.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[1], cmd.Name())
	}

	listCmd, _, err := app.Find([]string{"osd", "list"})
	require.NoError(t, err)
	assert.NotNil(t, listCmd.Flags().Lookup("mon"))
	assert.NotNil(t, listCmd.Flags().Lookup("summary"))
}

func TestActivateWithoutArgsPrintsHelp(t *testing.T) {
	t.Setenv("OSDCTL_LOGGING_LEVEL", "error")
	t.Chdir(t.TempDir())

	app := newApp()
	out := &bytes.Buffer{}
	app.SetOut(out)
	app.SetArgs([]string{"osd", "activate"})

	require.NoError(t, app.Execute())
	assert.Contains(t, out.String(), "activate <host>:<disk>...")
}

func TestFormatSection(t *testing.T) {
	assert.Equal(t, "Description:\n  one\n\n  two", formatSection("Description", "one\n\ntwo\n"))
}

package osd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"osdctl/internal/logging"
	"osdctl/internal/remote/remotetest"
)

// observeLogs routes the global logger into an observer for the test.
func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	t.Cleanup(logging.Replace(zap.New(core).Sugar()))
	return logs
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		in   string
		want TargetSpec
	}{
		{"node1", TargetSpec{Host: "node1"}},
		{"node1:/dev/sdb", TargetSpec{Host: "node1", Data: "/dev/sdb"}},
		{"node1:/dev/sdb:/dev/sdc", TargetSpec{Host: "node1", Data: "/dev/sdb", Journal: "/dev/sdc"}},
		{"node1:vg/lv:/dev/sdc1", TargetSpec{Host: "node1", Data: "vg/lv", Journal: "/dev/sdc1"}},
		{"node1:sdb:sdc", TargetSpec{Host: "node1", Data: "sdb", Journal: "sdc"}},
		{
			"node1:/dev/disk/by-path/pci-0000:00:1f.2-ata-1",
			TargetSpec{Host: "node1", Data: "/dev/disk/by-path/pci-0000:00:1f.2-ata-1"},
		},
		{
			"node1:/dev/disk/by-path/pci-0000:00:1f.2-ata-1:/dev/sdc",
			TargetSpec{Host: "node1", Data: "/dev/disk/by-path/pci-0000:00:1f.2-ata-1", Journal: "/dev/sdc"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTarget(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTargetNoHost(t *testing.T) {
	_, err := ParseTarget(":/dev/sdb")
	assert.ErrorIs(t, err, ErrConfig)
}

func TestTargetSpecString(t *testing.T) {
	assert.Equal(t, "node1", TargetSpec{Host: "node1"}.String())
	assert.Equal(t, "node1:/dev/sdb", TargetSpec{Host: "node1", Data: "/dev/sdb"}.String())
	assert.Equal(t, "node1:/dev/sdb:/dev/sdc", TargetSpec{Host: "node1", Data: "/dev/sdb", Journal: "/dev/sdc"}.String())
}

func TestParseStoreType(t *testing.T) {
	for in, want := range map[string]StoreType{"": Bluestore, "bluestore": Bluestore, "FileStore": Filestore} {
		got, err := ParseStoreType(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseStoreType("kstore")
	assert.ErrorIs(t, err, ErrConfig)
}

func TestResolveExecutable(t *testing.T) {
	sess := remotetest.NewSession("node1")
	sess.Files["/usr/local/bin/ceph-volume"] = ""

	exe, err := ResolveExecutable(context.Background(), sess, "ceph-volume")
	require.NoError(t, err)
	assert.Equal(t, "/usr/local/bin/ceph-volume", exe)

	exe, err = ResolveExecutable(context.Background(), sess, "ceph-disk")
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/ceph-disk", exe)

	_, err = ResolveExecutable(context.Background(), sess, "ceph-bluestore-tool")
	assert.ErrorContains(t, err, "could not find executable ceph-bluestore-tool on node1")
}

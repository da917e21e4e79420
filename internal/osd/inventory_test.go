package osd

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"osdctl/internal/remote"
	"osdctl/internal/remote/remotetest"
)

const sampleTree = `{
  "nodes": [
    {"id": -1, "name": "default", "type": "root", "type_id": 10, "children": [-2]},
    {"id": -2, "name": "node1", "type": "host", "type_id": 1, "children": [1]},
    {"id": 1, "name": "osd.1", "type": "osd", "type_id": 0, "status": "up", "reweight": 1.0, "crush_weight": 0.0488}
  ],
  "stray": []
}`

var diskListArgv = []string{"/usr/bin/ceph-disk", "list"}

func TestScrapeDiskList(t *testing.T) {
	lines := []string{
		"/dev/sda :",
		" /dev/sda1 other, ext2, mounted on /boot",
		" /dev/sda2 other",
		"/dev/sdb :",
		" /dev/sdb1 ceph data, active, cluster ceph, osd.1, journal /dev/sdb2",
		" /dev/sdb2 ceph journal, for /dev/sdb1",
		"/dev/sdc1 ceph data, active, cluster ceph, osd.12, journal /dev/sdc2",
		"/dev/sr0 other, unknown",
	}

	idx := ScrapeDiskList(lines)
	assert.Equal(t, DeviceIndex{"osd.1": "/dev/sdb1", "osd.12": "/dev/sdc1"}, idx)
}

// The device is the partition the OSD is mounted from, whether or not the
// line is indented under its parent disk.
func TestScrapeDiskListDeviceIsPartition(t *testing.T) {
	line := "/dev/sdb1 ceph data, active, cluster ceph, osd.1, journal /dev/sdb2"

	assert.Equal(t, DeviceIndex{"osd.1": "/dev/sdb1"}, ScrapeDiskList([]string{line}))
	assert.Equal(t, DeviceIndex{"osd.1": "/dev/sdb1"}, ScrapeDiskList([]string{" " + line}))
}

func TestParseTree(t *testing.T) {
	tree := ParseTree(sampleTree)
	require.Len(t, tree.Nodes, 3)

	node, ok := tree.Node(1)
	require.True(t, ok)
	assert.Equal(t, "osd.1", node.Name)
	assert.Equal(t, "up", node.Status)
	assert.Equal(t, 1.0, node.Reweight)
	assert.True(t, node.HasReweight())

	_, ok = tree.Node(7)
	assert.False(t, ok)

	assert.Empty(t, ParseTree("not json").Nodes)
}

func TestFetchTreeTimeout(t *testing.T) {
	sess := remotetest.NewSession("mon1")
	sess.Fail([]string{"/usr/bin/ceph", "--cluster=ceph", "osd", "tree", "--format=json"}, remote.ErrTimeout)

	tree, err := FetchTree(context.Background(), sess, "ceph")
	require.NoError(t, err)
	assert.Empty(t, tree.Nodes)
}

func TestHostRecordsCorrelates(t *testing.T) {
	sess := remotetest.NewSession("node1")
	sess.Files["/var/lib/ceph/osd/ceph-1/whoami"] = "1\n"
	sess.Files["/var/lib/ceph/osd/ceph-1/active"] = "ok\n"
	sess.Respond(diskListArgv, []string{"/dev/sdb1 ceph data, active, cluster ceph, osd.1, journal /dev/sdb2"}, 0)

	records, err := NewInventory().HostRecords(context.Background(), sess, ParseTree(sampleTree))
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, 1, r.ID)
	assert.Equal(t, "osd.1", r.Name)
	assert.Equal(t, "/var/lib/ceph/osd/ceph-1", r.Path)
	assert.Equal(t, "/dev/sdb1", r.Device)
	require.NotNil(t, r.Node)
	assert.Equal(t, "up", r.Node.Status)
	assert.Equal(t, "1.0", formatReweight(r.Node.Reweight))

	whoami, ok := r.Lookup("whoami")
	assert.True(t, ok)
	assert.Equal(t, "1", whoami)
	active, ok := r.Lookup("active")
	assert.True(t, ok)
	assert.Equal(t, "ok", active)

	assert.Equal(t, []Field{
		{Key: "device", Value: "/dev/sdb1"},
		{Key: "active", Value: "ok"},
		{Key: "whoami", Value: "1"},
	}, r.Metadata)
}

func TestHostRecordsOrderingAndFallbacks(t *testing.T) {
	logs := observeLogs(t)
	sess := remotetest.NewSession("node1")
	sess.Files["/var/lib/ceph/osd/ceph-10/whoami"] = "10"
	sess.Files["/var/lib/ceph/osd/ceph-2/whoami"] = "2"
	sess.Files["/var/lib/ceph/osd/ceph-2/journal_uuid"] = "5e4f"
	sess.Links["/var/lib/ceph/osd/ceph-2/journal"] = "/dev/sdc2"
	sess.Dirs["/var/lib/ceph/osd/lost+found"] = true

	records, err := NewInventory().HostRecords(context.Background(), sess, &Tree{})
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, 2, records[0].ID)
	assert.Equal(t, 10, records[1].ID)
	assert.Equal(t, "/dev/sdc2", records[0].Journal)
	assert.Nil(t, records[0].Node)
	assert.Empty(t, records[0].Device)
	assert.Equal(t, 1, logs.FilterMessage("skipping unrecognized entry in OSD data directory").Len())
}

func TestHostRecordsMissingDirectory(t *testing.T) {
	sess := remotetest.NewSession("node1")

	records, err := NewInventory().HostRecords(context.Background(), sess, &Tree{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

type failingLister struct{}

func (failingLister) DeviceIndex(context.Context, remote.Session) (DeviceIndex, error) {
	return nil, errors.New("ceph-disk: command not found")
}

func TestHostRecordsListerFailure(t *testing.T) {
	logs := observeLogs(t)
	sess := remotetest.NewSession("node1")
	sess.Files["/var/lib/ceph/osd/ceph-3/whoami"] = "3"

	inv := &Inventory{Lister: failingLister{}}
	records, err := inv.HostRecords(context.Background(), sess, &Tree{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Empty(t, records[0].Device)
	assert.Equal(t, 1, logs.FilterMessage("could not list disks, devices will be missing").Len())
}

func TestWriteRecords(t *testing.T) {
	tree := ParseTree(sampleTree)
	node, _ := tree.Node(1)
	records := []Record{
		{
			Host:    "node1",
			ID:      1,
			Name:    "osd.1",
			Path:    "/var/lib/ceph/osd/ceph-1",
			Device:  "/dev/sdb1",
			Journal: "/dev/sdb2",
			Node:    node,
			Metadata: []Field{
				{Key: "device", Value: "/dev/sdb1"},
				{Key: "whoami", Value: "1"},
				{Key: "journal_uuid", Value: "5e4f"},
			},
		},
		{
			Host: "node1",
			ID:   4,
			Name: "osd.4",
			Path: "/var/lib/ceph/osd/ceph-4",
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteRecords(&buf, records))

	want := "----------------------------------------\n" +
		"ceph-1\n" +
		"----------------------------------------\n" +
		"Path           /var/lib/ceph/osd/ceph-1\n" +
		"ID             1\n" +
		"Name           osd.1\n" +
		"Status         up\n" +
		"Reweight       1.0\n" +
		"Journal        /dev/sdb2\n" +
		"Device         /dev/sdb1\n" +
		"Whoami         1\n" +
		"Journal_uuid   5e4f\n" +
		"----------------------------------------\n" +
		"----------------------------------------\n" +
		"ceph-4\n" +
		"----------------------------------------\n" +
		"Path           /var/lib/ceph/osd/ceph-4\n" +
		"ID             -\n" +
		"Name           -\n" +
		"Status         -\n" +
		"Reweight       -\n" +
		"----------------------------------------\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, []Record{{Host: "node1", Name: "osd.4", Device: "/dev/sdd1"}}))

	out := buf.String()
	assert.Contains(t, out, "HOST")
	assert.Contains(t, out, "osd.4")
	assert.Contains(t, out, "/dev/sdd1")
}

func TestFormatReweight(t *testing.T) {
	assert.Equal(t, "1.0", formatReweight(1))
	assert.Equal(t, "0.0", formatReweight(0))
	assert.Equal(t, "0.85", formatReweight(0.85))
}

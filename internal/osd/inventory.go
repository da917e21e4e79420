package osd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strconv"
	"strings"

	"github.com/juju/naturalsort"

	"osdctl/internal/defaults"
	"osdctl/internal/logging"
	"osdctl/internal/remote"
)

// metadataFiles are read from each OSD data directory when present, in this
// order.
var metadataFiles = []string{"active", "magic", "whoami", "journal_uuid"}

// Field is one metadata entry of a Record.
type Field struct {
	Key   string
	Value string
}

// Record is the reconciled view of one OSD found on a host.
type Record struct {
	Host string
	ID   int
	// Name is derived from the directory ("osd.<id>").
	Name string
	Path string
	// Device is the partition the OSD is mounted from, when ceph-disk knows.
	Device string
	// Journal is the resolved journal symlink, when present.
	Journal string
	// Node is the matching topology node, nil when the cluster does not
	// know the OSD.
	Node *TreeNode
	// Metadata lists the discovered fields in discovery order.
	Metadata []Field
}

// Entry returns the data directory name, e.g. "ceph-1".
func (r Record) Entry() string {
	return path.Base(r.Path)
}

// Inventory correlates OSD data directories with the disk listing and the
// cluster topology.
type Inventory struct {
	Lister DiskLister
}

// NewInventory returns an Inventory using ceph-disk for device lookups.
func NewInventory() *Inventory {
	return &Inventory{Lister: CephDiskLister{}}
}

// HostRecords builds one record per OSD data directory on the host. It only
// reads from the host and tolerates any source being unavailable.
func (inv *Inventory) HostRecords(ctx context.Context, sess remote.Session, tree *Tree) ([]Record, error) {
	log := logging.L().With("host", sess.Host())

	entries, err := sess.ListDir(ctx, defaults.OSDDataDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Infow("no OSD data directory", "path", defaults.OSDDataDir)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list %s on %s: %w", defaults.OSDDataDir, sess.Host(), err)
	}
	naturalsort.Sort(entries)

	devices := DeviceIndex{}
	if inv.Lister != nil {
		idx, err := inv.Lister.DeviceIndex(ctx, sess)
		if err != nil {
			log.Warnw("could not list disks, devices will be missing", "error", err)
		} else {
			devices = idx
		}
	}

	var records []Record
	for _, entry := range entries {
		id, err := strconv.Atoi(entry[strings.LastIndex(entry, "-")+1:])
		if err != nil {
			log.Warnw("skipping unrecognized entry in OSD data directory", "entry", entry)
			continue
		}

		rec, err := inv.record(ctx, sess, entry, id, devices)
		if err != nil {
			return records, err
		}
		if node, ok := tree.Node(id); ok {
			rec.Node = node
		}
		records = append(records, rec)
	}
	return records, nil
}

func (inv *Inventory) record(ctx context.Context, sess remote.Session, entry string, id int, devices DeviceIndex) (Record, error) {
	rec := Record{
		Host: sess.Host(),
		ID:   id,
		Name: fmt.Sprintf("osd.%d", id),
		Path: path.Join(defaults.OSDDataDir, entry),
	}

	if dev, ok := devices[rec.Name]; ok {
		rec.Device = dev
		rec.Metadata = append(rec.Metadata, Field{Key: "device", Value: dev})
	}

	for _, name := range metadataFiles {
		p := path.Join(rec.Path, name)
		exists, err := sess.PathExists(ctx, p)
		if err != nil {
			return rec, err
		}
		if !exists {
			continue
		}
		value, err := sess.ReadLine(ctx, p)
		if err != nil {
			return rec, err
		}
		rec.Metadata = append(rec.Metadata, Field{Key: name, Value: value})
	}

	journal := path.Join(rec.Path, "journal")
	exists, err := sess.PathExists(ctx, journal)
	if err != nil {
		return rec, err
	}
	if exists {
		resolved, err := sess.Realpath(ctx, journal)
		if err != nil {
			return rec, err
		}
		rec.Journal = resolved
	}
	return rec, nil
}

// Lookup returns the value of a metadata key.
func (r Record) Lookup(key string) (string, bool) {
	for _, f := range r.Metadata {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

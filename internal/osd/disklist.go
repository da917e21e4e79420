package osd

import (
	"context"
	"regexp"
	"strings"

	"osdctl/internal/logging"
	"osdctl/internal/remote"
)

// DeviceIndex maps OSD names ("osd.1") to the device they are mounted from.
type DeviceIndex map[string]string

// DiskLister produces the device index for a host.
type DiskLister interface {
	DeviceIndex(ctx context.Context, sess remote.Session) (DeviceIndex, error)
}

// CephDiskLister reads the index from `ceph-disk list`.
type CephDiskLister struct{}

// DeviceIndex runs ceph-disk list and scrapes its output.
func (CephDiskLister) DeviceIndex(ctx context.Context, sess remote.Session) (DeviceIndex, error) {
	exe, err := ResolveExecutable(ctx, sess, "ceph-disk")
	if err != nil {
		return nil, err
	}
	res, err := sess.Check(ctx, []string{exe, "list"})
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		logging.L().Debugw("ceph-disk list exited non-zero", "host", sess.Host(), "exitCode", res.ExitCode)
	}
	return ScrapeDiskList(res.Stdout), nil
}

var diskListSep = regexp.MustCompile(`[,\s]+`)

// ScrapeDiskList indexes ceph-disk list output. Partition lines look like
//
//	/dev/sdb1 ceph data, active, cluster ceph, osd.1, journal /dev/sdb2
//
// and are usually indented. The device is the first field of a line that
// mentions osd.<id>. The first mention of an OSD wins.
func ScrapeDiskList(lines []string) DeviceIndex {
	idx := DeviceIndex{}
	for _, line := range lines {
		var fields []string
		for _, f := range diskListSep.Split(line, -1) {
			if f != "" {
				fields = append(fields, f)
			}
		}
		if len(fields) < 2 {
			continue
		}
		for _, f := range fields[1:] {
			if !strings.HasPrefix(f, "osd.") {
				continue
			}
			if _, seen := idx[f]; !seen {
				idx[f] = fields[0]
			}
		}
	}
	return idx
}

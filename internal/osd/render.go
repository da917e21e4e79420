package osd

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/gosuri/uitable"

	"osdctl/internal/defaults"
)

const missing = "-"

// WriteRecords writes one block per record:
//
//	----------------------------------------
//	ceph-1
//	----------------------------------------
//	Path           /var/lib/ceph/osd/ceph-1
//	ID             1
//	...
//	----------------------------------------
func WriteRecords(w io.Writer, records []Record) error {
	sep := strings.Repeat("-", defaults.SeparatorWidth)
	for _, r := range records {
		var b strings.Builder
		fmt.Fprintln(&b, sep)
		fmt.Fprintln(&b, r.Entry())
		fmt.Fprintln(&b, sep)
		fmt.Fprintf(&b, "%-14s %s\n", "Path", r.Path)
		fmt.Fprintf(&b, "%-14s %s\n", "ID", nodeID(r.Node))
		fmt.Fprintf(&b, "%-14s %s\n", "Name", nodeString(r.Node, func(n *TreeNode) string { return n.Name }))
		fmt.Fprintf(&b, "%-14s %s\n", "Status", nodeString(r.Node, func(n *TreeNode) string { return n.Status }))
		fmt.Fprintf(&b, "%-14s %s\n", "Reweight", nodeReweight(r.Node))
		if r.Journal != "" {
			fmt.Fprintf(&b, "%-14s %s\n", "Journal", r.Journal)
		}
		for _, f := range r.Metadata {
			fmt.Fprintf(&b, "%-13s  %s\n", capitalize(f.Key), f.Value)
		}
		fmt.Fprintln(&b, sep)

		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
	}
	return nil
}

// WriteSummary writes one table row per record.
func WriteSummary(w io.Writer, records []Record) error {
	table := uitable.New()
	table.MaxColWidth = 60
	table.AddRow("HOST", "OSD", "STATUS", "REWEIGHT", "DEVICE", "JOURNAL")
	for _, r := range records {
		table.AddRow(
			r.Host,
			r.Name,
			nodeString(r.Node, func(n *TreeNode) string { return n.Status }),
			nodeReweight(r.Node),
			orMissing(r.Device),
			orMissing(r.Journal),
		)
	}
	_, err := fmt.Fprintln(w, table)
	return err
}

func nodeID(n *TreeNode) string {
	if n == nil {
		return missing
	}
	return strconv.Itoa(n.ID)
}

func nodeString(n *TreeNode, get func(*TreeNode) string) string {
	if n == nil {
		return missing
	}
	return orMissing(get(n))
}

func nodeReweight(n *TreeNode) string {
	if n == nil || !n.HasReweight() {
		return missing
	}
	return formatReweight(n.Reweight)
}

// formatReweight always shows a fractional part, so 1 prints as "1.0".
func formatReweight(f float64) string {
	if f == math.Trunc(f) {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func orMissing(s string) string {
	if s == "" {
		return missing
	}
	return s
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

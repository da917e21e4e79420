package osd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"osdctl/internal/logging"
	"osdctl/internal/remote"
)

// TreeNode is one bucket or OSD in the cluster topology.
type TreeNode struct {
	ID       int
	Name     string
	Type     string
	Status   string
	Reweight float64
	// Attrs holds every field of the node as decoded, string booleans
	// normalized.
	Attrs map[string]any
}

// HasReweight reports whether the cluster reported a reweight for the node.
func (n *TreeNode) HasReweight() bool {
	_, ok := n.Attrs["reweight"]
	return ok
}

// Tree is the decoded output of `ceph osd tree`.
type Tree struct {
	Nodes []TreeNode
}

// Node returns the node with the given id.
func (t *Tree) Node(id int) (*TreeNode, bool) {
	if t == nil {
		return nil, false
	}
	for i := range t.Nodes {
		if t.Nodes[i].ID == id {
			return &t.Nodes[i], true
		}
	}
	return nil, false
}

// ParseTree decodes `ceph osd tree --format=json` output. Malformed input
// yields an empty tree.
func ParseTree(out string) *Tree {
	var raw struct {
		Nodes []map[string]any `json:"nodes"`
		Stray []map[string]any `json:"stray"`
	}
	if err := json.Unmarshal([]byte(out), &raw); err != nil {
		return &Tree{}
	}

	tree := &Tree{}
	for _, attrs := range append(raw.Nodes, raw.Stray...) {
		if attrs == nil {
			continue
		}
		NormalizeBooleans(attrs)
		node := TreeNode{
			ID:     toInt(attrs["id"]),
			Name:   stringAttr(attrs, "name"),
			Type:   stringAttr(attrs, "type"),
			Status: stringAttr(attrs, "status"),
			Attrs:  attrs,
		}
		if w, ok := toFloat(attrs["reweight"]); ok {
			node.Reweight = w
		}
		tree.Nodes = append(tree.Nodes, node)
	}
	return tree
}

// FetchTree asks the host for the cluster topology. Timeouts and malformed
// output yield an empty tree.
func FetchTree(ctx context.Context, sess remote.Session, cluster string) (*Tree, error) {
	exe, err := ResolveExecutable(ctx, sess, "ceph")
	if err != nil {
		return nil, err
	}

	res, err := sess.Check(ctx, []string{exe, "--cluster=" + cluster, "osd", "tree", "--format=json"})
	if err != nil {
		if errors.Is(err, remote.ErrTimeout) {
			logging.L().Debugw("osd tree timed out", "host", sess.Host(), "error", err)
			return &Tree{}, nil
		}
		return nil, fmt.Errorf("failed to fetch osd tree from %s: %w", sess.Host(), err)
	}
	return ParseTree(strings.Join(res.Stdout, "\n")), nil
}

func stringAttr(attrs map[string]any, key string) string {
	switch v := attrs[key].(type) {
	case string:
		return v
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

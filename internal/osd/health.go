package osd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"osdctl/internal/logging"
	"osdctl/internal/remote"
)

// Status is the decoded output of `ceph osd stat`. Values are kept as decoded
// so fields this package does not know about pass through untouched.
type Status map[string]any

// Int returns key as an integer. Numbers encoded as strings are accepted;
// anything else is 0.
func (s Status) Int(key string) int {
	return toInt(s[key])
}

// Bool reports whether key holds a true value.
func (s Status) Bool(key string) bool {
	switch v := s[key].(type) {
	case bool:
		return v
	case string:
		return v != ""
	case float64:
		return v != 0
	default:
		return false
	}
}

// NormalizeBooleans replaces the strings "true" and "false" with real
// booleans in m. Older releases emit booleans as strings in JSON output.
func NormalizeBooleans(m map[string]any) {
	for k, v := range m {
		switch v {
		case "true":
			m[k] = true
		case "false":
			m[k] = false
		}
	}
}

// ParseStatus decodes `ceph osd stat --format=json` output. Malformed input
// yields an empty Status. A nested "osdmap" object is flattened into the top
// level.
func ParseStatus(out string) Status {
	m := map[string]any{}
	if err := json.Unmarshal([]byte(out), &m); err != nil {
		return Status{}
	}
	if nested, ok := m["osdmap"].(map[string]any); ok {
		for k, v := range nested {
			if _, exists := m[k]; !exists {
				m[k] = v
			}
		}
		delete(m, "osdmap")
	}
	NormalizeBooleans(m)
	return Status(m)
}

// StatusCheck fetches the OSD map status from the host. A timeout (either
// the transport's or timeout, when positive) yields an empty Status rather
// than an error.
func StatusCheck(ctx context.Context, sess remote.Session, cluster string, timeout time.Duration) (Status, error) {
	exe, err := ResolveExecutable(ctx, sess, "ceph")
	if err != nil {
		return nil, err
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res, err := sess.Check(ctx, []string{exe, "--cluster=" + cluster, "osd", "stat", "--format=json"})
	if err != nil {
		if errors.Is(err, remote.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
			logging.L().Debugw("osd status check timed out", "host", sess.Host(), "error", err)
			return Status{}, nil
		}
		return nil, fmt.Errorf("failed to check osd status on %s: %w", sess.Host(), err)
	}
	return ParseStatus(strings.Join(res.Stdout, "\n")), nil
}

// HealthWarnings lists the problems visible in s.
func HealthWarnings(s Status) []string {
	var warnings []string

	osds := s.Int("num_osds")
	if down := osds - s.Int("num_up_osds"); down > 0 {
		warnings = append(warnings, countWarning(down, "down"))
	}
	if out := osds - s.Int("num_in_osds"); out > 0 {
		warnings = append(warnings, countWarning(out, "out"))
	}
	if s.Bool("full") {
		warnings = append(warnings, "OSDs are full!")
	}
	if s.Bool("nearfull") {
		warnings = append(warnings, "OSDs are near full!")
	}
	return warnings
}

func countWarning(n int, state string) string {
	if n == 1 {
		return fmt.Sprintf("there is 1 OSD %s", state)
	}
	return fmt.Sprintf("there are %d OSDs %s", n, state)
}

// CheckHealth runs StatusCheck and logs each warning. The result is advisory.
func CheckHealth(ctx context.Context, sess remote.Session, cluster string, timeout time.Duration) ([]string, error) {
	log := logging.L().With("host", sess.Host())
	log.Info("checking OSD status...")

	status, err := StatusCheck(ctx, sess, cluster, timeout)
	if err != nil {
		return nil, err
	}
	warnings := HealthWarnings(status)
	for _, w := range warnings {
		log.Warn(w)
	}
	return warnings, nil
}

func toInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case json.Number:
		i, _ := n.Int64()
		return int(i)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0
		}
		return i
	default:
		return 0
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

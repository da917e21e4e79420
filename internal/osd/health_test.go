package osd

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"osdctl/internal/remote"
	"osdctl/internal/remote/remotetest"
)

var statArgv = []string{"/usr/bin/ceph", "--cluster=ceph", "osd", "stat", "--format=json"}

func TestParseStatusNormalizesBooleans(t *testing.T) {
	s := ParseStatus(`{"epoch": 8, "num_osds": 1, "num_up_osds": 1, "num_in_osds": "1", "full": "false", "nearfull": "true", "flags": "noout"}`)

	assert.Equal(t, false, s["full"])
	assert.Equal(t, true, s["nearfull"])
	assert.Equal(t, "noout", s["flags"])
	assert.Equal(t, 1, s.Int("num_in_osds"))
}

func TestParseStatusFlattensOSDMap(t *testing.T) {
	s := ParseStatus(`{"osdmap": {"epoch": 12, "num_osds": 3, "num_up_osds": 2, "num_in_osds": 3, "full": false, "nearfull": false}}`)

	assert.Equal(t, 3, s.Int("num_osds"))
	assert.Equal(t, 2, s.Int("num_up_osds"))
	assert.NotContains(t, s, "osdmap")
}

func TestParseStatusMalformed(t *testing.T) {
	assert.Empty(t, ParseStatus("Error initializing cluster client"))
	assert.Empty(t, ParseStatus(""))
}

func TestHealthWarnings(t *testing.T) {
	tests := []struct {
		name   string
		status Status
		want   []string
	}{
		{
			name:   "healthy",
			status: Status{"num_osds": 3.0, "num_up_osds": 3.0, "num_in_osds": 3.0, "full": false, "nearfull": false},
			want:   nil,
		},
		{
			name:   "two down",
			status: Status{"num_osds": 3.0, "num_up_osds": 1.0, "num_in_osds": 3.0},
			want:   []string{"there are 2 OSDs down"},
		},
		{
			name:   "one down one out",
			status: Status{"num_osds": 3.0, "num_up_osds": 2.0, "num_in_osds": "2"},
			want:   []string{"there is 1 OSD down", "there is 1 OSD out"},
		},
		{
			name:   "full and nearfull",
			status: Status{"num_osds": 1.0, "num_up_osds": 1.0, "num_in_osds": 1.0, "full": true, "nearfull": true},
			want:   []string{"OSDs are full!", "OSDs are near full!"},
		},
		{
			name:   "empty",
			status: Status{},
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HealthWarnings(tt.status))
		})
	}
}

func TestStatusCheck(t *testing.T) {
	sess := remotetest.NewSession("node1")
	sess.Respond(statArgv, []string{`{"num_osds": 2, "num_up_osds": 2, "num_in_osds": 2, "full": "false", "nearfull": "false"}`}, 0)

	s, err := StatusCheck(context.Background(), sess, "ceph", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Int("num_osds"))
	assert.Equal(t, false, s["full"])
}

func TestStatusCheckTimeout(t *testing.T) {
	logs := observeLogs(t)
	sess := remotetest.NewSession("node1")
	sess.Fail(statArgv, fmt.Errorf("%w: ceph osd stat on node1", remote.ErrTimeout))

	s, err := StatusCheck(context.Background(), sess, "ceph", time.Second)
	require.NoError(t, err)
	assert.Empty(t, s)

	warnings, err := CheckHealth(context.Background(), sess, "ceph", time.Second)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, 1, logs.FilterMessage("checking OSD status...").Len())
}

func TestStatusCheckTransportError(t *testing.T) {
	sess := remotetest.NewSession("node1")
	sess.Fail(statArgv, errors.New("connection reset by peer"))

	_, err := StatusCheck(context.Background(), sess, "ceph", 0)
	assert.ErrorContains(t, err, "connection reset by peer")
}

func TestCheckHealthLogsWarnings(t *testing.T) {
	logs := observeLogs(t)
	sess := remotetest.NewSession("node1")
	sess.Respond(statArgv, []string{`{"num_osds": 4, "num_up_osds": 2, "num_in_osds": 4}`}, 0)

	warnings, err := CheckHealth(context.Background(), sess, "ceph", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"there are 2 OSDs down"}, warnings)
	assert.Equal(t, 1, logs.FilterMessage("there are 2 OSDs down").Len())
}

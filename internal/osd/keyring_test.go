package osd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"osdctl/internal/remote/mocks"
)

const keyringWarning = "osd keyring does not exist yet, creating one"

func TestEnsureBootstrapKeyCreates(t *testing.T) {
	logs := observeLogs(t)
	ctrl := gomock.NewController(t)
	sess := mocks.NewMockSession(ctrl)
	key := []byte("[client.bootstrap-osd]\n\tkey = AQBfZ\n")

	sess.EXPECT().Host().Return("node1").AnyTimes()
	sess.EXPECT().PathExists(gomock.Any(), "/var/lib/ceph/bootstrap-osd/ceph.keyring").Return(false, nil)
	sess.EXPECT().WriteKeyring(gomock.Any(), "/var/lib/ceph/bootstrap-osd/ceph.keyring", key).Return(nil)

	created, err := EnsureBootstrapKey(context.Background(), sess, "ceph", key)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 1, logs.FilterMessage(keyringWarning).Len())
}

func TestEnsureBootstrapKeyExisting(t *testing.T) {
	logs := observeLogs(t)
	ctrl := gomock.NewController(t)
	sess := mocks.NewMockSession(ctrl)

	sess.EXPECT().Host().Return("node1").AnyTimes()
	sess.EXPECT().PathExists(gomock.Any(), "/var/lib/ceph/bootstrap-osd/ceph.keyring").Return(true, nil)

	created, err := EnsureBootstrapKey(context.Background(), sess, "ceph", []byte("key"))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Zero(t, logs.FilterMessage(keyringWarning).Len())
}

func TestLoadBootstrapKey(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ceph.bootstrap-osd.keyring"), []byte("secret"), 0o600))

	key, err := LoadBootstrapKey(dir, "ceph")
	require.NoError(t, err)
	assert.Equal(t, []byte("secret"), key)

	_, err = LoadBootstrapKey(dir, "backup")
	assert.ErrorIs(t, err, ErrConfig)
	assert.ErrorContains(t, err, "gatherkeys")
}

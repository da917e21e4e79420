// Package defaults provides centralized default values and constants used across the codebase.
// Change once, apply everywhere.
package defaults

import "time"

// =============================================================================
// Cluster Defaults
// =============================================================================

const (
	// ClusterName is the default cluster name used to namespace conf and keyring files.
	ClusterName = "ceph"

	// WorkDir is the default local directory holding <cluster>.conf and the gathered keyrings.
	WorkDir = "."

	// SettleInterval is how long to wait after a prepare/activate before checking OSD status.
	SettleInterval = 5 * time.Second

	// StatusTimeout bounds the post-action `ceph osd stat` call.
	StatusTimeout = 30 * time.Second
)

// =============================================================================
// Remote Paths
// =============================================================================

const (
	// BootstrapOSDDir is where the bootstrap-osd keyring lives on a target host.
	BootstrapOSDDir = "/var/lib/ceph/bootstrap-osd"

	// ConfDir is where the cluster config is installed on a target host.
	ConfDir = "/etc/ceph"

	// OSDDataDir is the parent directory of every OSD's data directory.
	OSDDataDir = "/var/lib/ceph/osd"

	// DmcryptKeyDir is the default directory for dm-crypt keys.
	DmcryptKeyDir = "/etc/ceph/dmcrypt-keys"

	// SystemdRunDir exists only on hosts booted with systemd.
	SystemdRunDir = "/run/systemd/system"

	// UpstartInitctl exists only on hosts running upstart.
	UpstartInitctl = "/sbin/initctl"

	// OSRelease is read to identify the distro.
	OSRelease = "/etc/os-release"
)

// ExecutablePaths is the search path used when resolving tools on a host.
var ExecutablePaths = []string{
	"/usr/local/bin",
	"/bin",
	"/usr/bin",
	"/usr/local/sbin",
	"/usr/sbin",
	"/sbin",
}

// =============================================================================
// Filesystem Defaults
// =============================================================================

const (
	// FSType is the default filesystem for filestore OSDs.
	FSType = "xfs"
)

// SupportedFSTypes lists the filesystems accepted for --fs-type.
var SupportedFSTypes = []string{"xfs", "btrfs"}

// =============================================================================
// SSH Defaults
// =============================================================================

const (
	// SSHPort is the default SSH port.
	SSHPort = 22

	// SSHUsername is the default SSH username.
	SSHUsername = "root"

	// SSHConnectTimeout bounds TCP connect and handshake.
	SSHConnectTimeout = 10 * time.Second
)

// SFTPServerPaths are the locations tried for the sftp-server binary started
// under sudo for non-root users, Debian and RHEL families first.
var SFTPServerPaths = []string{
	"/usr/lib/openssh/sftp-server",
	"/usr/libexec/openssh/sftp-server",
	"/usr/lib/ssh/sftp-server",
	"/usr/libexec/sftp-server",
}

// =============================================================================
// Output
// =============================================================================

const (
	// SeparatorWidth is the width of the dashed lines around each OSD block.
	SeparatorWidth = 40
)

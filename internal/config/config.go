package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"osdctl/internal/defaults"
)

// Config represents the osdctl configuration assembled from file, environment
// and command-line flags.
type Config struct {
	Cluster        string                `mapstructure:"cluster"`         // Cluster name (default: "ceph")
	WorkDir        string                `mapstructure:"workdir"`         // Directory holding <cluster>.conf and gathered keyrings (default: ".")
	OverwriteConf  bool                  `mapstructure:"overwrite_conf"`  // Replace a differing /etc/ceph/<cluster>.conf on hosts
	SettleInterval time.Duration         `mapstructure:"settle_interval"` // Wait between prepare/activate and the status check (default: 5s)
	StatusTimeout  time.Duration         `mapstructure:"status_timeout"`  // Bound on the status check, 0 disables (default: 30s)
	SSH            SSHConfig             `mapstructure:"ssh"`
	Hosts          map[string]HostConfig `mapstructure:"hosts"` // Per-host overrides keyed by lower-cased host name
	Logging        LoggingConfig         `mapstructure:"logging"`

	ConfigPath string `mapstructure:"-"` // Path of the config file that was read, if any
}

// SSHConfig holds the SSH settings shared by every host.
type SSHConfig struct {
	Username       string        `mapstructure:"username"`         // SSH username (default: "root")
	Port           int           `mapstructure:"port"`             // SSH port (default: 22)
	Password       string        `mapstructure:"password"`         // SSH password (optional, use private_key_path instead)
	PrivateKeyPath string        `mapstructure:"private_key_path"` // Path to SSH private key
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`  // TCP connect and handshake bound (default: 10s)
	SFTPServer     string        `mapstructure:"sftp_server"`      // sftp-server started under sudo for non-root users (default: found on the host)
}

// HostConfig overrides SSHConfig for a single host.
type HostConfig struct {
	Address        string        `mapstructure:"address"` // Dial address when the host name does not resolve
	Username       string        `mapstructure:"username"`
	Port           int           `mapstructure:"port"`
	Password       string        `mapstructure:"password"`
	PrivateKeyPath string        `mapstructure:"private_key_path"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	SFTPServer     string        `mapstructure:"sftp_server"`
}

// LoggingConfig controls log verbosity and the optional log file.
type LoggingConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error (default: "info")
	File  string `mapstructure:"file"`  // Append log lines to this file as well as stderr
}

// flagKeys maps persistent command-line flags to config keys.
var flagKeys = map[string]string{
	"cluster":        "cluster",
	"workdir":        "workdir",
	"username":       "ssh.username",
	"overwrite-conf": "overwrite_conf",
	"log-level":      "logging.level",
	"log-file":       "logging.file",
}

// Load loads the configuration. configPath may be empty, in which case
// osdctl.yaml is looked up in the current directory and /etc/osdctl; a missing
// default file is not an error. Flags that were set on the command line take
// precedence over environment (OSDCTL_*) and file values.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("osdctl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/osdctl")
	}

	setDefaults(v)

	v.SetEnvPrefix("OSDCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if used := v.ConfigFileUsed(); used != "" {
		if abs, err := filepath.Abs(used); err == nil {
			cfg.ConfigPath = abs
		} else {
			cfg.ConfigPath = used
		}
	}

	return &cfg, nil
}

// setDefaults registers every key so environment overrides apply even when
// no config file mentions them.
func setDefaults(v *viper.Viper) {
	v.SetDefault("cluster", defaults.ClusterName)
	v.SetDefault("workdir", defaults.WorkDir)
	v.SetDefault("overwrite_conf", false)
	v.SetDefault("settle_interval", defaults.SettleInterval)
	v.SetDefault("status_timeout", defaults.StatusTimeout)

	v.SetDefault("ssh.username", defaults.SSHUsername)
	v.SetDefault("ssh.port", defaults.SSHPort)
	v.SetDefault("ssh.password", "")
	v.SetDefault("ssh.private_key_path", "")
	v.SetDefault("ssh.connect_timeout", defaults.SSHConnectTimeout)
	v.SetDefault("ssh.sftp_server", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Cluster == "" {
		return fmt.Errorf("cluster name is required")
	}
	if strings.ContainsAny(c.Cluster, "/ \t") {
		return fmt.Errorf("cluster name %q must not contain '/' or whitespace", c.Cluster)
	}
	if c.SettleInterval < 0 {
		return fmt.Errorf("settle_interval must not be negative")
	}
	if c.StatusTimeout < 0 {
		return fmt.Errorf("status_timeout must not be negative")
	}
	if c.SSH.Port < 0 || c.SSH.Port > 65535 {
		return fmt.Errorf("ssh.port %d is out of range", c.SSH.Port)
	}
	for name, h := range c.Hosts {
		if h.Port < 0 || h.Port > 65535 {
			return fmt.Errorf("hosts.%s.port %d is out of range", name, h.Port)
		}
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}
	return nil
}

// ApplyDefaults fills zero values with defaults.
func (c *Config) ApplyDefaults() {
	if c.Cluster == "" {
		c.Cluster = defaults.ClusterName
	}
	if c.WorkDir == "" {
		c.WorkDir = defaults.WorkDir
	}
	if c.SSH.Username == "" {
		c.SSH.Username = defaults.SSHUsername
	}
	if c.SSH.Port == 0 {
		c.SSH.Port = defaults.SSHPort
	}
	if c.SSH.ConnectTimeout == 0 {
		c.SSH.ConnectTimeout = defaults.SSHConnectTimeout
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Package main is the osdctl command line.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"osdctl/internal/config"
	"osdctl/internal/deployer"
	"osdctl/internal/logging"
	"osdctl/internal/osd"
	"osdctl/internal/ssh"
)

type cmdGlobal struct {
	flagConfig        string
	flagCluster       string
	flagWorkDir       string
	flagUsername      string
	flagOverwriteConf bool
	flagLogLevel      string
	flagLogFile       string

	cfg *config.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), unix.SIGINT, unix.SIGTERM)

	err := newApp().ExecuteContext(ctx)
	stop()

	if err != nil {
		logging.L().Error(err.Error())
		logging.Sync()
		os.Exit(1)
	}
	logging.Sync()
}

func newApp() *cobra.Command {
	globalCmd := cmdGlobal{}

	app := &cobra.Command{}
	app.Use = "osdctl"
	app.Short = "Deploy and inspect Ceph OSDs over SSH"
	app.Long = formatSection("Description",
		`Deploy and inspect Ceph OSDs over SSH

Targets are given as HOST[:DATA[:JOURNAL]]. The cluster config and the
bootstrap-osd keyring are read from the working directory.
`)
	app.SilenceUsage = true
	app.SilenceErrors = true
	app.CompletionOptions = cobra.CompletionOptions{DisableDefaultCmd: true}
	app.PersistentPreRunE = globalCmd.preRun

	app.PersistentFlags().StringVar(&globalCmd.flagConfig, "config", "", "Path to the osdctl config file")
	app.PersistentFlags().StringVar(&globalCmd.flagCluster, "cluster", "", "Name of the cluster")
	app.PersistentFlags().StringVar(&globalCmd.flagWorkDir, "workdir", "", "Directory holding the cluster config and keyrings")
	app.PersistentFlags().StringVar(&globalCmd.flagUsername, "username", "", "SSH user on the target hosts")
	app.PersistentFlags().BoolVar(&globalCmd.flagOverwriteConf, "overwrite-conf", false, "Overwrite an existing conf file on remote hosts")
	app.PersistentFlags().StringVar(&globalCmd.flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	app.PersistentFlags().StringVar(&globalCmd.flagLogFile, "log-file", "", "Also append log lines to this file")

	osdCmd := cmdOSD{global: &globalCmd}
	app.AddCommand(osdCmd.command())

	diskCmd := cmdDisk{global: &globalCmd}
	app.AddCommand(diskCmd.command())

	return app
}

func (g *cmdGlobal) preRun(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(g.flagConfig, cmd.Flags())
	if err != nil {
		return err
	}

	err = logging.Init(logging.Options{Level: cfg.Logging.Level, File: cfg.Logging.File})
	if err != nil {
		return err
	}

	if cfg.ConfigPath != "" {
		logging.L().Debugw("loaded config", "path", cfg.ConfigPath)
	}

	g.cfg = cfg

	return nil
}

// CheckArgs validates the number of positional arguments and prints help when
// none were given.
func (g *cmdGlobal) CheckArgs(cmd *cobra.Command, args []string, minArgs int, maxArgs int) (bool, error) {
	if len(args) < minArgs || (maxArgs != -1 && len(args) > maxArgs) {
		_ = cmd.Help()

		if len(args) == 0 {
			return true, nil
		}

		return true, fmt.Errorf("invalid number of arguments")
	}

	return false, nil
}

func (g *cmdGlobal) deployer() *deployer.Deployer {
	return deployer.New(newDialer(g.cfg), deployer.Options{
		Cluster:        g.cfg.Cluster,
		WorkDir:        g.cfg.WorkDir,
		OverwriteConf:  g.cfg.OverwriteConf,
		SettleInterval: g.cfg.SettleInterval,
		StatusTimeout:  g.cfg.StatusTimeout,
	})
}

func newDialer(cfg *config.Config) *ssh.Dialer {
	d := &ssh.Dialer{
		Defaults: ssh.AuthConfig{
			Username:       cfg.SSH.Username,
			Port:           cfg.SSH.Port,
			Password:       cfg.SSH.Password,
			PrivateKeyPath: cfg.SSH.PrivateKeyPath,
			ConnectTimeout: cfg.SSH.ConnectTimeout,
			SFTPServer:     cfg.SSH.SFTPServer,
		},
		Overrides: make(map[string]ssh.AuthConfig, len(cfg.Hosts)),
	}

	if d.Defaults.Password == "" && d.Defaults.PrivateKeyPath == "" {
		d.Defaults.PrivateKeyPath = defaultKeyPath()
	}

	for name, h := range cfg.Hosts {
		d.Overrides[strings.ToLower(name)] = ssh.AuthConfig{
			Address:        h.Address,
			Username:       h.Username,
			Port:           h.Port,
			Password:       h.Password,
			PrivateKeyPath: h.PrivateKeyPath,
			ConnectTimeout: h.ConnectTimeout,
			SFTPServer:     h.SFTPServer,
		}
	}

	return d
}

// defaultKeyPath returns the first user identity file that exists.
func defaultKeyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	for _, name := range []string{"id_ed25519", "id_ecdsa", "id_rsa"} {
		p := filepath.Join(home, ".ssh", name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

// parseTargets parses HOST[:DATA[:JOURNAL]] arguments, filling a missing
// data or journal from the --data and --journal flags.
func parseTargets(args []string, data string, journal string) ([]osd.TargetSpec, error) {
	targets := make([]osd.TargetSpec, 0, len(args))
	for _, arg := range args {
		t, err := osd.ParseTarget(arg)
		if err != nil {
			return nil, err
		}

		if t.Data == "" {
			t.Data = data
		}

		if t.Journal == "" {
			t.Journal = journal
		}

		targets = append(targets, t)
	}

	return targets, nil
}

func formatSection(header string, content string) string {
	out := strings.Builder{}

	if header != "" {
		out.WriteString(header + ":\n")
	}

	for _, line := range strings.Split(strings.TrimSpace(content), "\n") {
		if line == "" {
			out.WriteString("\n")

			continue
		}

		out.WriteString("  " + line + "\n")
	}

	return strings.TrimSuffix(out.String(), "\n")
}

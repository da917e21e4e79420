package main

import (
	"github.com/spf13/cobra"
)

type cmdDisk struct {
	global *cmdGlobal
}

func (c *cmdDisk) command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = "disk"
	cmd.Short = "Manage disks on OSD hosts"
	cmd.Long = formatSection("Description",
		`Manage disks on OSD hosts
`)

	// Workaround for subcommand usage errors. See: https://github.com/spf13/cobra/issues/706
	cmd.Args = cobra.NoArgs
	cmd.Run = func(cmd *cobra.Command, _ []string) { _ = cmd.Usage() }

	prepareCmd := cmdPrepare{global: c.global}
	cmd.AddCommand(prepareCmd.command())

	createCmd := cmdPrepare{global: c.global, create: true}
	cmd.AddCommand(createCmd.command())

	activateCmd := cmdActivate{global: c.global}
	cmd.AddCommand(activateCmd.command())

	zapCmd := cmdDiskZap{global: c.global}
	cmd.AddCommand(zapCmd.command())

	listCmd := cmdDiskList{global: c.global}
	cmd.AddCommand(listCmd.command())

	return cmd
}

type cmdDiskZap struct {
	global *cmdGlobal
}

func (c *cmdDiskZap) command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = "zap <host>:<disk>..."
	cmd.Short = "Zap disks"
	cmd.Long = formatSection("Description",
		`Zap disks

Destroys the partition table and content of each disk. Every argument must
name both the host and the disk.
`)

	cmd.RunE = c.run

	return cmd
}

func (c *cmdDiskZap) run(cmd *cobra.Command, args []string) error {
	exit, err := c.global.CheckArgs(cmd, args, 1, -1)
	if exit {
		return err
	}

	targets, err := parseTargets(args, "", "")
	if err != nil {
		return err
	}

	_, err = c.global.deployer().Zap(cmd.Context(), targets)

	return err
}

type cmdDiskList struct {
	global *cmdGlobal
}

func (c *cmdDiskList) command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = "list <host>..."
	cmd.Short = "List disks on hosts"
	cmd.Long = formatSection("Description",
		`List disks on hosts

Runs the disk listing on each host. The output is logged per host.
`)

	cmd.RunE = c.run

	return cmd
}

func (c *cmdDiskList) run(cmd *cobra.Command, args []string) error {
	exit, err := c.global.CheckArgs(cmd, args, 1, -1)
	if exit {
		return err
	}

	targets, err := parseTargets(args, "", "")
	if err != nil {
		return err
	}

	_, err = c.global.deployer().DiskList(cmd.Context(), targets)

	return err
}

package main

import (
	"github.com/spf13/cobra"

	"osdctl/internal/osd"
)

type cmdOSD struct {
	global *cmdGlobal
}

func (c *cmdOSD) command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = "osd"
	cmd.Short = "Prepare, activate and list OSDs"
	cmd.Long = formatSection("Description",
		`Prepare, activate and list OSDs
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

	listCmd := cmdOSDList{global: c.global}
	cmd.AddCommand(listCmd.command())

	return cmd
}

type cmdOSDList struct {
	global *cmdGlobal

	flagMon     string
	flagSummary bool
}

func (c *cmdOSDList) command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = "list <host>..."
	cmd.Short = "List the OSDs on hosts"
	cmd.Long = formatSection("Description",
		`List the OSDs on hosts

Combines the OSD directories found on each host with the cluster topology
reported by a monitor. The monitor defaults to the first entry of
mon_initial_members in the cluster config.
`)

	cmd.Flags().StringVar(&c.flagMon, "mon", "", "Monitor host to query for the OSD tree")
	cmd.Flags().BoolVar(&c.flagSummary, "summary", false, "Print one table row per OSD")

	cmd.RunE = c.run

	return cmd
}

func (c *cmdOSDList) run(cmd *cobra.Command, args []string) error {
	exit, err := c.global.CheckArgs(cmd, args, 1, -1)
	if exit {
		return err
	}

	targets, err := parseTargets(args, "", "")
	if err != nil {
		return err
	}

	records, _, listErr := c.global.deployer().List(cmd.Context(), c.flagMon, targets)

	// Whatever was collected is printed even when some hosts failed.
	if c.flagSummary {
		err = osd.WriteSummary(cmd.OutOrStdout(), records)
	} else {
		err = osd.WriteRecords(cmd.OutOrStdout(), records)
	}

	if listErr != nil {
		return listErr
	}

	return err
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"osdctl/internal/defaults"
	"osdctl/internal/osd"
)

type cmdPrepare struct {
	global *cmdGlobal
	create bool

	flagData          string
	flagJournal       string
	flagStore         string
	flagFilestore     bool
	flagBluestore     bool
	flagZapDisk       bool
	flagFSType        string
	flagDmcrypt       bool
	flagDmcryptKeyDir string
	flagBlockDB       string
	flagBlockWAL      string
}

func (c *cmdPrepare) command() *cobra.Command {
	cmd := &cobra.Command{}
	if c.create {
		cmd.Use = "create <host>[:<data>[:<journal>]]..."
		cmd.Short = "Prepare and activate OSDs"
		cmd.Long = formatSection("Description",
			`Prepare and activate OSDs

Pushes the cluster config and the bootstrap-osd keyring to each host, then
creates one OSD per target with ceph-volume.
`)
	} else {
		cmd.Use = "prepare <host>[:<data>[:<journal>]]..."
		cmd.Short = "Prepare OSDs"
		cmd.Long = formatSection("Description",
			`Prepare OSDs

Pushes the cluster config and the bootstrap-osd keyring to each host, then
prepares one OSD per target with ceph-volume. Prepared OSDs still need to be
activated.
`)
	}

	cmd.Flags().StringVar(&c.flagData, "data", "", "Data device for targets that do not name one")
	cmd.Flags().StringVar(&c.flagJournal, "journal", "", "Journal device for filestore targets that do not name one")
	cmd.Flags().StringVar(&c.flagStore, "store", "bluestore", "Objectstore backend (bluestore or filestore)")
	cmd.Flags().BoolVar(&c.flagFilestore, "filestore", false, "Use the filestore objectstore")
	cmd.Flags().BoolVar(&c.flagBluestore, "bluestore", false, "Use the bluestore objectstore")
	cmd.Flags().BoolVar(&c.flagZapDisk, "zap-disk", false, "Destroy existing partition table and content")
	cmd.Flags().StringVar(&c.flagFSType, "fs-type", defaults.FSType, "Filesystem to use to format the disk")
	cmd.Flags().BoolVar(&c.flagDmcrypt, "dmcrypt", false, "Use dm-crypt on the disk")
	cmd.Flags().StringVar(&c.flagDmcryptKeyDir, "dmcrypt-key-dir", defaults.DmcryptKeyDir, "Directory where dm-crypt keys are stored")
	cmd.Flags().StringVar(&c.flagBlockDB, "block-db", "", "Bluestore block.db path")
	cmd.Flags().StringVar(&c.flagBlockWAL, "block-wal", "", "Bluestore block.wal path")
	cmd.MarkFlagsMutuallyExclusive("store", "filestore", "bluestore")

	cmd.RunE = c.run

	return cmd
}

// request builds the options shared by every target.
func (c *cmdPrepare) request() (osd.PrepareRequest, error) {
	if c.flagFilestore && c.flagBluestore {
		return osd.PrepareRequest{}, fmt.Errorf("%w: --filestore and --bluestore are mutually exclusive", osd.ErrConfig)
	}

	name := c.flagStore
	if c.flagFilestore {
		name = "filestore"
	} else if c.flagBluestore {
		name = "bluestore"
	}

	store, err := osd.ParseStoreType(name)
	if err != nil {
		return osd.PrepareRequest{}, err
	}

	return osd.PrepareRequest{
		Zap:           c.flagZapDisk,
		FSType:        c.flagFSType,
		Dmcrypt:       c.flagDmcrypt,
		DmcryptKeyDir: c.flagDmcryptKeyDir,
		Store:         store,
		BlockWAL:      c.flagBlockWAL,
		BlockDB:       c.flagBlockDB,
		Create:        c.create,
	}, nil
}

func (c *cmdPrepare) run(cmd *cobra.Command, args []string) error {
	exit, err := c.global.CheckArgs(cmd, args, 1, -1)
	if exit {
		return err
	}

	tmpl, err := c.request()
	if err != nil {
		return err
	}

	targets, err := parseTargets(args, c.flagData, c.flagJournal)
	if err != nil {
		return err
	}

	_, err = c.global.deployer().Prepare(cmd.Context(), targets, tmpl)

	return err
}

type cmdActivate struct {
	global *cmdGlobal
}

func (c *cmdActivate) command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = "activate <host>:<disk>..."
	cmd.Short = "Activate prepared OSDs"
	cmd.Long = formatSection("Description",
		`Activate prepared OSDs

Mounts and starts each prepared OSD, then enables the ceph service so the
OSDs come back after a reboot.
`)

	cmd.RunE = c.run

	return cmd
}

func (c *cmdActivate) run(cmd *cobra.Command, args []string) error {
	exit, err := c.global.CheckArgs(cmd, args, 1, -1)
	if exit {
		return err
	}

	targets, err := parseTargets(args, "", "")
	if err != nil {
		return err
	}

	_, err = c.global.deployer().Activate(cmd.Context(), targets)

	return err
}

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/karalabe/hid"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/motion/adapter"
	"github.com/mklimuk/motion/cmd/motion/console"
	"github.com/mklimuk/motion/snsctx"
)

var adaptersCmd = cli.Command{
	Name:  "adapters",
	Usage: "USB to I2C adapters",
	Subcommands: cli.Commands{
		&adaptersLsCmd,
		&adaptersStatusCmd,
		&adaptersReleaseCmd,
	},
}

var adaptersLsCmd = cli.Command{
	Name:  "ls",
	Usage: "list plugged MCP2221 adapters",
	Action: func(c *cli.Context) error {
		devices := hid.Enumerate(adapter.VendorID, adapter.ProductID)
		w := tabwriter.NewWriter(os.Stdout, 24, 0, 1, ' ', 0)
		_, _ = fmt.Fprintf(w, "ID\tPATH\tSERIAL\tMANUFACTURER\tPRODUCT\n")
		for i, dev := range devices {
			_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", i, dev.Path, dev.Serial, dev.Manufacturer, dev.Product)
		}
		_ = w.Flush()
		return nil
	},
}

var adapterFlag = &cli.IntFlag{
	Name:    "id",
	Aliases: []string{"i"},
	Usage:   "adapter id as listed by ls",
}

var adaptersStatusCmd = cli.Command{
	Name:  "status",
	Flags: []cli.Flag{adapterFlag},
	Action: func(c *cli.Context) error {
		a := adapter.NewMCP2221(adapter.WithDevice(c.Int("id")))
		ctx := snsctx.SetVerbose(c.Context, c.Bool("verbose"))
		status, err := a.Status(ctx)
		if err != nil {
			return console.Exit(1, "adapter communication error: %s", console.Red(err))
		}
		return encodeStatus(status)
	},
}

var adaptersReleaseCmd = cli.Command{
	Name:  "release",
	Usage: "cancel a transfer hanging on the adapter",
	Flags: []cli.Flag{adapterFlag},
	Action: func(c *cli.Context) error {
		a := adapter.NewMCP2221(adapter.WithDevice(c.Int("id")))
		ctx := snsctx.SetVerbose(c.Context, c.Bool("verbose"))
		status, err := a.ReleaseBus(ctx)
		if err != nil {
			return console.Exit(1, "adapter communication error: %s", console.Red(err))
		}
		return encodeStatus(status)
	},
}

func encodeStatus(status *adapter.Status) error {
	enc := yaml.NewEncoder(os.Stdout)
	defer enc.Close()
	err := enc.Encode(status)
	if err != nil {
		return console.Exit(1, "encoding error: %s", console.Red(err))
	}
	return nil
}

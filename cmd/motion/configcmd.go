package main

import (
	"os"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/motion/cmd/motion/console"
	"github.com/mklimuk/motion/config"
)

var configCmd = cli.Command{
	Name:  "config",
	Usage: "configuration file helpers",
	Subcommands: cli.Commands{
		{
			Name:      "init",
			Usage:     "write the default configuration",
			ArgsUsage: "<path>",
			Action: func(c *cli.Context) error {
				if c.NArg() != 1 {
					return console.Exit(1, "usage: motion config init <path>")
				}
				err := config.Default().Write(c.Args().First())
				if err != nil {
					return console.Exit(1, "%s", console.Red(err))
				}
				return nil
			},
		},
		{
			Name:  "show",
			Usage: "print the effective configuration",
			Action: func(c *cli.Context) error {
				cfg, err := loadConfig(c)
				if err != nil {
					return console.Exit(1, "%s", console.Red(err))
				}
				enc := yaml.NewEncoder(os.Stdout)
				defer enc.Close()
				return enc.Encode(cfg)
			},
		},
	},
}

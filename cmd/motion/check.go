package main

import (
	"errors"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/motion/acquisition"
	"github.com/mklimuk/motion/cmd/motion/console"
)

var checkCmd = cli.Command{
	Name:  "check",
	Usage: "run the identity checks and configure the sensors",
	Action: func(c *cli.Context) error {
		r, err := newRig(c)
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		defer r.Close()
		initErr := r.orch.Initialize(r.ctx)
		rounds := r.cfg.Acquisition.IdentityRounds
		id := r.orch.Identified()
		console.Printf("accelerometer: %s\n", console.Tally(id.Accelerometer, rounds, 1))
		console.Printf("magnetometer:  %s\n", console.Tally(id.Magnetometer, rounds, 1))
		console.Printf("gyroscope:     %s\n", console.Tally(id.Gyroscope, rounds, 1))
		console.Printf("total:         %s\n", console.Tally(id.Total(), 3*rounds, r.cfg.Acquisition.MinIdentified))
		if errors.Is(initErr, acquisition.ErrInitialization) {
			return console.Exit(2, "%s", console.Red(initErr))
		}
		if initErr != nil {
			return console.Exit(1, "%s", console.Red(initErr))
		}
		console.Printf("sensors %s\n", console.Green("ready"))
		return nil
	},
}

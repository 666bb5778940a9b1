package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/motion/cmd/motion/console"
)

const shutdownGrace = 2 * time.Second

var runCmd = cli.Command{
	Name:  "run",
	Usage: "initialize the sensors and log samples until interrupted",
	Flags: []cli.Flag{
		&cli.DurationFlag{
			Name:    "period",
			Aliases: []string{"p"},
			Usage:   "acquisition period, overrides the config file",
		},
		&cli.DurationFlag{
			Name:    "temperature",
			Aliases: []string{"t"},
			Usage:   "temperature read interval, overrides the config file",
		},
	},
	Action: func(c *cli.Context) error {
		r, err := newRig(c)
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		defer r.Close()
		period := r.cfg.Acquisition.Period
		if c.IsSet("period") {
			period = c.Duration("period")
		}
		tempInterval := r.cfg.Acquisition.TemperatureInterval
		if c.IsSet("temperature") {
			tempInterval = c.Duration("temperature")
		}

		ctx, stop := signal.NotifyContext(r.ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		err = r.orch.Initialize(ctx)
		if err != nil {
			return console.Exit(2, "%s", console.Red(err))
		}
		err = r.orch.StartPeriodicAcquisition(period)
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		if tempInterval > 0 {
			task := r.sched.CreateTask("temp request", func(uint32) { r.orch.RequestTemperatureRead() })
			r.sched.StartTimer(task, 0, tempInterval)
		}
		console.PInfof(console.PictoCompass, "acquiring every %s", console.White(period))

		err = r.sched.Loop(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			return console.Exit(1, "%s", console.Red(err))
		}
		// let the relax sequence reach the chips
		r.orch.StopAcquisition()
		grace, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		_ = r.sched.Loop(grace)
		console.PInfof(console.PictoFinish, "stopped in state %s", console.White(r.orch.State()))
		return nil
	},
}

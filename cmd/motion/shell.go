package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/motion/cmd/motion/console"
)

var shellCmd = cli.Command{
	Name:  "shell",
	Usage: "interactive console driving the acquisition",
	Action: func(c *cli.Context) error {
		r, err := newRig(c)
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		defer r.Close()
		err = r.orch.Initialize(r.ctx)
		if err != nil {
			return console.Exit(2, "%s", console.Red(err))
		}
		ctx, cancel := context.WithCancel(r.ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = r.sched.Loop(ctx)
		}()
		defer func() {
			r.orch.StopAcquisition()
			// give the relax a chance before the loop goes away
			time.Sleep(100 * time.Millisecond)
			cancel()
			<-done
		}()

		sh := console.NewShell("motion> ")
		sh.Handle("start", "start [period] - start periodic acquisition", func(args []string) error {
			period := r.cfg.Acquisition.Period
			if len(args) > 0 {
				p, err := time.ParseDuration(args[0])
				if err != nil {
					return fmt.Errorf("invalid period: %w", err)
				}
				period = p
			}
			err := r.orch.StartPeriodicAcquisition(period)
			if err != nil {
				return err
			}
			console.PInfof(console.PictoCompass, "acquiring every %s", console.White(period))
			return nil
		})
		sh.Handle("stop", "stop periodic acquisition and relax the chips", func([]string) error {
			r.orch.StopAcquisition()
			console.PInfof(console.PictoStop, "acquisition stopped")
			return nil
		})
		sh.Handle("temp", "request one temperature read", func([]string) error {
			r.orch.RequestTemperatureRead()
			console.PInfof(console.PictoThermometer, "temperature read requested")
			return nil
		})
		sh.Handle("status", "request one accelerometer status read", func([]string) error {
			r.orch.HandleStatusInterrupt()
			console.PInfof(console.PictoPin, "status read requested")
			return nil
		})
		sh.Handle("state", "show which sequence owns the bus", func([]string) error {
			console.Printf("%s\n", console.White(r.orch.State()))
			return nil
		})
		sh.Handle("quit", "leave the shell", func([]string) error {
			return console.ErrQuit
		})
		return sh.Run()
	},
}

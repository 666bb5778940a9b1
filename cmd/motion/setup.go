package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/motion"
	"github.com/mklimuk/motion/accel"
	"github.com/mklimuk/motion/acquisition"
	"github.com/mklimuk/motion/adapter"
	"github.com/mklimuk/motion/config"
	"github.com/mklimuk/motion/gpio"
	"github.com/mklimuk/motion/gyro"
	"github.com/mklimuk/motion/i2c"
	"github.com/mklimuk/motion/magnetometer"
	"github.com/mklimuk/motion/snsctx"
	"github.com/mklimuk/motion/taskq"
)

func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// rig is everything a command needs to drive the sensors.
type rig struct {
	cfg   *config.Config
	ctx   context.Context
	sched *taskq.Scheduler
	orch  *acquisition.Orchestrator
	close []func() error
}

func (r *rig) Close() {
	for i := len(r.close) - 1; i >= 0; i-- {
		err := r.close[i]()
		if err != nil {
			slog.Warn("close error", "error", err)
		}
	}
}

func openBus(cfg config.Bus, logger *slog.Logger) (motion.I2CBus, func() error, error) {
	switch cfg.Backend {
	case config.BackendMCP2221:
		ignoreClock(cfg, logger)
		return adapter.NewMCP2221(adapter.WithDevice(cfg.Adapter), adapter.WithLogger(logger)), func() error { return nil }, nil
	case config.BackendNanoPi:
		ignoreClock(cfg, logger)
		bus, err := i2c.NewNanoPiBus(cfg.Number)
		if err != nil {
			return nil, nil, err
		}
		return bus, bus.Close, nil
	default:
		bus, err := i2c.NewGenericBus(cfg.Device, logger)
		if err != nil {
			return nil, nil, err
		}
		err = bus.SetSpeed(cfg.ClockHz)
		if err != nil {
			_ = bus.Close()
			return nil, nil, err
		}
		return bus, bus.Close, nil
	}
}

// ignoreClock notes that only the generic backend can change the bus speed.
func ignoreClock(cfg config.Bus, logger *slog.Logger) {
	if cfg.ClockHz != 0 {
		logger.Debug("bus clock setting ignored", "backend", cfg.Backend, "clock_hz", cfg.ClockHz)
	}
}

func newRig(c *cli.Context) (*rig, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, fmt.Errorf("could not load config: %w", err)
	}
	r := &rig{
		cfg: cfg,
		ctx: snsctx.SetVerbose(context.Background(), c.Bool("verbose")),
	}
	bus, closeBus, err := openBus(cfg.Bus, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("adapter initialization error: %w", err)
	}
	r.close = append(r.close, closeBus)

	opts := []acquisition.Option{
		acquisition.WithLogger(slog.Default().With("component", "sensor")),
		acquisition.WithIdentity(cfg.Acquisition.IdentityRounds, cfg.Acquisition.MinIdentified),
	}
	if cfg.Interrupt.Pin != "" {
		irq, err := gpio.Open(cfg.Interrupt.Pin)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("interrupt pin error: %w", err)
		}
		r.close = append(r.close, irq.Close)
		opts = append(opts, acquisition.WithInterrupt(irq))
	}
	r.sched = taskq.New()
	r.orch = acquisition.New(r.sched,
		accel.NewADXL345(bus, accel.WithAddress(cfg.Sensors.Accelerometer)),
		magnetometer.NewHMC5883L(bus, magnetometer.WithAddress(cfg.Sensors.Magnetometer)),
		gyro.NewITG3200(bus, gyro.WithAD0(cfg.Sensors.GyroscopeAD0)),
		opts...,
	)
	return r, nil
}

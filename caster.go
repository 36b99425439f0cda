// Package ntrip wires the registry, reactor, and monitor packages into a
// single running caster. It provides nothing but composition and
// lifecycle - the handshake/fan-out state machine lives in reactor, the
// mount-point table in registry.
package ntrip

import (
	"github.com/sirupsen/logrus"

	"github.com/ntripcaster/caster/monitor"
	"github.com/ntripcaster/caster/reactor"
	"github.com/ntripcaster/caster/registry"
)

// Caster composes the NTRIP listener and, optionally, a read-only
// monitoring HTTP server over the same registry.
type Caster struct {
	Registry *registry.Registry
	Reactor  *reactor.Reactor
	Monitor  *monitor.Server

	logger logrus.FieldLogger
}

// NewCaster constructs a Caster identifying itself as agent in the
// source-table Server header. monitorAddr may be empty to run without the
// status API.
func NewCaster(agent, monitorAddr string, logger logrus.FieldLogger) *Caster {
	reg := registry.New()
	re := reactor.New(reg, agent, logger)

	var mon *monitor.Server
	if monitorAddr != "" {
		mon = monitor.NewServer(monitorAddr, reg, agent, logger)
	}

	return &Caster{
		Registry: reg,
		Reactor:  re,
		Monitor:  mon,
		logger:   logger,
	}
}

// ListenAndServe binds addr for the NTRIP listener and, if configured,
// starts the monitor server. It returns once both are listening; callers
// should call Stop to shut down.
func (c *Caster) ListenAndServe(addr string) error {
	if err := c.Reactor.Start(addr); err != nil {
		return err
	}

	if c.Monitor != nil {
		if err := c.Monitor.Start(); err != nil {
			c.Reactor.Stop()
			return err
		}
		c.logger.WithField("address", c.Monitor.BoundAddr().String()).Info("monitor listening")
	}

	return nil
}

// Stop shuts down the reactor and, if running, the monitor server.
func (c *Caster) Stop() {
	c.Reactor.Stop()
	if c.Monitor != nil {
		c.Monitor.Close()
	}
}

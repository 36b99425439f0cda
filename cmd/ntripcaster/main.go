package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	ntrip "github.com/ntripcaster/caster"
)

func main() {
	logger := logrus.StandardLogger()

	conf, err := Config(logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to read config")
	}

	agent := conf.GetString(ConfKeyAgent)
	listenAddr := conf.GetString(ConfKeyListenAddress)
	monitorAddr := conf.GetString(ConfKeyMonitorAddress)

	caster := ntrip.NewCaster(agent, monitorAddr, logger)

	if err := caster.ListenAndServe(listenAddr); err != nil {
		logger.WithError(err).Fatal("failed to start caster")
	}
	logger.WithField("address", listenAddr).Info("caster listening")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down")
	caster.Stop()
}

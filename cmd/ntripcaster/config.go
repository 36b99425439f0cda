package main

import (
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	ConfKeyListenAddress  string = "listen.address"
	ConfKeyMonitorAddress string = "monitor.address"
	ConfKeyAgent          string = "agent"
	ConfKeyLogLevel       string = "logging.debug"
)

// Config loads config.yaml from the working directory and watches it for
// changes, applying updates (currently just log level) without a restart.
func Config(logger *logrus.Logger) (*viper.Viper, error) {
	conf := viper.New()
	conf.SetConfigName("config")
	conf.SetConfigType("yaml")
	conf.AddConfigPath(".")

	conf.SetDefault(ConfKeyListenAddress, ":2101")
	conf.SetDefault(ConfKeyAgent, "ntripcaster")

	if err := conf.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	updateFromConfig(conf, logger)

	conf.OnConfigChange(func(event fsnotify.Event) {
		logger.WithField("file", event.Name).Info("config changed, reloading")
		updateFromConfig(conf, logger)
	})
	conf.WatchConfig()

	return conf, nil
}

func updateFromConfig(conf *viper.Viper, logger *logrus.Logger) {
	if conf.GetBool(ConfKeyLogLevel) {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}
}

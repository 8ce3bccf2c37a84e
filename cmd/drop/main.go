package main

import (
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/drophost/drop"
	"github.com/drophost/drop/cmd/drop/config"
	"github.com/drophost/drop/internal/logger"
	"github.com/drophost/drop/internal/version"
)

func main() {
	var configFile string
	if len(os.Args) > 1 {
		configFile = os.Args[1]
	}
	config.Load(configFile)
	c := config.Get()
	if err := logger.Init(c.Logging.Conf); err != nil {
		log.WithError(err).Fatal("could not init logging")
	}
	log.WithField("version", version.VERSION).Info("Loaded Config")

	backs, err := config.LoadStorageBackends(c.Storage)
	if err != nil {
		log.Fatal(err)
	}

	entryCache, ttl := config.LoadCache(c.Caching)

	d, err := drop.NewDrop(
		c.Server, backs, drop.Options{
			Cache:        entryCache,
			CacheTTL:     ttl,
			IDLength:     c.IDs.Length,
			DisableViews: c.Views.Disabled,
		},
	)
	if err != nil {
		log.Fatal(err)
	}
	log.Info("Initialized service")

	d.Start()
}

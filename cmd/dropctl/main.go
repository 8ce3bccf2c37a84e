package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/drophost/drop/cmd/drop/config"
	"github.com/drophost/drop/internal/version"
	"github.com/drophost/drop/storage/model"
)

var rootCmd = &cobra.Command{
	Use:     "dropctl",
	Short:   "dropctl manages a drop instance",
	Long:    "dropctl manages users and configuration of a drop instance",
	Version: version.VERSION,
}

var configFile string
var users model.UsersStore

func loadBackends() error {
	config.Load(configFile)
	c := config.Get()
	backs, err := config.LoadStorageBackends(c.Storage)
	if err != nil {
		return err
	}
	users = backs.Users
	return nil
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "the config file to use")
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(configCmd)
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

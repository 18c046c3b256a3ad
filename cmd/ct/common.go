package main

import (
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/zulandar/caretaker/internal/config"
	"github.com/zulandar/caretaker/internal/db"
	"github.com/zulandar/caretaker/internal/logging"
	"github.com/zulandar/caretaker/internal/role"
	"gorm.io/gorm"
)

// connectFromConfig loads the config file and opens the configured store.
func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return cfg, gormDB, nil
}

// newLogger builds the process logger tagged with the site name.
func newLogger(cfg *config.Config) (*logrus.Entry, error) {
	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	return log.WithField("site", cfg.Site), nil
}

func addConfigFlag(cmd *cobra.Command, configPath *string) {
	cmd.Flags().StringVarP(configPath, "config", "c", defaultConfig, "path to Caretaker config file")
}

func parseID(s, what string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s %q", what, s)
	}
	return uint(id), nil
}

// actorFor resolves the --as user into an actor with capabilities.
func actorFor(gormDB *gorm.DB, userID uint) (role.Actor, error) {
	if userID == 0 {
		return role.Actor{}, fmt.Errorf("--as is required")
	}
	return role.ResolveActor(gormDB, userID)
}

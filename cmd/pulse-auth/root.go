package main

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/spf13/cobra"

	"github.com/pulseapp/pulse-auth/config"
)

// cli holds what every subcommand shares once flags are parsed.
type cli struct {
	configPath string
	cfg        *config.Config
	logger     *glog.BaseLogger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "pulse-auth",
		Short:         "Pulse account service",
		Long:          "Registration, HOC approval and login for Pulse.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version + " (" + commit + ")",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.load()
		},
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "path to a YAML config file")

	root.AddCommand(
		newServeCmd(c),
		newMigrateCmd(c),
		newHOCCmd(c),
		newConfigCmd(c),
	)

	return root
}

func (c *cli) load() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logger = newLogger(cfg.LogLevel)

	lgr := c.logger.GetLogger("config")
	for _, warning := range cfg.Warnings {
		lgr.Warn(warning)
	}
	return nil
}

// newLogger drops to trace for debug levels and keeps the logger default
// otherwise.
func newLogger(level string) *glog.BaseLogger {
	switch strings.ToLower(level) {
	case "trace", "debug":
		return glog.NewLogger(
			glog.WithLoggerTypePretty(),
			glog.WithLevel(glog.Trace),
			glog.WithName("pulse-auth"),
			glog.WithAddSource(false),
			glog.WithRichErrorHandler(goerrors.ToSlogAttributes),
		)
	}
	return glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithName("pulse-auth"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(goerrors.ToSlogAttributes),
	)
}

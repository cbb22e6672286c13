package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/cory-johannsen/craftplan/internal/bootstrap"
	"github.com/cory-johannsen/craftplan/internal/config"
	"github.com/cory-johannsen/craftplan/internal/observability"
	"github.com/cory-johannsen/craftplan/internal/planning/catalog"
)

// rootOptions carries state shared by every subcommand.
type rootOptions struct {
	configPath string
	v          *viper.Viper
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{v: config.NewViper()}
	opts.v.SetDefault("logging.level", "warn")
	opts.v.SetDefault("logging.format", "console")

	root := &cobra.Command{
		Use:          "craftplan",
		Short:        "Find the cheapest sequence of crafting actions that reaches a goal inventory",
		SilenceUsage: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "path to configuration file (optional)")
	pf.String("log-level", "warn", "log level: debug, info, warn, error")
	pf.String("heuristic", "caps", "heuristic: zero, caps or lua")
	pf.String("script-dir", "content/scripts", "Lua script tree for the lua heuristic")
	pf.Duration("limit", 30*time.Second, "search time limit per catalog; catalogs may declare their own")
	mustBind(opts.v, "logging.level", pf.Lookup("log-level"))
	mustBind(opts.v, "search.time_limit", pf.Lookup("limit"))
	mustBind(opts.v, "search.heuristic", pf.Lookup("heuristic"))
	mustBind(opts.v, "search.script_dir", pf.Lookup("script-dir"))

	root.AddCommand(
		newPlanCmd(opts),
		newBatchCmd(opts),
		newCatalogsCmd(opts),
	)
	return root
}

func mustBind(v *viper.Viper, key string, f *pflag.Flag) {
	if err := v.BindPFlag(key, f); err != nil {
		panic(fmt.Sprintf("binding --%s: %v", f.Name(), err))
	}
}

// load reads the configuration and builds the logger. Flags set on the
// command line override the file.
func (o *rootOptions) load() (config.Config, *zap.Logger, error) {
	if o.configPath != "" {
		o.v.SetConfigFile(o.configPath)
		if err := o.v.ReadInConfig(); err != nil {
			return config.Config{}, nil, fmt.Errorf("reading config file: %w", err)
		}
	}
	cfg, err := config.LoadFromViper(o.v)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("initializing logger: %w", err)
	}
	return cfg, logger, nil
}

// planning loads cfg and assembles the planning stack over catalogs.
func (o *rootOptions) planning(cmd *cobra.Command, catalogs func(config.Config, *zap.Logger) ([]*catalog.Catalog, error)) (*bootstrap.Planning, *zap.Logger, error) {
	cfg, logger, err := o.load()
	if err != nil {
		return nil, nil, err
	}
	cs, err := catalogs(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	p, err := bootstrap.NewPlanning(ctx, cfg, cs, logger)
	if err != nil {
		return nil, nil, err
	}
	return p, logger, nil
}

package main

import (
	"fmt"

	"sales-assistant/internal/common/config"
	"sales-assistant/internal/common/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type rootOptions struct {
	configFile string
	logLevel   string

	cfg    *config.Config
	zapLog *zap.Logger
	log    logger.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "sales-assistant",
		Short: "Natural-language front end for the sales automation backend",
		Long: `sales-assistant turns free-text requests ("register this project",
"write a follow-up to 김민수") into backend workflows. It classifies each
prompt into a single intent, checks the intent's parameters and runs the
matching workflow.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd.Name() == "repl" || cmd.Name() == "classify")
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if opts.zapLog != nil {
				_ = opts.zapLog.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default is ./configs/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")

	cmd.AddCommand(
		newServeCmd(opts),
		newWorkerCmd(opts),
		newReplCmd(opts),
		newClassifyCmd(opts),
	)
	return cmd
}

// load reads configuration and builds the logger. Interactive commands keep
// stdout for results, so their logs go to stderr.
func (o *rootOptions) load(interactive bool) error {
	var err error
	if o.configFile != "" {
		o.cfg, err = config.LoadFromFile(o.configFile)
	} else {
		o.cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if o.logLevel != "" {
		o.cfg.Logging.Level = o.logLevel
	}
	output := o.cfg.Logging.Output
	if interactive && (output == "" || output == "stdout") {
		output = "stderr"
	}

	o.zapLog, err = logger.New(o.cfg.Logging.Level, o.cfg.Logging.Format, output)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	o.log = logger.NewZapAdapter(o.zapLog)
	return nil
}

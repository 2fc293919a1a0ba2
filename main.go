package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/deidaraiorek/killdist/internal/config"
	"github.com/deidaraiorek/killdist/internal/logging"
	"github.com/deidaraiorek/killdist/internal/pipeline"
)

var version = "dev"

type runFlags struct {
	configPath string
	inputPath  string
	outputPath string
	sqlitePath string
}

// resolve loads the config file, if any, and applies flags the user set.
func (f *runFlags) resolve(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if cmd.Flags().Changed("input") {
		cfg.Input = f.inputPath
	}
	if cmd.Flags().Changed("output") {
		cfg.Output = f.outputPath
	}
	if cmd.Flags().Changed("sqlite") {
		cfg.SQLite.Path = f.sqlitePath
	}
	return cfg, cfg.Validate()
}

func newRootCmd() *cobra.Command {
	var flags runFlags

	rootCmd := &cobra.Command{
		Use:           "killdist",
		Short:         "pairwise item similarity between consecutive killmails",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "score every character's killmails and write the distance table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			logger, closeLog, err := logging.New(cfg.Log, out)
			if err != nil {
				return err
			}
			defer closeLog()

			logger.Info("Starting killdist",
				zap.String("version", version),
				zap.String("input", cfg.Input),
				zap.String("output", cfg.Output),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			p, err := pipeline.New(cfg, logger, out)
			if err != nil {
				return err
			}
			_, err = p.Run(ctx)
			return err
		},
	}
	runCmd.Flags().StringVar(&flags.configPath, "config", "", "path to YAML config")
	runCmd.Flags().StringVar(&flags.inputPath, "input", "", "input CSV (.gz, .zst and .lz4 are decompressed)")
	runCmd.Flags().StringVar(&flags.outputPath, "output", "", "output CSV")
	runCmd.Flags().StringVar(&flags.sqlitePath, "sqlite", "", "also store scores in this SQLite database")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}

	rootCmd.AddCommand(runCmd, versionCmd)
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "killdist: %v\n", err)
		os.Exit(1)
	}
}

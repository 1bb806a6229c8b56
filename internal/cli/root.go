package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"biblegen/config"
	"biblegen/internal/logging"
)

var (
	cfgFile   string
	cfg       *config.Config
	rootDir   string
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "biblegen",
	Short: "Static Bible site and JSON API generator with cross-version mapping",
	Long: `biblegen turns plain-text Bible translations into a static JSON API and
HTML reader, and maps every verse reference across the versions it was given.

Example usage:
  biblegen build --datasets kjv.txt --datasets web.txt   # Build ./out
  biblegen validate                                     # Check ./out
  biblegen lookup John.3.16                             # Show one mapping
  biblegen serve --addr :8080                           # Preview ./out`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		if logFormat != "" {
			cfg.Logging.Format = logFormat
		}
		level, format, err := loggingOptions()
		if err != nil {
			return err
		}
		logging.InitLogger(level, format)

		resolvePaths(cfg, rootDir)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./biblegen.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "project directory (default is current directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}

func loggingOptions() (logging.Level, logging.Format, error) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return 0, 0, err
	}
	format, err := logging.ParseFormat(cfg.Logging.Format)
	if err != nil {
		return 0, 0, err
	}
	return level, format, nil
}

// consoleHandler is the stderr handler build logs are mirrored to.
func consoleHandler(minLevel logging.Level) slog.Handler {
	level, format, err := loggingOptions()
	if err != nil {
		level, format = logging.LevelInfo, logging.FormatText
	}
	if minLevel > level {
		level = minLevel
	}
	return logging.NewHandler(os.Stderr, level, format)
}

// resolvePaths anchors relative paths from the config at the project
// directory.
func resolvePaths(c *config.Config, base string) {
	c.Datasets.Dir = config.Resolve(base, c.Datasets.Dir)
	for i, p := range c.Datasets.Paths {
		c.Datasets.Paths[i] = config.Resolve(base, p)
	}
	c.Output.Dir = config.Resolve(base, c.Output.Dir)
	c.Logging.Dir = config.Resolve(base, c.Logging.Dir)
}

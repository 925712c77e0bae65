package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/soyeahso/scout/internal/config"
	"github.com/soyeahso/scout/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string

	// loaded at init time
	paths config.Paths
	log   *logging.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scout",
		Short: "Chat with an agent that can scrape and crawl the web",
		Long: "scout starts an interactive session with a language-model agent that " +
			"calls the tools of an MCP server (Firecrawl by default) to read the web. " +
			"Type quit to leave.",
		Args: cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			paths, err = config.ResolvePaths()
			if err != nil {
				return err
			}
			if cfgFile != "" {
				paths.Config = cfgFile
			}
			level := logLevel
			if level == "" {
				level = "warn"
			}
			log = logging.New(nil, level)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.scout/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newToolsCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

// loadConfig reads the config file and applies environment overrides.
func loadConfig() (config.Config, error) {
	return config.Load(paths.Config)
}

// newLogger builds the session logger from config. The --log-level flag
// wins over the configured level. A relative log file lives under the logs
// directory. The closer is a no-op for console output.
func newLogger(cfg config.LoggingConfig) (*logging.Logger, io.Closer, error) {
	level := cfg.Level
	if logLevel != "" {
		level = logLevel
	}

	if cfg.File != "" {
		file := cfg.File
		if !filepath.IsAbs(file) {
			file = filepath.Join(paths.Logs, file)
		}
		return logging.NewFile(file, level)
	}
	if cfg.ConsoleStyle == "json" {
		return logging.New(os.Stderr, level), nopCloser{}, nil
	}
	return logging.New(nil, level), nopCloser{}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

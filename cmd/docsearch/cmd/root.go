// Package cmd provides the CLI commands for docsearch.
package cmd

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docsearch/internal/config"
	"github.com/Aman-CERP/docsearch/internal/errors"
	"github.com/Aman-CERP/docsearch/internal/logging"
	"github.com/Aman-CERP/docsearch/internal/profiling"
	"github.com/Aman-CERP/docsearch/internal/store"
	"github.com/Aman-CERP/docsearch/pkg/version"
)

// Global flags
var (
	projectDir     string
	logLevel       string
	logFile        string
	debugMode      bool
	loggingCleanup func()
)

// Profiling flags
var (
	profileOpts profiling.Options
	profile     *profiling.Session
)

// NewRootCmd creates the root command for the docsearch CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docsearch",
		Short: "Full-text indexing and search for structured documents",
		Long: `docsearch indexes documents made of named text fields and searches them
with a query language over one or more fields.

Documents come from JSONL files, SQL queries, Redis hashes or Kafka topics.
Results can be listed by relevance or grouped by a field value.

Configuration is read from .docsearch.yaml in the project directory.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("docsearch version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&projectDir, "dir", "C", ".", "Project directory holding the docsearch configuration")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default from config)")
	cmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Log file (default ~/.docsearch/logs/docsearch.log)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	cmd.PersistentFlags().StringVar(&profileOpts.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileOpts.Heap, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&profileOpts.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = startProfilingAndLogging
	cmd.PersistentPostRunE = stopProfilingAndLogging

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command and prints failures to stderr.
func Execute() error {
	root := NewRootCmd()
	defer func() { _ = stopProfilingAndLogging(nil, nil) }()

	if err := root.Execute(); err != nil {
		slog.Error("command_failed", errors.LogArgs(err)...)
		_, _ = fmt.Fprint(root.ErrOrStderr(), errors.FormatForCLI(err))
		return err
	}
	return nil
}

// startProfilingAndLogging installs the file logger used by every command
// and starts the requested profiles. Logs never go to stdout, which carries
// results and the MCP stream.
func startProfilingAndLogging(_ *cobra.Command, _ []string) error {
	if err := installLogging(resolveLevel("")); err != nil {
		return err
	}
	if !profileOpts.Enabled() {
		return nil
	}
	s, err := profiling.Start(profileOpts)
	if err != nil {
		return err
	}
	profile = s
	return nil
}

// stopProfilingAndLogging flushes profiles, then closes the log file.
func stopProfilingAndLogging(_ *cobra.Command, _ []string) error {
	err := profile.Stop()
	profile = nil
	_ = stopLogging(nil, nil)
	return err
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// installLogging replaces the default logger, closing the previous file.
func installLogging(level string) error {
	_ = stopLogging(nil, nil)

	cfg := logging.DefaultConfig()
	cfg.Level = level
	cfg.WriteToStderr = false
	if logFile != "" {
		cfg.FilePath = logFile
	}

	cleanup, err := logging.SetupDefault(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.Debug("logging_initialized",
		slog.String("log_file", cfg.FilePath),
		slog.String("level", cfg.Level))
	return nil
}

// resolveLevel picks the log level: --debug, then --log-level, then the
// configured level, then info.
func resolveLevel(configured string) string {
	switch {
	case debugMode:
		return "debug"
	case logLevel != "":
		return logLevel
	case configured != "":
		return configured
	default:
		return "info"
	}
}

// loadConfig loads the configuration of the project directory and returns
// it with the directory's absolute path.
func loadConfig() (*config.Config, string, error) {
	dir := projectDir
	if dir == "" {
		dir = "."
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve project directory: %w", err)
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, "", err
	}
	return cfg, root, nil
}

// openDirectory opens the configured index location.
func openDirectory(cfg *config.Config) (*store.Directory, error) {
	if cfg.Index.Memory {
		return store.OpenMemory(cfg.StoreConfig())
	}
	return store.OpenDisk(cfg.Index.Path, cfg.StoreConfig())
}

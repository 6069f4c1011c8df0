// Package cmd holds the meditrust command line: the HTTP API server and the
// one-shot image resolver.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/giygas/meditrust-api/config"
	"github.com/giygas/meditrust-api/logging"
)

// consoleAnnotation marks commands whose console logs go to stderr, keeping
// stdout for their output
const consoleAnnotation = "console"

var (
	flagEnvFile string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "meditrust",
	Short: "Medicine package recognition and generic alternatives",
	Long: `meditrust reads the text on a photo of a medicine package, identifies the
medicine in the catalog and suggests the closest generic alternative.

Without a subcommand it starts the HTTP API, like "meditrust serve".`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE:              runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", "",
		"Environment file to load (default: .env in the working or executable directory)")
}

// Execute runs the root command and exits with status 1 on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the environment, the configuration and the logger for every command
func setup(cmd *cobra.Command, args []string) error {
	if err := loadEnv(flagEnvFile); err != nil {
		return err
	}

	loaded, err := config.Load()
	if err != nil {
		return err
	}
	cfg = loaded

	logging.InitLoggerWithOptions(cfg.LogDir, logging.Options{
		Level:          logging.ParseLevel(cfg.LogLevel),
		RetentionWeeks: cfg.LogRetentionWeeks,
		MaxFileSize:    cfg.MaxLogFileSize,
		Console:        consoleFor(cmd),
	})
	return nil
}

func consoleFor(cmd *cobra.Command) io.Writer {
	if cmd.Annotations[consoleAnnotation] == "stderr" {
		return cmd.ErrOrStderr()
	}
	return cmd.OutOrStdout()
}

// loadEnv loads an explicit env file, or the first .env found in the working
// directory then next to the executable. Variables already set are kept.
func loadEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
		return nil
	}

	candidates := []string{".env"}
	if ex, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(ex), ".env"))
	}

	for _, path := range candidates {
		err := godotenv.Load(path)
		if err == nil {
			return nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load env file %s: %w", path, err)
		}
	}
	return nil
}

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nrenier/ICorNet-sub000/config"
	"github.com/nrenier/ICorNet-sub000/pkg/logger"
)

var (
	cfgFile   string
	apiURL    string
	logLevel  string
	logFormat string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "icornet",
	Short: "Command line client for the ICorNet company intelligence dashboard",
	Long: `icornet talks to the ICorNet dashboard API.

It searches companies, requests and downloads PDF reports, explores
relationship graphs and chats with the recommendation assistants. The
serve command starts a local development backend with the same API.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "API base URL, e.g. http://localhost:5000/api")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (text, json, color)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if apiURL != "" {
		c.API.BaseURL = strings.TrimRight(apiURL, "/")
	}
	if logLevel != "" {
		c.Log.Level = logLevel
	}
	if logFormat != "" {
		c.Log.Format = logFormat
	}

	logger.Init(&logger.Config{
		Level:  c.Log.Level,
		Format: c.Log.Format,
		Output: cmd.ErrOrStderr(),
	})

	cfg = c
	return nil
}

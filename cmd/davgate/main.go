package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/synodriver/davgate/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "davgate",
	Short:   "WebDAV gateway with Basic/Digest authentication",
	Long: `Davgate is a lightweight HTTP/WebDAV gateway that serves files with
Basic and Digest authentication, streaming compression, and zero-copy
file transmission.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFiles, _ := cmd.Flags().GetStringSlice("config")
		cfg, err := config.Load(configFiles, cmd.Flags())
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		setupLogging(os.Getenv("DAVGATE_ENV"), cfg.Log.Level)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringSlice("config", nil, "config file path(s) (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (env: DAVGATE_LOG_LEVEL)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

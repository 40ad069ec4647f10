package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Build variables - set by ldflags during build.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "journald",
		Short:         "Hunter's Journal background service",
		Long:          "journald caches the enemy catalog, schedules random enemy notifications and routes notification clicks to journal views.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath, func(v *viper.Viper) error {
				for _, name := range []string{"log-level", "socket-path", "api-enabled", "api-port", "source-mode", "periodic-enabled"} {
					if err := v.BindPFlag(name, cmd.Flags().Lookup(name)); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return runServer(cfg)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default is $HOME/.config/hunters-journal/config.yml)")
	rootCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.Flags().String("socket-path", "", "unix socket for views and the CLI")
	rootCmd.Flags().Bool("api-enabled", true, "serve the HTTP API")
	rootCmd.Flags().Int("api-port", defaultAPIPort, "HTTP API port")
	rootCmd.Flags().String("source-mode", "blob", "catalog source: blob or api")
	rootCmd.Flags().Bool("periodic-enabled", true, "register a systemd timer for periodic wake-ups")

	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Hunter's Journal - Background Service\n")
			fmt.Fprintf(out, "  Version:    %s\n", version)
			fmt.Fprintf(out, "  Commit:     %s\n", commit)
			fmt.Fprintf(out, "  Built:      %s\n", buildTime)
			fmt.Fprintf(out, "  Go version: %s\n", goVersion)
		},
	}
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/munkhbileg/openproject/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View wporder configuration",
	Long: `View wporder configuration.

Without arguments, displays the current configuration.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/wporder/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Config file: %s\n\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Config file: (none - using defaults)\n\n")
	}

	fmt.Fprintln(out, "table:")
	fmt.Fprintf(out, "  header_rows: %d\n", cfg.Table.HeaderRows)
	fmt.Fprintf(out, "  container: %s\n", cfg.Table.Container)

	fmt.Fprintln(out, "publish:")
	fmt.Fprintf(out, "  immediate: %v\n", cfg.Publish.Immediate)
	fmt.Fprintf(out, "  timeout_ms: %d\n", cfg.Publish.TimeoutMs)
	fmt.Fprintf(out, "  endpoint: %s\n", cfg.Publish.Endpoint)
	fmt.Fprintf(out, "  api_base: %s\n", cfg.Publish.APIBase)
	fmt.Fprintf(out, "  queue_size: %d\n", cfg.Publish.QueueSize)

	fmt.Fprintln(out, "server:")
	fmt.Fprintf(out, "  addr: %s\n", cfg.Server.Addr)

	fmt.Fprintln(out, "logging:")
	fmt.Fprintf(out, "  level: %s\n", cfg.Logging.Level)
	fmt.Fprintf(out, "  dir: %s\n", cfg.Logging.Dir)

	return nil
}

const defaultConfigContent = `# wporder configuration

# The rendered table
table:
  # Non-data rows above the first work package (observed positions count them)
  header_rows: 1
  # Name the table body registers under with the gesture source
  container: work-packages

# Sending the persisted order
publish:
  # Send every change immediately; when false the order waits for a full refresh
  immediate: true
  # Timeout for one order update in milliseconds (0 disables)
  timeout_ms: 10000
  # PATCH endpoint receiving the full order; empty keeps it in memory
  endpoint: ""
  # Prefix for work package hrefs in the payload
  api_base: /api/v3
  # Updates that may wait behind the one in flight
  queue_size: 16

server:
  addr: 127.0.0.1:8080

logging:
  level: info
  # Directory for wporder.log; empty logs to stderr
  dir: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s", configFile)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configFile, []byte(defaultConfigContent), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created config file at %s\n", configFile)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", config.ConfigFile())
	}

	fmt.Fprintln(out, "\nSearch paths:")
	fmt.Fprintf(out, "  1. %s\n", config.ConfigFile())
	fmt.Fprintf(out, "  2. ./config.yaml (current directory)\n")
	fmt.Fprintln(out, "\nEnvironment variables: WPORDER_* (e.g., WPORDER_PUBLISH_ENDPOINT)")

	return nil
}

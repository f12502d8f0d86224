package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootCmd represents the base command for the posta application
var rootCmd = &cobra.Command{
	Use:   "posta",
	Short: "Local mail backend for the posta desktop client",
	Long: `posta is the local backend of the posta mail client. It syncs Gmail
accounts incrementally into a local cache, reconstructs threads with
attachments and calendar invites, and serves the result to the desktop
shell over a loopback HTTP and WebSocket API.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "posta version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := initConfig(cmd); err != nil {
			return err
		}
		setupLogging()
		return nil
	}

	rootCmd.PersistentFlags().String("config", "", "Config file (default: $XDG_CONFIG_HOME/posta/config.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "", "Directory for the local cache and keyring (default: $XDG_DATA_HOME/posta)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format: text or json")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newAccountsCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// initConfig wires viper to the config file, POSTA_* environment variables,
// and the persistent flags, in increasing order of precedence.
func initConfig(cmd *cobra.Command) error {
	viper.SetEnvPrefix("POSTA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("binding persistent flags: %w", err)
	}

	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(defaultConfigDir())
	}

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine; everything has defaults or can
		// come from flags and environment variables.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return fmt.Errorf("reading config file: %w", err)
		}
	}
	return nil
}

// setupLogging installs the process-wide slog default from the configured
// level and format.
func setupLogging() {
	var level slog.Level
	switch strings.ToLower(viper.GetString("log-level")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(viper.GetString("log-format")) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func defaultConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "posta")
	}
	return filepath.Join(homeDir(), ".config", "posta")
}

func defaultDataDir() string {
	if dir := viper.GetString("data-dir"); dir != "" {
		return dir
	}
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "posta")
	}
	return filepath.Join(homeDir(), ".local", "share", "posta")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("posta version %s\n", version)
		},
	}
}

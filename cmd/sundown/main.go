package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/siohaza/sundown/internal/server"
	"github.com/siohaza/sundown/pkg/config"

	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
	version    = "0.1.0"
)

var rootCmd = &cobra.Command{
	Use:   "sundown",
	Short: "Sundown - authoritative top-down shooter server",
	Long: `Sundown runs the authoritative simulation for a top-down shooter:
movement, collisions, projectiles, damage and weapons, served to clients over ENet.`,
	Version: version,
	RunE:    runServer,
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the Sundown server",
	Long:  "Start the Sundown server with the specified configuration",
	RunE:  runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "Sundown v%s\n", version)
	},
}

var checkConfigCmd = &cobra.Command{
	Use:   "check-config",
	Short: "Validate the configuration and print the weapon catalog",
	RunE:  checkConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config.toml", "path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(checkConfigCmd)
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func checkConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	catalog, err := cfg.Catalog()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: port %d, %d clients, %d Hz, codec %s\n",
		cfg.Server.Name, cfg.Server.Port, cfg.Server.MaxClients, cfg.Server.TickRate, cfg.Server.Codec)
	for _, name := range catalog.Names() {
		d := catalog[name]
		fmt.Fprintf(out, "  %-12s dmg %3d  mag %2d  pellets %d  rate %.2f/s  spread %.1f°  range %.1f\n",
			name, d.Damage, d.MagazineSize, d.PelletNumber, d.FireRate, d.Spread, d.BulletDistanceLimit)
	}
	fmt.Fprintf(out, "loadout: %v\n", cfg.Player.Loadout)
	return nil
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var logWriter io.Writer = os.Stdout

	if cfg.Server.LogToFile {
		logDir := "logs"
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}

		logPath := filepath.Join(logDir, fmt.Sprintf("sundown_%d.log", time.Now().Unix()))
		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer logFile.Close()

		logWriter = io.MultiWriter(os.Stdout, logFile)
	}

	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLevel(logLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("starting sundown server", "version", version)

	server.Version = version
	srv, err := server.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	logger.Info("server running",
		"name", cfg.Server.Name,
		"address", fmt.Sprintf("0.0.0.0:%d", cfg.Server.Port),
		"max_clients", cfg.Server.MaxClients,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	logger.Info("shutting down server")

	srv.Stop()
	logger.Info("server stopped successfully")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"litebridge/config"
	"litebridge/core"
	"litebridge/handlers"
	"litebridge/orm"
	"litebridge/service"
	"litebridge/state"
	"litebridge/trace"
	"litebridge/version"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile   string
	viperConf = viper.New()
	rootCmd   = &cobra.Command{
		Use:   "litebridge",
		Short: "SQLite error and trace bridge with a demo data manager",
		Long: `litebridge opens a SQLite database through GORM, bridges every engine error
into leveled, coded errors and serves them over an HTTP API.
Without a subcommand it starts the server.`,
		SilenceUsage:      true,
		PersistentPreRunE: loadConfig,
		RunE:              runServe,
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file location (yaml or toml)")
	if err := config.BindFlags(rootCmd.PersistentFlags(), viperConf); err != nil {
		panic(err)
	}
	rootCmd.AddCommand(serveCmd, demoCmd, checkCmd, cliCmd, versionCmd)
}

func loadConfig(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(viperConf, cfgFile)
	if err != nil {
		return err
	}
	config.Settings = cfg
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

// bootstrap opens the shared database and wires tracing and services.
func bootstrap(ctx context.Context, createTables bool) (*service.Manager, error) {
	if key := config.Settings.CipherKey; key != "" {
		if err := orm.ConfigCipher([]byte(key)); err != nil {
			return nil, fmt.Errorf("configuring cipher: %w", err)
		}
	}

	core.ErrorLoggerInstance.SetMaxLogs(config.Settings.MaxErrorLogs)
	hub := trace.NewHub(config.Settings.TraceBufferSize)
	core.InstallTracers(core.ErrorLoggerInstance, hub, core.TraceOptions{
		AssertNoFatal:  config.Settings.AssertNoFatal,
		LogPerformance: config.Settings.TraceAllSQL,
	})

	m, err := service.Shared()
	if err != nil {
		return nil, err
	}
	services := service.InitServices(m.Database(), core.ErrorLoggerInstance, hub)
	if createTables {
		if err := services.Sample.EnsureTable(ctx); err != nil {
			return nil, fmt.Errorf("creating sample table: %w", err)
		}
	}
	handlers.SetTraceHub(hub)
	return m, nil
}

func shutdownDatabases() {
	core.UninstallTracers()
	if err := state.Global.CloseAll(); err != nil {
		log.Error().Err(err).Msg("Error closing databases")
		core.LogErrorSimple("System", fmt.Sprintf("closing databases: %v", err))
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	logFile, err := setupLogging(config.Settings.LogFilePath, config.Settings.LogLevel, config.Settings.LogPretty)
	if err != nil {
		return err
	}
	if logFile != nil {
		defer logFile.Close()
	}

	log.Info().Str("version", version.GetFullVersion()).Msg("System starting up...")

	if _, err := bootstrap(cmd.Context(), true); err != nil {
		return err
	}
	defer shutdownDatabases()

	r := handlers.NewRouter(strings.EqualFold(config.Settings.LogLevel, "DEBUG"))

	port, err := findAvailablePort(config.Settings.Port)
	if err != nil {
		return err
	}
	if port != config.Settings.Port {
		log.Warn().Int("configured", config.Settings.Port).Int("port", port).Msg("Default port is busy, switched")
		core.LogWarn("System", "Default port is busy", fmt.Sprintf("switched from %d to %d", config.Settings.Port, port))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Msgf("Server starting on http://127.0.0.1:%d", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	shutdownChan := make(chan bool, 1)
	handlers.SetShutdownChannel(shutdownChan)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info().Msg("Received interrupt signal")
	case <-shutdownChan:
		log.Info().Msg("Shutdown triggered via API")
	case err := <-serveErr:
		return fmt.Errorf("failed to start server: %w", err)
	}

	log.Info().Msg("System shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
	return nil
}

// findAvailablePort searches for an available port
func findAvailablePort(startPort int) (int, error) {
	for port := startPort; port < startPort+100; port++ {
		listener, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", port))
		if err == nil {
			listener.Close()
			return port, nil
		}
	}
	return 0, fmt.Errorf("no available ports in %d-%d", startPort, startPort+99)
}

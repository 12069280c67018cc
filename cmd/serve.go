package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"light_control/internal/config"
	"light_control/internal/device"
	"light_control/internal/handlers"
	"light_control/internal/logger"
	"light_control/internal/mqtt"
	"light_control/internal/repository"
	"light_control/internal/repository/db"
	"light_control/internal/server"
	"light_control/internal/service"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Poll the board and serve the REST API, websocket feed and MQTT bridge",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("port", "", "HTTP listen port (default 8080)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}

	// open DB
	journal, closeJournal := openJournal(cfg, log)
	defer closeJournal()

	api, err := newDeviceAPI(cfg, log)
	if err != nil {
		return err
	}

	// views
	hub := handlers.NewHub(log.Named("ws"))
	views := service.Views{hub}
	bridge := openBridge(cfg, log)
	if bridge != nil {
		views = append(views, bridge)
	}

	// wire dependencies
	services := service.NewService(api, views, service.Options{
		PollInterval: cfg.Poll.Interval,
		Journal:      journal,
		Log:          log.Named("core"),
	})
	apiHandler := handlers.NewHandler(services, hub, log)

	// context for background goroutines
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// startup refresh, then poll until cancelled
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		services.Run(ctx)
	}()

	// start HTTP server
	srv := server.New(cfg.Port, apiHandler.InitRoutes())
	runHTTPServer(srv, log)
	log.Infow("serving", "addr", srv.Addr(), "device", cfg.Device.BaseURL, "poll", cfg.Poll.Interval)

	// graceful shutdown
	waitForShutdown(cancel, srv, log)
	<-runDone
	hub.Close()
	if bridge != nil {
		if err := bridge.Close(); err != nil {
			log.Warnw("mqtt_close_failed", "err", err)
		}
	}
	return nil
}

func newDeviceAPI(cfg *config.Config, log *logger.Logger) (*device.API, error) {
	t, err := device.NewHTTPTransport(cfg.Device.BaseURL, cfg.Device.Timeout, log.Named("device"))
	if err != nil {
		return nil, err
	}
	return device.NewAPI(t), nil
}

// openJournal initializes the SQLite journal. An empty db.path runs without
// one; an unusable path is fatal.
func openJournal(cfg *config.Config, log *logger.Logger) (repository.EventRepo, func()) {
	if cfg.DB.Path == "" {
		log.Infow("db.path not set in config; command journal disabled")
		return nil, func() {}
	}
	conn, err := db.InitDB(cfg.DB.Path)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err, "path", cfg.DB.Path)
	}
	repos := repository.NewRepository(conn)
	return repos.EventRepo, func() { closeDB(conn, log) }
}

func closeDB(conn *sql.DB, log *logger.Logger) {
	if err := conn.Close(); err != nil {
		log.Errorw("failed to close sqlite", "err", err)
	}
}

// openBridge connects to the MQTT broker if one is configured. A broker that
// cannot be reached is logged and skipped.
func openBridge(cfg *config.Config, log *logger.Logger) *mqtt.Bridge {
	if !cfg.MQTT.Enabled() {
		return nil
	}
	pub, err := mqtt.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID)
	if err != nil {
		log.Errorw("mqtt_connect_failed", "broker", cfg.MQTT.Broker, "err", err)
		return nil
	}
	log.Infow("mqtt_connected", "broker", cfg.MQTT.Broker, "prefix", cfg.MQTT.TopicPrefix)
	return mqtt.NewBridge(pub, cfg.MQTT.TopicPrefix, log.Named("mqtt"))
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, log *logger.Logger) {
	go func() {
		if err := srv.Run(); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop polling and command goroutines
	cancel()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}

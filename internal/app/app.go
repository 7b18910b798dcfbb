package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	nethttp "net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"matchpoint/server"
	servernet "matchpoint/server/internal/net"
	"matchpoint/server/logging"
	loggingsinks "matchpoint/server/logging/sinks"
)

// Config is populated from the environment. A .env file in the working
// directory is read first when present.
type Config struct {
	ListenAddr      string   `envconfig:"LISTEN_ADDR" default:":8080"`
	PaddleTickRate  int      `envconfig:"PADDLE_TICK_RATE" default:"30"`
	LogSinks        []string `envconfig:"LOG_SINKS" default:"console"`
	LogJSONPath     string   `envconfig:"LOG_JSON_PATH" default:"events.ndjson"`
	LogMinSeverity  int      `envconfig:"LOG_MIN_SEVERITY" default:"1"`
	ShutdownTimeout int      `envconfig:"SHUTDOWN_TIMEOUT_SECONDS" default:"10"`
}

func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("skipping .env: %v", err)
	}
	var cfg Config
	if err := envconfig.Process("matchpoint", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to read environment: %w", err)
	}
	return cfg, nil
}

// Run wires the logging router, registry, and gateway, then serves until
// the context is cancelled.
func Run(ctx context.Context) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	logConfig := logging.DefaultConfig()
	logConfig.EnabledSinks = cfg.LogSinks
	logConfig.MinimumSeverity = logging.Severity(cfg.LogMinSeverity)

	sinks := make([]logging.NamedSink, 0, len(cfg.LogSinks))
	var jsonFile *os.File
	for _, name := range cfg.LogSinks {
		switch name {
		case "console":
			sinks = append(sinks, logging.NamedSink{Name: name, Sink: loggingsinks.NewConsoleSink(os.Stdout, logConfig.Console)})
		case "json":
			jsonFile, err = os.OpenFile(cfg.LogJSONPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return fmt.Errorf("failed to open json log: %w", err)
			}
			sinks = append(sinks, logging.NamedSink{Name: name, Sink: loggingsinks.NewJSON(jsonFile, logConfig.JSON.FlushInterval)})
		case "memory":
			sinks = append(sinks, logging.NamedSink{Name: name, Sink: loggingsinks.NewMemorySink()})
		default:
			log.Printf("unknown log sink %q ignored", name)
		}
	}
	if jsonFile != nil {
		defer jsonFile.Close()
	}

	router, err := logging.NewRouter(logging.SystemClock{}, logConfig, sinks)
	if err != nil {
		return fmt.Errorf("failed to construct logging router: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeout)*time.Second)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			log.Printf("failed to close logging router: %v", cerr)
		}
	}()

	gateway := servernet.NewGateway(servernet.GatewayConfig{
		Logger:         log.Default(),
		Stats:          func() any { return router.Stats() },
		PaddleTickRate: cfg.PaddleTickRate,
	})
	registry := server.NewRegistry(server.RegistryConfig{
		PaddleTickRate: cfg.PaddleTickRate,
		Broadcaster:    gateway,
		Publisher:      router,
		Results:        server.LoggingResultSink(router),
	})
	gateway.AttachRegistry(registry)

	srv := &nethttp.Server{Addr: cfg.ListenAddr, Handler: gateway.Handler()}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("server listening on %s", cfg.ListenAddr)
		if serveErr := srv.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, nethttp.ErrServerClosed) {
			errCh <- serveErr
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down cleanly: %w", err)
	}
	return <-errCh
}

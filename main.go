package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/restless-rs/restless/http"
	"github.com/restless-rs/restless/internal/config"
	"github.com/restless-rs/restless/internal/telemetry"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		log.Fatalln(err)
	}
}

func run(ctx context.Context, args []string) (err error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	cfg, err := config.Load(args)
	if err != nil {
		return err
	}

	otelShutdown, err := telemetry.Setup(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, otelShutdown(context.Background()))
	}()

	logger := telemetry.NewLogger(cfg)
	slog.SetDefault(logger)

	router := http.NewRouter()
	router.GET("/", func(req *http.Request, res *http.Response) {
		res.WithText("hello world")
	})

	server := http.NewServer(cfg.ServiceName, router)
	server.Host = cfg.Host
	server.ReadTimeout = cfg.ReadTimeout
	server.WriteTimeout = cfg.WriteTimeout
	server.DrainTimeout = cfg.DrainTimeout
	server.MaxRequestSize = cfg.MaxRequestSize
	server.Logger = logger

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.Listen(cfg.Port, func() {
			logger.Info(fmt.Sprintf("Bind at %d port", cfg.Port), "host", cfg.Host)
		})
	}()

	select {
	case err := <-serverErrCh:
		return err
	case <-ctx.Done():
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

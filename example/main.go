package main

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strconv"

	"github.com/restless-rs/restless/http"
	"github.com/restless-rs/restless/internal/config"
	"github.com/restless-rs/restless/internal/telemetry"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const name = "github.com/restless-rs/restless/example"

var (
	tracer  = otel.Tracer(name)
	meter   = otel.Meter(name)
	logger  = otelslog.NewLogger(name)
	rollCnt metric.Int64Counter
)

func init() {
	var err error
	rollCnt, err = meter.Int64Counter("dice.rolls",
		metric.WithDescription("The number of rolls by roll value"),
		metric.WithUnit("{roll}"))
	if err != nil {
		panic(err)
	}
}

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
	if cfg.ServiceName == config.Default().ServiceName {
		cfg.ServiceName = "playground"
	}

	otelShutdown, err := telemetry.Setup(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, otelShutdown(context.Background()))
	}()

	router := http.NewRouter()

	router.GET("/home", func(req *http.Request, res *http.Response) {
		res.WithText("home")
	})

	router.GET("/:user_id/login", func(req *http.Request, res *http.Response) {
		userID, _ := req.Param("user_id")
		res.WithJson(map[string]string{"user": userID})
	})

	router.GET("/login", func(req *http.Request, res *http.Response) {
		redirect, ok := req.Query("redirect")
		if !ok {
			redirect = "/home"
		}
		res.Status(http.StatusSeeOther).Set("Location", redirect)
	})

	router.POST("/echo", func(req *http.Request, res *http.Response) {
		contentType, ok := req.Header("content-type")
		if !ok {
			contentType = "text/plain"
		}
		res.Status(http.StatusCreated).Set("Content-Type", contentType).SendBytes(req.Body)
	})

	router.GET("/roll", func(req *http.Request, res *http.Response) {
		spanCtx, span := tracer.Start(req.Context(), "roll")
		defer span.End()

		roll := 1 + rand.Intn(6)

		msg := "Anonymous player is rolling the dice"
		logger.InfoContext(spanCtx, msg, "result", roll)

		rollValueAttr := attribute.Int("roll.value", roll)
		span.SetAttributes(rollValueAttr)
		rollCnt.Add(spanCtx, 1, metric.WithAttributes(rollValueAttr))

		res.WithText(strconv.Itoa(roll) + "\n")
	})

	if err := router.NotFound(http.HandlerFunc(func(req *http.Request, res *http.Response) {
		res.Status(http.StatusNotFound).Send("Not found")
	})); err != nil {
		return err
	}

	port := cfg.Port
	server := http.NewServer(cfg.ServiceName, router)
	server.Host = cfg.Host
	server.ReadTimeout = cfg.ReadTimeout
	server.WriteTimeout = cfg.WriteTimeout
	server.Logger = telemetry.NewLogger(cfg)

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.Listen(port, func() {
			log.Printf("Bind at %d port", port)
		})
	}()

	select {
	case err := <-serverErrCh:
		return err
	case <-ctx.Done():
		stop()
	}

	return server.Shutdown(context.Background())
}

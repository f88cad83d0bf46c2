package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/dmarc0001/busmobile/config"
	"github.com/dmarc0001/busmobile/module/tracker"
	"github.com/dmarc0001/busmobile/module/tracker/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var db *sql.DB
	if cfg.PostgresDSN != "" && cfg.FencesFile == "" {
		db, err = config.NewPostgres(ctx, cfg)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		defer func() { _ = db.Close() }()
	}

	var amqpConn *amqp.Connection
	if cfg.RabbitMQURL != "" {
		amqpConn, err = config.NewRabbitMQ(cfg, "busmobile-tracker")
		if err != nil {
			log.Fatalf("rabbitmq: %v", err)
		}
		defer func() { _ = amqpConn.Close() }()
	}

	var mqttClient mqtt.Client
	if cfg.PositionSource == tracker.SourceMQTT {
		mqttClient, err = config.NewMQTT(cfg)
		if err != nil {
			log.Fatalf("mqtt: %v", err)
		}
		defer mqttClient.Disconnect(250)
	}

	engineCfg := service.DefaultEngineConfig()
	engineCfg.CoarseRadius = cfg.CoarseRadius
	engineCfg.WatchdogInterval = cfg.WatchdogInterval
	engineCfg.StopInboundRadius = cfg.StopInboundRadius
	engineCfg.StopInnerExit = cfg.StopInnerExit
	engineCfg.StopExitMargin = cfg.StopExitMargin
	engineCfg.PoiHysteresis = cfg.PoiHysteresis
	engineCfg.ReconnectInterval = cfg.ReconnectInterval

	trackerModule, err := tracker.Build(db, amqpConn, mqttClient, tracker.Options{
		Source:            cfg.PositionSource,
		GPSDAddr:          cfg.GPSDAddr,
		MQTTTopic:         cfg.MQTTTopic,
		FencesFile:        cfg.FencesFile,
		DisplaySocket:     cfg.DisplaySocket,
		DisplayQuitOnStop: cfg.DisplayQuitOnStop,
		Engine:            engineCfg,
	})
	if err != nil {
		log.Fatalf("tracker module: %v", err)
	}

	if err := trackerModule.Start(ctx); err != nil {
		log.Fatalf("start tracker: %v", err)
	}

	r := gin.Default()

	health := config.NewHealthChecker(db, amqpConn, mqttClient, trackerModule.Engine.Connected)
	health.Register(r)

	trackerModule.RegisterRoutes(&r.RouterGroup)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}

	if err := trackerModule.Stop(cfg.ShutdownTimeout); err != nil {
		log.Printf("tracker stop: %v", err)
		os.Exit(1)
	}
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	PositionSource string `validate:"oneof=gpsd mqtt"`
	GPSDAddr       string `validate:"required,hostname_port"`
	MQTTBroker     string `validate:"required_if=PositionSource mqtt"`
	MQTTClientID   string `validate:"required"`
	MQTTTopic      string `validate:"required"`

	// Optional backends; empty disables them.
	RabbitMQURL   string `validate:"omitempty,url"`
	PostgresDSN   string
	FencesFile    string
	DisplaySocket string

	DisplayQuitOnStop bool

	HTTPPort string `validate:"required,numeric"`

	CoarseRadius      float64       `validate:"gt=0"`
	WatchdogInterval  time.Duration `validate:"gt=0"`
	StopInboundRadius float64       `validate:"gt=0"`
	StopInnerExit     float64       `validate:"gt=0,ltfield=StopInboundRadius"`
	StopExitMargin    float64       `validate:"gte=0"`
	PoiHysteresis     float64       `validate:"gte=0"`
	ReconnectInterval time.Duration `validate:"gt=0"`
	ShutdownTimeout   time.Duration `validate:"gt=0"`
}

// Load reads an optional .env file, then the environment, and validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("load .env: %v", err)
	}

	cfg := &Config{
		PositionSource: getEnv("POSITION_SOURCE", "gpsd"),
		GPSDAddr:       getEnv("GPSD_ADDR", "127.0.0.1:2947"),
		MQTTBroker:     getEnv("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTClientID:   getEnv("MQTT_CLIENT_ID", "busmobile-tracker"),
		MQTTTopic:      getEnv("MQTT_TOPIC", "/busmobile/position"),
		RabbitMQURL:    os.Getenv("RABBITMQ_URL"),
		PostgresDSN:    os.Getenv("POSTGRES_DSN"),
		FencesFile:     os.Getenv("FENCES_FILE"),
		DisplaySocket:  os.Getenv("DISPLAY_SOCKET"),
		HTTPPort:       getEnv("HTTP_PORT", "8080"),

		DisplayQuitOnStop: getBoolEnv("DISPLAY_QUIT_ON_STOP", false),

		CoarseRadius:      getFloatEnv("COARSE_RADIUS", 1500),
		WatchdogInterval:  getDurationEnv("WATCHDOG_INTERVAL", 8*time.Second),
		StopInboundRadius: getFloatEnv("STOP_INBOUND_RADIUS", 200),
		StopInnerExit:     getFloatEnv("STOP_INNER_EXIT", 18),
		StopExitMargin:    getFloatEnv("STOP_EXIT_MARGIN", 5),
		PoiHysteresis:     getFloatEnv("POI_HYSTERESIS", 50),
		ReconnectInterval: getDurationEnv("RECONNECT_INTERVAL", 2*time.Second),
		ShutdownTimeout:   getDurationEnv("SHUTDOWN_TIMEOUT", 5*time.Second),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getFloatEnv(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("%s: invalid number %q, using %v", key, v, fallback)
		return fallback
	}
	return f
}

func getBoolEnv(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("%s: invalid bool %q, using %t", key, v, fallback)
		return fallback
	}
	return b
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("%s: invalid duration %q, using %s", key, v, fallback)
		return fallback
	}
	return d
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	API    APIConfig
	Stream StreamConfig
	Redis  RedisConfig
	Watch  WatchConfig
}

type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

type StreamConfig struct {
	// ReconnectDelay is the fixed wait between a transport failure and the
	// next connect attempt. There is no backoff and no retry ceiling.
	ReconnectDelay time.Duration
	// Transport selects how pushed events arrive: "sse" or "redis".
	Transport string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type WatchConfig struct {
	FlightID             string
	UserID               string
	NotificationsEnabled bool
	PollingEnabled       bool
	PollInterval         time.Duration
}

func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	apiBase := os.Getenv("API_BASE_URL")
	if apiBase == "" {
		return nil, fmt.Errorf("%s: missing API_BASE_URL", op)
	}

	apiTimeout, err := durationEnv("API_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	reconnectDelay, err := durationEnv("STREAM_RECONNECT_DELAY", 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	transport := os.Getenv("STREAM_TRANSPORT")
	if transport == "" {
		transport = "sse"
	}

	if transport != "sse" && transport != "redis" {
		return nil, fmt.Errorf("%s: invalid STREAM_TRANSPORT %q", op, transport)
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	redisDBStr := os.Getenv("REDIS_DB")
	if redisDBStr == "" {
		redisDBStr = "0"
	}

	redisDB, err := strconv.Atoi(redisDBStr)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid REDIS_DB: %w", op, err)
	}

	flightID := os.Getenv("WATCH_FLIGHT_ID")
	if flightID == "" {
		return nil, fmt.Errorf("%s: missing WATCH_FLIGHT_ID", op)
	}

	userID := os.Getenv("WATCH_USER_ID")
	if userID == "" {
		return nil, fmt.Errorf("%s: missing WATCH_USER_ID", op)
	}

	notifications, err := boolEnv("NOTIFICATIONS_ENABLED", true)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	polling, err := boolEnv("POLLING_ENABLED", false)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	pollInterval, err := durationEnv("POLL_INTERVAL", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Config{
		API: APIConfig{
			BaseURL: apiBase,
			Timeout: apiTimeout,
		},
		Stream: StreamConfig{
			ReconnectDelay: reconnectDelay,
			Transport:      transport,
		},
		Redis: RedisConfig{
			Addr:     redisAddr,
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Watch: WatchConfig{
			FlightID:             flightID,
			UserID:               userID,
			NotificationsEnabled: notifications,
			PollingEnabled:       polling,
			PollInterval:         pollInterval,
		},
	}, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	return d, nil
}

func boolEnv(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}

	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}

	return b, nil
}

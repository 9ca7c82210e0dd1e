package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/kirinyoku/tripsync-go/internal/config"
	"github.com/kirinyoku/tripsync-go/internal/domain"
	"github.com/kirinyoku/tripsync-go/internal/notify"
	"github.com/kirinyoku/tripsync-go/internal/remote"
	"github.com/kirinyoku/tripsync-go/internal/session"
	"github.com/kirinyoku/tripsync-go/internal/stream"
	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg    *config.Config
	logger *slog.Logger
	status *session.StatusSession
	seats  *session.SeatSession
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	client := remote.New(remote.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
	})

	statusTransport, seatTransport, err := buildTransports(cfg, client)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize stream transports: %w", err)
	}

	notifier := notify.NewNotifier(
		notify.NewStaticPermission(notify.PermissionGranted),
		&notify.LogSink{Logger: logger},
		logger,
		notify.Config{Enabled: cfg.Watch.NotificationsEnabled},
	)

	status := session.NewStatusSession(client, statusTransport, notifier, logger, session.StatusConfig{
		FlightID:       cfg.Watch.FlightID,
		ReconnectDelay: cfg.Stream.ReconnectDelay,
		PollingEnabled: cfg.Watch.PollingEnabled,
		PollInterval:   cfg.Watch.PollInterval,
	})

	seats := session.NewSeatSession(client, seatTransport, logger, session.SeatConfig{
		FlightID:       cfg.Watch.FlightID,
		UserID:         cfg.Watch.UserID,
		ReconnectDelay: cfg.Stream.ReconnectDelay,
	})

	return &App{
		cfg:    cfg,
		logger: logger,
		status: status,
		seats:  seats,
	}, nil
}

func buildTransports(cfg *config.Config, client *remote.Client) (stream.Transport, stream.Transport, error) {
	switch cfg.Stream.Transport {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		return stream.NewRedisTransport(rdb, "flight-status", cfg.Watch.FlightID),
			stream.NewRedisTransport(rdb, "seats", cfg.Watch.FlightID),
			nil
	case "sse":
		return stream.NewSSETransport(client.StatusStreamURL(cfg.Watch.FlightID), nil),
			stream.NewSSETransport(client.SeatStreamURL(cfg.Watch.FlightID), nil),
			nil
	default:
		return nil, nil, fmt.Errorf("unknown stream transport %q", cfg.Stream.Transport)
	}
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a.status.Subscribe(func(s domain.StatusSnapshot) {
		a.logger.Info("flight status",
			"flight_id", s.FlightID,
			"status", s.Status,
			"delay_minutes", s.DelayMinutes,
			"reason", s.DelayReason,
		)
	})

	a.status.OnConnStateChange(func(s stream.ConnState) {
		a.logger.Info("status stream state", "state", s)
	})

	a.seats.SubscribeInventory(func(seats map[string]domain.Seat) {
		free := 0
		for _, seat := range seats {
			if !seat.Reserved {
				free++
			}
		}
		a.logger.Info("seat inventory", "total", len(seats), "free", free)
	})

	a.status.Open(ctx)
	a.seats.Open(ctx)

	a.logger.Info("watching flight",
		"flight_id", a.cfg.Watch.FlightID,
		"transport", a.cfg.Stream.Transport,
		"polling", a.cfg.Watch.PollingEnabled,
	)

	g, gCtx := errgroup.WithContext(ctx)

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down sessions")
		a.status.Close()
		a.seats.Close()
		return nil
	})

	return g.Wait()
}

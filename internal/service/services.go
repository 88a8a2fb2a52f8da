package service

import (
	"log/slog"

	"github.com/kirinyoku/courtside/internal/backend"
	postgres "github.com/kirinyoku/courtside/internal/repository/postgres"
	redis "github.com/kirinyoku/courtside/internal/repository/redis"
	"github.com/kirinyoku/courtside/internal/service/activity"
	"github.com/kirinyoku/courtside/internal/service/availability"
	"github.com/kirinyoku/courtside/internal/service/dispatch"
)

type Services struct {
	Availability *availability.Service
	Dispatch     *dispatch.Service
	Activity     *activity.Service
}

type Config struct {
	Availability availability.Config
	Activity     activity.Config
}

// NewServices wires the services around one backend client. store, cache,
// pubsub and limiter may be nil; the matching feature is then switched off.
func NewServices(
	client *backend.Client,
	store *postgres.Store,
	cache *redis.Cache,
	pubsub *redis.SchedulePubSub,
	limiter *redis.SlidingWindowLimiter,
	logger *slog.Logger,
	cfg Config,
) *Services {
	avail := availability.New(client, cache, logger, cfg.Availability)
	journal := activity.New(store, cfg.Activity)

	return &Services{
		Availability: avail,
		Dispatch: dispatch.New(client, dispatch.Deps{
			Viewer:  avail,
			Journal: journal,
			Cache:   cache,
			PubSub:  pubsub,
			Limiter: limiter,
			Logger:  logger,
		}),
		Activity: journal,
	}
}

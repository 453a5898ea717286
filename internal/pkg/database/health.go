package database

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	StateUp       = "up"
	StateDown     = "down"
	StateDisabled = "disabled"
)

// Check pings each backing store. Redis is optional, so a nil client reports
// disabled without failing the check; Postgres is required.
func Check(ctx context.Context, db *sqlx.DB, client *redis.Client) (map[string]string, bool) {
	status := map[string]string{"postgres": StateDisabled, "redis": StateDisabled}
	healthy := true

	if db == nil {
		healthy = false
	} else if err := db.PingContext(ctx); err != nil {
		log.Warn().Err(err).Msg("Postgres health check failed")
		status["postgres"] = StateDown
		healthy = false
	} else {
		status["postgres"] = StateUp
	}

	if client != nil {
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("Redis health check failed")
			status["redis"] = StateDown
			healthy = false
		} else {
			status["redis"] = StateUp
		}
	}
	return status, healthy
}

package database

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestCheckReportsRedisState(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	// Without a Postgres pool the check fails, but Redis is still pinged.
	status, healthy := Check(context.Background(), nil, client)
	if healthy {
		t.Fatal("expected unhealthy without postgres")
	}
	if status["redis"] != StateUp || status["postgres"] != StateDisabled {
		t.Fatalf("unexpected status %v", status)
	}

	mr.Close()
	status, _ = Check(context.Background(), nil, client)
	if status["redis"] != StateDown {
		t.Fatalf("expected redis down after close, got %v", status)
	}
}

func TestCheckWithoutRedis(t *testing.T) {
	status, _ := Check(context.Background(), nil, nil)
	if status["redis"] != StateDisabled {
		t.Fatalf("expected redis disabled, got %v", status)
	}
}

// Command healthcheck probes the gateway API and redis, exiting non-zero on
// failure. Intended for container liveness checks.
package main

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dlemaire/chessmate/internal/gateway"
	"github.com/dlemaire/chessmate/internal/store"
)

func main() {
	baseURL := strings.TrimSpace(os.Getenv("GATEWAY_BASE_URL"))
	if baseURL == "" {
		log.Fatal("GATEWAY_BASE_URL is required")
	}
	token := strings.TrimSpace(os.Getenv("GATEWAY_AUTH_TOKEN"))

	headers := func() map[string]string {
		m := map[string]string{}
		if token != "" {
			m["Authorization"] = "Bearer " + token
		}
		return m
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := gateway.NewClient(baseURL,
		gateway.WithHeaderProvider(headers),
		gateway.WithTimeout(5*time.Second),
	)
	if err := client.Health(ctx); err != nil {
		log.Fatalf("gateway health error: %v", err)
	}
	log.Println("gateway ok")

	redisURL := strings.TrimSpace(os.Getenv("REDIS_URL"))
	if redisURL == "" {
		log.Println("REDIS_URL not set; skipping redis check")
		return
	}
	opts, err := store.ParseRedisURL(redisURL)
	if err != nil {
		log.Fatalf("redis url error: %v", err)
	}
	rdb := redis.NewClient(opts)
	defer func() { _ = rdb.Close() }()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis ping error: %v", err)
	}
	log.Println("redis ok")
}

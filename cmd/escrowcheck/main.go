// escrowcheck probes the wager service's dependencies: redis, postgres
// (optional), and the HTTP gateway health route.
package main

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/valyala/fasthttp"

	"github.com/kapu/lichess-wager-go/internal/escrow"
)

func main() {
	redisURL := strings.TrimSpace(os.Getenv("REDIS_URL"))
	databaseURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	gatewayURL := strings.TrimSpace(os.Getenv("GATEWAY_URL"))

	if redisURL == "" {
		log.Fatal("REDIS_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	opts, err := escrow.ParseRedisURL(redisURL)
	if err != nil {
		log.Fatalf("redis url: %v", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("redis ping error: %v", err)
	} else {
		log.Printf("redis ok: %s", opts.Addr)
	}
	_ = rdb.Close()

	if databaseURL == "" {
		log.Println("DATABASE_URL not set; skipping postgres check")
	} else {
		repo, err := escrow.NewRepository(databaseURL)
		if err != nil {
			log.Printf("postgres error: %v", err)
		} else {
			if err := repo.Ping(ctx); err != nil {
				log.Printf("postgres ping error: %v", err)
			} else {
				log.Println("postgres ok")
			}
			_ = repo.Close()
		}
	}

	if gatewayURL == "" {
		log.Println("GATEWAY_URL not set; skipping gateway check")
		return
	}
	status, body, err := fasthttp.GetTimeout(nil, strings.TrimRight(gatewayURL, "/")+"/healthz", 5*time.Second)
	if err != nil {
		log.Printf("gateway error: %v", err)
		return
	}
	log.Printf("gateway ok: status=%d body=%s", status, string(body))
}

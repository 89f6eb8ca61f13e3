package main

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/medistore/api/internal/cart"
	"github.com/medistore/api/internal/config"
	"github.com/medistore/api/internal/database"
	"github.com/medistore/api/internal/mail"
	"github.com/medistore/api/internal/router"
	"github.com/medistore/api/internal/ws"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to create connection pool: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	log.Println("Connected to database")

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Invalid REDIS_URL: %v", err)
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("Unable to ping redis: %v", err)
	}
	log.Println("Connected to redis")

	queries := database.New(pool)
	carts := cart.NewStore(redisClient)

	var mailer mail.Sender = mail.LogSender{}
	if cfg.SMTPUser != "" {
		port, err := strconv.Atoi(cfg.SMTPPort)
		if err != nil {
			log.Fatalf("Invalid SMTP_PORT: %v", err)
		}
		mailer = mail.NewMailer(cfg.SMTPHost, port, cfg.SMTPUser, cfg.SMTPPass)
	}

	hub := ws.NewHub()
	go hub.Run()

	r := router.New(cfg, queries, pool, carts, mailer, hub)

	log.Printf("Starting server on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal(err)
	}
}

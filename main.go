package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"valet-ticketing/internal/auth"
	"valet-ticketing/internal/config"
	"valet-ticketing/internal/kafka"
	"valet-ticketing/internal/logger"
	points_db "valet-ticketing/internal/points/db"
	"valet-ticketing/internal/points/point_api"
	points "valet-ticketing/internal/points/service"
	tickets_db "valet-ticketing/internal/tickets/db"
	"valet-ticketing/internal/tickets/qr"
	tickets "valet-ticketing/internal/tickets/service"
	"valet-ticketing/internal/tickets/ticket_api"
	users_db "valet-ticketing/internal/users/db"
	users "valet-ticketing/internal/users/service"
	"valet-ticketing/internal/users/user_api"
)

func openDatabase(cfg *config.Config, log *logger.Logger) *bun.DB {
	sqldb, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to open postgres: %v", err))
	}
	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	if err := sqldb.Ping(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to postgres: %v", err))
	}
	log.Info("DATABASE", "Postgres connection successful")

	return bun.NewDB(sqldb, pgdialect.New())
}

func openRedis(cfg *config.Config, log *logger.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		PoolSize: 10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Warn("REDIS", fmt.Sprintf("Redis unavailable at %s, actor cache disabled: %v", cfg.Redis.Addr, err))
		return nil
	}
	log.Info("REDIS", fmt.Sprintf("Connected to Redis at %s", cfg.Redis.Addr))
	return client
}

// retentionSweeper purges tickets older than the retention window. Reads
// already exclude them; this reclaims storage on a fixed interval.
func retentionSweeper(ctx context.Context, ticketDB *tickets_db.DB, interval time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := ticketDB.PurgeExpired()
			if err != nil {
				log.Error("RETENTION", fmt.Sprintf("Purge failed: %v", err))
				continue
			}
			if n > 0 {
				log.Info("RETENTION", fmt.Sprintf("Purged %d expired tickets", n))
			}
		}
	}
}

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.NewLogger()
	defer log.Close()

	bunDB := openDatabase(cfg, log)
	defer bunDB.Close()

	if os.Getenv("AUTO_MIGRATE") != "false" {
		runMigrations(bunDB, log)
	}

	redisClient := openRedis(cfg, log)

	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		topics := []string{cfg.Kafka.Topics.CarIn, cfg.Kafka.Topics.CarOut}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, topics); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic setup failed, events may be dropped: %v", err))
		}
		producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics)
		defer producer.Close()
	} else {
		log.Warn("KAFKA", "Kafka disabled, lifecycle events will not be published")
	}

	ticketDB := &tickets_db.DB{Bun: bunDB, RetentionWindow: cfg.Retention.Window}
	userDB := &users_db.DB{Bun: bunDB}
	pointDB := &points_db.DB{Bun: bunDB}

	claimGen := qr.NewClaimGenerator(cfg.Auth.QRSecret)

	var publisher tickets.EventPublisher
	if producer != nil {
		publisher = producer
	}
	ticketService := tickets.NewTicketService(ticketDB, userDB, publisher, claimGen, log)
	userService := users.NewUserService(userDB)
	pointService := points.NewPointService(pointDB)

	ticketHandler := ticket_api.NewHandler(ticketService, log)
	userHandler := user_api.NewHandler(userService, log)
	pointHandler := point_api.NewHandler(pointService, log)

	actorCache := auth.NewActorCache(redisClient, cfg.Auth.ActorCacheTTL)
	lookup := func(id string) error {
		_, err := userDB.GetUserByID(id)
		return err
	}
	authenticate := auth.Middleware(cfg.Auth, actorCache, lookup, log)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(authenticate)

		r.Route("/tickets", func(r chi.Router) {
			r.Post("/in", ticketHandler.CarIn)
			r.Post("/out/{ticketID}", ticketHandler.CarOut)
			r.Get("/", ticketHandler.ListTickets)
			r.Get("/live", ticketHandler.LiveStatus)
		})

		r.Route("/points", func(r chi.Router) {
			r.Post("/", pointHandler.CreatePoint)
			r.Get("/", pointHandler.ListPoints)
			r.Delete("/{pointID}", pointHandler.DeletePoint)
		})

		r.Route("/users", func(r chi.Router) {
			r.Post("/", userHandler.CreateActor)
			r.Get("/", userHandler.ListStaff)
			r.Put("/{userID}", userHandler.UpdateActor)
			r.Delete("/{userID}", userHandler.DeleteActor)
		})
	})

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go retentionSweeper(sweepCtx, ticketDB, cfg.Retention.SweepInterval, log)

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("SERVER", fmt.Sprintf("Valet ticketing service on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", fmt.Sprintf("HTTP error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(ctxShutdown)
	log.Info("SERVER", "Shutdown complete")
}

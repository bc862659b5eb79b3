// cmd/db/historian.go is an asynchronous historian service that pops game actions from a
// Redis queue and persists them to a PostgreSQL database.
package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jason-s-yu/setdealer/internal/cache"
	"github.com/jason-s-yu/setdealer/internal/config"
	"github.com/jason-s-yu/setdealer/internal/database"
	"github.com/jason-s-yu/setdealer/internal/historian"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := config.LoadEnv(); err != nil {
		logrus.Warnf("loading env files: %v", err)
	}
	config.ConfigureLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connStr := database.ConnString()
	if connStr == "" {
		logrus.Fatal("DATABASE_URL (or PG_HOST) must be set for the historian")
	}
	if err := database.ConnectDB(ctx, connStr); err != nil {
		logrus.Fatal(err)
	}
	defer database.Close()
	if err := database.EnsureSchema(ctx, database.DB); err != nil {
		logrus.Fatal(err)
	}

	if err := cache.ConnectRedis(); err != nil {
		logrus.Fatal(err)
	}
	defer cache.Rdb.Close()

	opts := historian.DefaultOptions()
	opts.Queue = cache.QueueName()
	opts.BatchSize = getEnvInt("HISTORIAN_BATCH_SIZE", opts.BatchSize)
	opts.FlushDelay = time.Duration(getEnvInt("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond
	opts.Inactivity = time.Duration(getEnvInt("GAME_INACTIVITY_TIMEOUT_SEC", 600)) * time.Second
	opts.MaxPending = getEnvInt("HISTORIAN_MAX_PENDING", opts.MaxPending)

	hs := historian.NewService(cache.Rdb, historian.PostgresStore{}, opts, logrus.WithField("service", "historian"))
	if err := hs.Run(ctx); err != nil {
		logrus.Errorf("historian stopped: %v", err)
	}
	logrus.Info("Historian shutdown complete.")
}

// getEnvInt retrieves an integer value from an environment variable or returns a default value.
func getEnvInt(key string, defVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defVal
	}
	return i
}

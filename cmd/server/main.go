// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jason-s-yu/setdealer/internal/cache"
	"github.com/jason-s-yu/setdealer/internal/config"
	"github.com/jason-s-yu/setdealer/internal/database"
	"github.com/jason-s-yu/setdealer/internal/display"
	"github.com/jason-s-yu/setdealer/internal/game"
	"github.com/jason-s-yu/setdealer/internal/handlers"
	"github.com/jason-s-yu/setdealer/internal/input"
	"github.com/jason-s-yu/setdealer/internal/middleware"
	"github.com/pterm/pterm"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := config.LoadEnv(); err != nil {
		logrus.Warnf("loading env files: %v", err)
	}
	if os.Getenv("LOG_FILE") == "" {
		// the board owns the terminal
		os.Setenv("LOG_FILE", "setdealer.log")
	}
	config.ConfigureLogging()
	logger := logrus.WithField("service", "setdealer")

	cfg, err := config.GameConfig()
	if err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if os.Getenv("REDIS_ADDR") != "" {
		if err := cache.ConnectRedis(); err != nil {
			logger.Warnf("action log disabled: %v", err)
		} else {
			defer cache.Rdb.Close()
		}
	}
	if connStr := database.ConnString(); connStr != "" {
		if err := database.ConnectDB(ctx, connStr); err != nil {
			logger.Warnf("results archive disabled: %v", err)
		} else {
			defer database.Close()
			if err := database.EnsureSchema(ctx, database.DB); err != nil {
				logger.Warn(err)
			}
		}
	}

	gs := handlers.NewGameServer(logger)

	humans := cfg.Players - cfg.RandomPlayers
	kb := input.NewKeyboard(humans, logger.WithField("component", "keyboard"))
	interval := time.Duration(config.GetEnvInt("SET_RANDOM_INTERVAL_MS", 50)) * time.Millisecond
	inputs := make([]game.InputSource, 0, cfg.Players)
	for p := 0; p < cfg.Players; p++ {
		switch src := kb.Source(p); {
		case p >= humans:
			inputs = append(inputs, input.NewRandom(cfg.TableSize, interval, time.Now().UnixNano()+int64(p)))
		case src != nil:
			inputs = append(inputs, src)
		default:
			// no keys left for this seat
			inputs = append(inputs, input.NewQueue(input.DefaultQueueSize))
		}
	}

	timerMode := 1
	switch {
	case cfg.TurnTimeoutMillis == 0:
		timerMode = 0
	case cfg.TurnTimeoutMillis < 0:
		timerMode = -1
	}
	var labels []string
	if humans > 0 {
		labels = strings.Split(input.Layouts[0], "")
	}
	term := display.NewTerminal(cfg.Rules, cfg.TableSize, cfg.Players, timerMode, labels)

	dealer, err := gs.NewGame(cfg, term, inputs)
	if err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
	kb.OnInterrupt = dealer.Terminate

	mux := http.NewServeMux()
	logMW := middleware.LogMiddleware(logger)
	mux.Handle("/spectate/ws", logMW(handlers.SpectateWSHandler(gs)))
	mux.Handle("/spectate/ws/", logMW(handlers.SpectateWSHandler(gs)))
	mux.Handle("/games/state", logMW(handlers.GameStateHandler(gs)))
	mux.Handle("/games/state/", logMW(handlers.GameStateHandler(gs)))

	uiCtx, stopUI := context.WithCancel(context.Background())
	defer stopUI()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer stopUI()
		return dealer.Run(gctx)
	})
	g.Go(func() error { return term.Run(uiCtx) })
	if humans > 0 {
		g.Go(func() error {
			if err := kb.Listen(uiCtx); err != nil {
				logger.Warnf("keyboard input unavailable: %v", err)
			}
			return nil
		})
	}

	addr := config.GetEnv("SPECTATE_ADDR", ":8080")
	if addr != "-" {
		srv := &http.Server{Addr: addr, Handler: mux}
		g.Go(func() error {
			logger.Infof("Spectators on %s", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warnf("spectator server: %v", err)
			}
			return nil
		})
		g.Go(func() error {
			<-uiCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Errorf("game stopped with error: %v", err)
	}
	pterm.Info.Printfln("Final scores: %v, winners: %v", dealer.Scores(), dealer.Winners())
}

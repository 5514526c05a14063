// Package main запускает сервис мониторинга станков
// Сервис реализует:
// - JSON Reporting API по станкам, датчикам, алертам и обслуживанию
// - агрегаты OEE, MTBF/MTTR, тренды эффективности и частоту алертов
// - PNG-графики с файловым кэшем
// - сессии в Redis (или в памяти, если Redis недоступен)
// - экспорт метрик в Prometheus
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/apex/log"
	apexjson "github.com/apex/log/handlers/json"
	apextext "github.com/apex/log/handlers/text"
	gorillahandlers "github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"machinery-monitor/internal/analytics"
	"machinery-monitor/internal/cache"
	"machinery-monitor/internal/charts"
	"machinery-monitor/internal/config"
	"machinery-monitor/internal/handlers"
	"machinery-monitor/internal/session"
	"machinery-monitor/internal/store"
)

const (
	redisAttempts  = 5
	purgeInterval  = 10 * time.Minute
	shutdownPeriod = 30 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	setupLogging(cfg)

	log.Info("Starting machinery monitor...")
	log.Infof("Go version: %s", runtime.Version())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}
	defer st.Close()
	log.WithField("driver", st.Driver()).Info("Database ready")

	redisCache := connectRedis(ctx, cfg)
	var (
		backend session.Backend
		memory  *session.MemoryBackend
	)
	if redisCache != nil {
		backend = session.NewRedisBackend(redisCache)
		defer redisCache.Close()
	} else {
		memory = session.NewMemoryBackend()
		backend = memory
	}

	renderer, err := charts.NewRenderer(cfg.ChartTheme, cfg.ChartQuality)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize chart renderer")
	}

	chartCache, err := cache.NewFileCache(cfg.ChartCacheDir, cfg.ChartCacheTTL)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize chart cache")
	}
	go purgeLoop(ctx, chartCache, memory)

	handler := handlers.NewHandler(handlers.Deps{
		Config:     cfg,
		Store:      st,
		Aggregator: analytics.NewAggregator(st, cfg),
		Renderer:   renderer,
		Sessions:   session.NewManager(backend, cfg.SessionTTL),
		ChartCache: chartCache,
		Redis:      redisCache,
	})

	router := handler.Router()
	router.Handle("/prometheus", promhttp.Handler())
	router.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)

	var h http.Handler = router
	h = gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins([]string{"*"}),
		gorillahandlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions}),
		gorillahandlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)(h)
	h = gorillahandlers.RecoveryHandler(gorillahandlers.RecoveryLogger(recoveryLogger{}))(h)
	h = gorillahandlers.LoggingHandler(os.Stdout, h)

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      h,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		log.Infof("Server listening on %s", cfg.ServerAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownPeriod)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown error")
	}

	log.Info("Server stopped")
}

// setupLogging выбирает формат и уровень логов
func setupLogging(cfg *config.Config) {
	if cfg.LogFormat == "json" {
		log.SetHandler(apexjson.New(os.Stdout))
	} else {
		log.SetHandler(apextext.New(os.Stderr))
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

// connectRedis подключается к Redis с повторами; nil если Redis не настроен или недоступен
func connectRedis(ctx context.Context, cfg *config.Config) *cache.RedisCache {
	if cfg.RedisAddr == "" {
		log.Info("REDIS_ADDR is empty, sessions are kept in memory")
		return nil
	}

	var err error
	for i := 0; i < redisAttempts; i++ {
		var rc *cache.RedisCache
		rc, err = cache.NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err == nil {
			log.Infof("Connected to Redis at %s", cfg.RedisAddr)
			return rc
		}
		log.WithError(err).Warnf("Redis connection attempt %d failed", i+1)
		if i < redisAttempts-1 {
			time.Sleep(time.Duration(i+1) * time.Second)
		}
	}

	log.WithError(err).Warn("Failed to connect to Redis, sessions are kept in memory")
	return nil
}

// purgeLoop периодически удаляет устаревшие графики из файлового кэша
// и истекшие сессии, если они хранятся в памяти (mem может быть nil)
func purgeLoop(ctx context.Context, fc *cache.FileCache, mem *session.MemoryBackend) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if mem != nil {
				if n := mem.Sweep(time.Now()); n > 0 {
					log.WithField("removed", n).Debug("expired sessions swept")
				}
			}
			n, err := fc.Purge()
			if err != nil {
				log.WithError(err).Warn("chart cache purge failed")
				continue
			}
			if n > 0 {
				log.WithField("removed", n).Debug("chart cache purged")
			}
		}
	}
}

// recoveryLogger направляет паники из RecoveryHandler в apex/log
type recoveryLogger struct{}

func (recoveryLogger) Println(v ...interface{}) {
	log.Error(fmt.Sprint(v...))
}

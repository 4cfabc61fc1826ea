package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/UkralStul/yatube/internal/accesslog"
	"github.com/UkralStul/yatube/internal/auth"
	"github.com/UkralStul/yatube/internal/blog"
	"github.com/UkralStul/yatube/internal/live"
	"github.com/UkralStul/yatube/internal/media"
	"github.com/UkralStul/yatube/internal/monitoring"
	"github.com/UkralStul/yatube/internal/web"
)

const shutdownTimeout = 10 * time.Second

var devSeed bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server and block until SIGINT or SIGTERM.

Examples:
  yatube serve                          # in-memory storage, memory cache
  yatube serve --dev-seed               # same, with demo data
  yatube serve -c yatube.toml --storage postgres`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().BoolVar(&devSeed, "dev-seed", false, "Fill the store with demo data on start")
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	if devSeed {
		if err := seed(ctx, store); err != nil {
			return err
		}
	}

	feedCache, closeCache, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	observer := live.NewObserver()
	images := media.New(cfg.Media.Dir)
	svc := blog.New(store, feedCache,
		blog.WithPageSize(cfg.Blog.PageSize),
		blog.WithObserver(observer),
		blog.WithImages(images),
	)

	deps := web.Deps{
		Blog:     svc,
		Store:    store,
		Cache:    feedCache,
		CacheTTL: cfg.Cache.TTL,
		Sessions: auth.NewSessions(cfg.HTTP.SecureCookie),
		Observer: observer,
		Media:    images,
	}
	if len(cfg.Kafka.Brokers) > 0 {
		sink := accesslog.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer func() {
			if err := sink.Close(); err != nil {
				log.Errorf("[server] failed to close Kafka writer: %v", err)
			}
		}()
		deps.AccessLog = sink
		log.Infof("[server] access log goes to Kafka topic %s", cfg.Kafka.Topic)
	}

	monitoring.Register(prometheus.DefaultRegisterer, live.Collectors()...)

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           web.New(deps).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Infof("[server] starting on %v with %s storage", cfg.HTTP.Addr, cfg.Storage.Type)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigChan:
	case err := <-errChan:
		log.Errorf("[server] failed to start: %v", err)
		return err
	}

	shutdownCtx, shutdownRelease := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownRelease()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("[server] HTTP server shutdown error: %v", err)
		return err
	}
	log.Info("[server] HTTP server shut down gracefully")
	return nil
}

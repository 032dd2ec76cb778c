// Command vulnapi serves the vulnerability evaluator as an HTTP service.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/quay/zlog"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jdobes/vmaas-oval/evaluator"
	"github.com/jdobes/vmaas-oval/ovaldb"
	"github.com/jdobes/vmaas-oval/ovalcache"
	"github.com/jdobes/vmaas-oval/vulnapi"
)

func main() {
	os.Exit(run())
}

func run() int {
	database := flag.String("database", "database.sqlite", "sqlite DB file path")
	addr := flag.String("listen", ":8000", "HTTP listen address")
	verbose := flag.Bool("verbose", false, "verbose output")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true}).
		With().Timestamp().Logger()
	if *verbose {
		log = log.Level(zerolog.DebugLevel)
	} else {
		log = log.Level(zerolog.InfoLevel)
	}
	zlog.Set(&log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Str("database", *database).Msg("opening OVAL store")
	store, err := ovaldb.Open(*database)
	if err != nil {
		log.Error().Err(err).Msg("failed to open OVAL store")
		return 1
	}
	defer store.Close()

	cache, err := ovalcache.Load(ctx, store)
	if err != nil {
		log.Error().Err(err).Msg("failed to load OVAL cache")
		return 1
	}
	log.Info().Msg("OVAL cache loaded, accepting connections")

	svc := evaluator.New(cache)
	h := vulnapi.NewHandler(svc)
	srv := &http.Server{
		Addr:        *addr,
		Handler:     h,
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", *addr).Msg("starting http server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return srv.Shutdown(context.Background())
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server exited with error")
		return 1
	}
	return 0
}

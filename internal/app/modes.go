package app

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/arvida42/skyflip/internal/feed"
	"github.com/arvida42/skyflip/internal/oracle"
	"github.com/arvida42/skyflip/internal/pipeline"
	"github.com/arvida42/skyflip/internal/server"
	"github.com/arvida42/skyflip/internal/server/handler"
	"github.com/arvida42/skyflip/internal/server/ws"
	"github.com/arvida42/skyflip/internal/valuation"
)

// SweepMode runs the ingestion loop: fetch the auction snapshot, decode and
// value every listing, refresh floor prices on sampling sweeps, archive
// expired listings, and scan for flips.
func (a *App) SweepMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting sweep mode")

	g, ctx := errgroup.WithContext(ctx)

	sweeper := a.buildSweeper(deps)
	g.Go(func() error {
		return sweeper.RunLoop(ctx, a.cfg.Sweep.Interval.Duration)
	})

	return g.Wait()
}

// ServerMode runs the read-only HTTP and WebSocket facade without ingesting.
// Another instance in sweep mode is expected to feed the shared stores.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps)

	return g.Wait()
}

// FullMode runs the sweep loop and the API server in one process.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	sweeper := a.buildSweeper(deps)
	g.Go(func() error {
		return sweeper.RunLoop(ctx, a.cfg.Sweep.Interval.Duration)
	})

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps)
	}

	return g.Wait()
}

// buildSweeper assembles the full ingestion pipeline: the upstream feed
// client, the price oracle, the valuator, and the flip detector.
func (a *App) buildSweeper(deps *Dependencies) *pipeline.Sweeper {
	feedClient := feed.NewClient(a.cfg.Hypixel.BaseURL, a.cfg.Hypixel.APIKey)
	if a.cfg.Hypixel.RateLimit > 0 {
		feedClient = feedClient.WithRateLimiter(
			deps.RateLimiter,
			a.cfg.Hypixel.RateLimit,
			a.cfg.Hypixel.RateWindow.Duration,
		)
	}

	priceOracle := oracle.New(
		deps.PriceCache,
		deps.PriceStore,
		feedClient,
		oracle.Config{Exclusions: a.cfg.Oracle.Exclusions},
		a.logger,
	)
	valuator := valuation.New(priceOracle, a.logger)

	detector := pipeline.NewDetector(
		deps.ListingStore,
		deps.NotifiedSet,
		deps.FlipBus,
		deps.Notifier,
		pipeline.DetectorConfig{
			MinProfit:        a.cfg.Flips.MinProfit,
			OutbidBuffer:     a.cfg.Flips.OutbidBuffer,
			ModifierDiscount: a.cfg.Flips.ModifierDiscount,
			IconBaseURL:      a.cfg.Flips.IconBaseURL,
		},
		a.logger,
	)

	return pipeline.NewSweeper(
		feedClient,
		deps.ListingStore,
		valuator,
		priceOracle,
		detector,
		deps.Archiver,
		a.cfg.Sweep.SampleCadence,
		a.logger,
	)
}

// startHTTPServer registers the API server and WebSocket hub on the errgroup
// and shuts the server down when the context is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	hub := ws.NewHub(deps.FlipBus, a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	handlers := server.Handlers{
		Health: handler.NewHealthHandler(deps.ListingStore, a.logger),
		Flips:  handler.NewFlipHandler(deps.ListingStore, a.logger),
		Prices: handler.NewPriceHandler(deps.PriceStore, a.cfg.Aliases, a.logger),
	}

	srv := server.NewServer(
		server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
			APIKey:      a.cfg.Server.APIKey,
			RateLimit:   a.cfg.Server.RateLimit,
			RateWindow:  a.cfg.Server.RateWindow.Duration,
		},
		handlers,
		hub,
		deps.RateLimiter,
		a.logger,
	)

	g.Go(func() error {
		a.logger.InfoContext(ctx, "HTTP server listening",
			slog.Int("port", a.cfg.Server.Port),
		)
		if err := srv.Start(); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		return srv.Shutdown(context.Background())
	})
}

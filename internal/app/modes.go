package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fundrail/fundrail/internal/server"
	"github.com/fundrail/fundrail/internal/server/handler"
	"github.com/fundrail/fundrail/internal/server/ws"
	"github.com/fundrail/fundrail/internal/service"
)

// services bundles the constructed service layer shared by the modes.
type services struct {
	campaigns *service.CampaignService
	pledges   *service.PledgeService
	deploys   *service.DeployService
	syncs     *service.SyncService
	backers   *service.BackerService
	media     *service.MediaService
}

// buildServices constructs the service layer from wired dependencies.
func (a *App) buildServices(deps *Dependencies) *services {
	svcs := &services{
		campaigns: service.NewCampaignService(
			deps.CampaignStore, deps.TierStore, deps.CampaignCache,
			deps.AuditStore, a.cfg.Pledge.MinContributionUSDC, a.logger,
		),
		pledges: service.NewPledgeService(
			deps.CampaignStore, deps.TierStore, deps.PledgeStore,
			deps.CampaignCache, deps.SignalBus, deps.AuditStore,
			a.cfg.Pledge.MinContributionUSDC, a.logger,
		),
		deploys: service.NewDeployService(
			deps.CampaignStore, deps.CampaignCache, deps.LedgerReader,
			deps.SignalBus, deps.AuditStore, a.logger,
		),
		syncs: service.NewSyncService(
			deps.CampaignStore, deps.CampaignCache, deps.LedgerReader,
			deps.LockManager, deps.SignalBus, deps.AuditStore,
			a.cfg.Sync.Interval.Duration, a.cfg.Sync.LockTTL.Duration,
			a.cfg.Sync.BatchSize, a.logger,
		),
		backers: service.NewBackerService(deps.BackerStore, a.logger),
	}
	if deps.MediaStore != nil {
		svcs.media = service.NewMediaService(deps.MediaStore, a.logger)
	}
	return svcs
}

// ServeMode runs the HTTP API and websocket hub without the periodic sync
// worker. On-demand reconciliation stays available via the sync endpoint.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps, a.buildServices(deps))
	return g.Wait()
}

// SyncMode runs only the periodic reconciliation worker.
func (a *App) SyncMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting sync mode")

	g, ctx := errgroup.WithContext(ctx)
	svcs := a.buildServices(deps)
	g.Go(func() error {
		return svcs.syncs.RunPeriodic(ctx)
	})
	return g.Wait()
}

// FullMode runs the HTTP API, the websocket hub, and the periodic sync
// worker together.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	svcs := a.buildServices(deps)

	g.Go(func() error {
		return svcs.syncs.RunPeriodic(ctx)
	})

	a.startHTTPServer(ctx, g, deps, svcs)
	return g.Wait()
}

// startHTTPServer adds the HTTP server and websocket hub goroutines to the
// errgroup. The server shuts down gracefully when the context is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, svcs *services) {
	pingers := map[string]handler.Pinger{
		"postgres": handler.PingerFunc(deps.PG.Pool().Ping),
		"redis":    handler.PingerFunc(deps.Redis.Ping),
	}
	if deps.S3 != nil {
		pingers["s3"] = handler.PingerFunc(deps.S3.Health)
	}

	var mediaHandler *handler.MediaHandler
	if svcs.media != nil {
		mediaHandler = handler.NewMediaHandler(svcs.media, a.logger)
	}

	handlers := server.Handlers{
		Health:    handler.NewHealthHandler(pingers, a.logger),
		Campaigns: handler.NewCampaignHandler(svcs.campaigns, svcs.deploys, svcs.syncs, a.logger),
		Pledges:   handler.NewPledgeHandler(svcs.pledges, a.logger),
		Backers:   handler.NewBackerHandler(svcs.backers, a.logger),
		Media:     mediaHandler,
	}

	hub := ws.NewHub(deps.SignalBus, a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Pledge.RateLimitPerMinute,
		RateWindow:  time.Minute,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

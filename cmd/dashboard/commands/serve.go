package commands

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sebastiankruger/steelmill-kpi/internal/analytics"
	"github.com/sebastiankruger/steelmill-kpi/internal/api"
	"github.com/sebastiankruger/steelmill-kpi/internal/card"
	"github.com/sebastiankruger/steelmill-kpi/internal/dashboard"
	"github.com/sebastiankruger/steelmill-kpi/internal/health"
	"github.com/sebastiankruger/steelmill-kpi/internal/opcua"
	"github.com/sebastiankruger/steelmill-kpi/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard service",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func runServe() error {
	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("name", cfg.ServiceName).
		Int("http_port", cfg.HTTPPort).
		Int("opcua_port", cfg.OPCUAPort).
		Dur("refresh_interval", cfg.RefreshInterval).
		Msg("Configuration loaded")

	// Card store
	cardStore, err := store.OpenSQLite(cfg.DBPath())
	if err != nil {
		log.Error().Err(err).Msg("Failed to open card store")
		return err
	}
	defer cardStore.Close()

	// Local fallback store
	var local *store.LocalStore
	if cfg.LocalFallback {
		local, err = store.OpenLocal(cfg.LocalStorePath())
		if err != nil {
			log.Warn().Err(err).Msg("Failed to open local store, fallback disabled")
			local = nil
		}
	}

	// Lifecycle facade
	dash := dashboard.New(dashboard.Options{
		RefreshInterval: cfg.RefreshInterval,
		ClockInterval:   cfg.ClockInterval,
		RetryAttempts:   cfg.RetryAttempts,
		RetryDelay:      cfg.RetryDelay,
		LocalFallback:   cfg.LocalFallback,
	}, cardStore, local)
	defer dash.Close()

	dash.SetAnalytics(analytics.NewClient(cfg.AnalyticsEndpoint))

	if cfg.StartOffline {
		dash.SetOnline(ctx, false)
	}

	cards := dash.Load(ctx)
	log.Info().Int("cards", len(cards)).Str("state", string(dash.State())).Msg("Initial load complete")

	if len(cards) == 0 {
		layout, lerr := dashboard.LoadLayout(cfg.LayoutPath)
		if lerr != nil {
			log.Warn().Err(lerr).Msg("Layout file invalid, using built-in defaults")
			layout = dashboard.DefaultLayout()
		}
		if serr := dash.Seed(ctx, layout); serr != nil {
			log.Warn().Err(serr).Msg("Seeding default layout did not fully persist")
		}
	}

	// OPC UA export
	var opcuaServer *opcua.Server
	if cfg.OPCUAEnable {
		opcuaServer = opcua.NewServer(cfg.OPCUAPort, cfg.ServiceName)
		if err := opcuaServer.Start(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to start OPC UA server")
			return err
		}
		opcuaServer.SyncCards(dash.Cards())
		dash.SetRefreshHook(func(cards []card.Card) {
			opcuaServer.SyncCards(cards)
		})
	}

	dash.Start()

	// Mirror store-side changes into the local snapshot
	unsubscribe := cardStore.SubscribeToCards(func(cards []card.Card) {
		if local != nil {
			if err := local.SaveSnapshot(cards); err != nil {
				log.Warn().Err(err).Msg("Failed to mirror store change to local snapshot")
			}
		}
	})
	defer unsubscribe()

	// HTTP server
	healthHandler := health.NewHandler()
	healthHandler.SetStoreReady(true)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler.HandleHealth)
	mux.HandleFunc("/health/live", healthHandler.HandleLive)
	mux.HandleFunc("/health/ready", healthHandler.HandleReady)
	api.NewHandler(cfg.ServiceName, dash).Register(mux)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Int("port", cfg.HTTPPort).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		dash.Close()
		if opcuaServer != nil {
			if err := opcuaServer.Stop(shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("OPC UA server shutdown error")
			}
		}
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Service exited with error")
		return err
	}

	log.Info().Msg("Shutdown complete")
	return nil
}

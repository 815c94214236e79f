package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/airzone/internal/api"
	"github.com/sells-group/airzone/internal/config"
	"github.com/sells-group/airzone/internal/fetcher"
	"github.com/sells-group/airzone/internal/geospatial"
	"github.com/sells-group/airzone/internal/overlay"
	"github.com/sells-group/airzone/internal/store"
	"github.com/sells-group/airzone/internal/uas"
	"github.com/sells-group/airzone/internal/zone"
	"github.com/sells-group/airzone/pkg/vworld"
)

var (
	servePort   int
	serveEnable []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve overlays, basemap tiles and the VWorld proxy over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer st.Close() //nolint:errcheck

		handler, reg, err := buildRouter(cfg, newVWorldClient(cfg), st, newFetcher(cfg))
		if err != nil {
			return err
		}

		if len(serveEnable) > 0 {
			kinds := make([]overlay.Kind, 0, len(serveEnable))
			for _, name := range serveEnable {
				k, err := overlay.ParseKind(name)
				if err != nil {
					return err
				}
				kinds = append(kinds, k)
			}
			// A failed kind stays disabled and the rest still load; clients can retry.
			if err := reg.EnableAll(ctx, kinds, vworld.KoreaBBox); err != nil {
				zap.L().Warn("preload overlays", zap.Error(err))
			}
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// buildRouter wires the overlay registry, tile proxy and data proxy into
// the HTTP API.
func buildRouter(c *config.Config, vw vworld.Client, st store.Store, f fetcher.Fetcher) (http.Handler, *overlay.Registry, error) {
	segments := c.Overlay.CircleSegments
	router := overlay.Router{
		overlay.KindUAS: overlay.NewRecordSource(uasRecords(c, st, f), segments),
	}
	vsrc := overlay.NewVWorldSource(vw)
	for _, k := range overlay.Kinds() {
		if _, ok := k.Layer(); ok {
			router[k] = vsrc
		}
	}
	reg := overlay.NewRegistry(router, overlay.NewStyles(c.Overlay.Styles))

	cache := geospatial.NewTileCache(c.Tiles.CacheEntries, time.Duration(c.Tiles.CacheTTLMinutes)*time.Minute)
	dataProxy, err := geospatial.NewDataProxy(c.VWorld.BaseURL, "/vworld")
	if err != nil {
		return nil, nil, err
	}

	srv := api.NewServer(api.Deps{
		Registry:    reg,
		Tiles:       geospatial.NewTileProxy(vw.WMTSURL, cache),
		DataProxy:   dataProxy,
		Map:         c.Map,
		CORSOrigins: c.Server.CORSOrigins,
	})
	return srv.Routes(), reg, nil
}

// uasRecords serves the latest stored import, falling back to loading the
// configured dataset when nothing has been imported.
func uasRecords(c *config.Config, st store.Store, f fetcher.Fetcher) overlay.RecordsFunc {
	return func(ctx context.Context) ([]zone.Record, error) {
		if st != nil {
			imp, err := st.LatestImport(ctx)
			if err != nil {
				return nil, err
			}
			if imp != nil {
				return st.ListZones(ctx, imp.ID)
			}
		}
		if c.UAS.Source == "" {
			return nil, eris.New("no uas import stored and uas.source is not set")
		}
		report, err := uas.Load(ctx, f, c.UAS.Source, datasetOptions(c))
		if err != nil {
			return nil, err
		}
		return report.Records, nil
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().StringSliceVar(&serveEnable, "enable", nil, "overlay kinds to load at startup")
	rootCmd.AddCommand(serveCmd)
}

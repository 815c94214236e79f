package main

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/airzone/internal/config"
	"github.com/sells-group/airzone/internal/fetcher"
	"github.com/sells-group/airzone/internal/resilience"
	"github.com/sells-group/airzone/internal/uas"
	"github.com/sells-group/airzone/pkg/vworld"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "airzone",
	Short: "Korean airspace restriction overlays",
	Long:  "Parses UAS flight-zone datasets and VWorld airspace layers into map overlays, exports them, and serves them over HTTP.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// writeOutput encodes v as "json" or "yaml".
func writeOutput(w io.Writer, format string, v any) error {
	switch format {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return eris.Errorf("unknown output format %q (want json or yaml)", format)
	}
}

func newFetcher(c *config.Config) fetcher.Fetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		Timeout:    time.Duration(c.VWorld.TimeoutSecs) * time.Second,
		MaxRetries: c.VWorld.MaxRetries,
	})
}

func newVWorldClient(c *config.Config) vworld.Client {
	retry := resilience.DefaultRetryConfig().WithAttempts(c.VWorld.MaxRetries)
	return vworld.NewClient(c.VWorld.Key,
		vworld.WithBaseURL(c.VWorld.BaseURL),
		vworld.WithWMTSURL(c.VWorld.WMTSURL),
		vworld.WithDomain(c.VWorld.Domain),
		vworld.WithPageSize(c.VWorld.PageSize),
		vworld.WithRateLimit(c.VWorld.RateLimit),
		vworld.WithRetry(retry),
		vworld.WithHTTPClient(&http.Client{Timeout: time.Duration(c.VWorld.TimeoutSecs) * time.Second}),
	)
}

func datasetOptions(c *config.Config) uas.Options {
	return uas.Options{
		Columns:   uas.Columns(c.UAS.Columns),
		Encoding:  c.UAS.Encoding,
		Delimiter: fetcher.ParseDelimiter(c.UAS.Delimiter),
		Sheet:     c.UAS.Sheet,
	}
}

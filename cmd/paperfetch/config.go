// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/paperfetch/internal/acquire"
	"github.com/pdiddy/paperfetch/internal/httputil"
	"github.com/pdiddy/paperfetch/internal/ledger"
	"github.com/pdiddy/paperfetch/internal/mirror"
	"github.com/pdiddy/paperfetch/internal/search"
	"github.com/pdiddy/paperfetch/pkg/types"
)

// flagKeys maps command-line flags to configuration keys. Flags are bound
// only for the command being run, so several commands can share a key.
var flagKeys = map[string]string{
	"log-level":        "log.level",
	"log-dev":          "log.development",
	"proxy":            "fetcher.proxy",
	"max-attempts":     "fetcher.max_attempts",
	"mirror-directory": "fetcher.mirror_directory",
	"backend":          "search.backend",
	"limit":            "search.limit",
	"output":           "acquisition.output_dir",
	"total":            "acquisition.total_desired",
	"delay":            "acquisition.download_delay",
	"history-db":       "acquisition.history_db",
	"model":            "querygen.model",
}

func bindFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			_ = viper.BindPFlag(key, f)
		}
	})
}

// setDefaults registers every configuration key so environment variables
// and Unmarshal can see it.
func setDefaults(v *viper.Viper, d types.Config) {
	v.SetDefault("fetcher.request_timeout", d.Fetcher.RequestTimeout)
	v.SetDefault("fetcher.max_attempts", d.Fetcher.MaxAttempts)
	v.SetDefault("fetcher.retry_delay", d.Fetcher.RetryDelay)
	v.SetDefault("fetcher.captcha_wait", d.Fetcher.CaptchaWait)
	v.SetDefault("fetcher.max_backoff", d.Fetcher.MaxBackoff)
	v.SetDefault("fetcher.proxy", d.Fetcher.Proxy)
	v.SetDefault("fetcher.proxies", []string{})
	v.SetDefault("fetcher.mirrors", []string{})
	v.SetDefault("fetcher.mirror_directory", d.Fetcher.MirrorDirectory)
	v.SetDefault("fetcher.mirror_marker", d.Fetcher.MirrorMarker)

	v.SetDefault("search.request_timeout", d.Search.RequestTimeout)
	v.SetDefault("search.backend", d.Search.Backend)
	v.SetDefault("search.base_url", d.Search.BaseURL)
	v.SetDefault("search.page_size", d.Search.PageSize)
	v.SetDefault("search.min_delay", d.Search.MinDelay)
	v.SetDefault("search.max_delay", d.Search.MaxDelay)
	v.SetDefault("search.max_rate_limit_retries", d.Search.MaxRateLimitRetries)
	v.SetDefault("search.limit", d.Search.Limit)

	v.SetDefault("acquisition.per_query_limit", d.Acquisition.PerQueryLimit)
	v.SetDefault("acquisition.total_desired", d.Acquisition.TotalDesired)
	v.SetDefault("acquisition.query_delay_min", d.Acquisition.QueryDelayMin)
	v.SetDefault("acquisition.query_delay_max", d.Acquisition.QueryDelayMax)
	v.SetDefault("acquisition.download_delay", d.Acquisition.DownloadDelay)
	v.SetDefault("acquisition.output_dir", d.Acquisition.OutputDir)
	v.SetDefault("acquisition.history_db", d.Acquisition.HistoryDB)

	v.SetDefault("querygen.model", d.QueryGen.Model)
	v.SetDefault("querygen.base_url", d.QueryGen.BaseURL)
	v.SetDefault("querygen.temperature", d.QueryGen.Temperature)
	v.SetDefault("querygen.api_key", "")

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.development", d.Log.Development)
}

// loadConfig decodes the merged defaults, config file, environment, and
// bound flags into a validated Config.
func loadConfig() (types.Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (types.Config, error) {
	c := types.DefaultConfig()
	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decoding configuration: %w", err)
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// newProxyRotator parses the configured proxy list.
func newProxyRotator() (*httputil.ProxyRotator, error) {
	rot, err := httputil.NewProxyRotator(cfg.Fetcher.ProxyList())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidConfig, err)
	}
	return rot, nil
}

// newRegistry seeds a mirror registry from configuration. discover
// refreshes it from the mirror directory when no mirrors are configured.
func newRegistry(ctx context.Context, proxies *httputil.ProxyRotator, discover bool) *mirror.Registry {
	fc := cfg.Fetcher
	reg := mirror.NewRegistry(mirror.Options{
		Client: httputil.NewClient(httputil.ClientOptions{
			Timeout:     fc.RequestTimeout,
			Proxies:     proxies,
			InsecureTLS: true,
		}),
		DirectoryURL: fc.MirrorDirectory,
		Marker:       fc.MirrorMarker,
		Seed:         fc.Mirrors,
		Log:          logger,
	})
	if discover && reg.Len() == 0 {
		if err := reg.Refresh(ctx); err != nil {
			logger.Warn("mirror discovery failed, only direct PDF links can be fetched", zap.Error(err))
		}
	}
	return reg
}

// newFetcher builds the fetcher shared by the fetch, search, and acquire commands.
func newFetcher(ctx context.Context) (*acquire.Fetcher, error) {
	proxies, err := newProxyRotator()
	if err != nil {
		return nil, err
	}
	reg := newRegistry(ctx, proxies, true)
	return acquire.NewFetcher(cfg.Fetcher, reg, proxies, logger), nil
}

// newSearcher builds the configured search backend.
func newSearcher() (search.Backend, error) {
	proxies, err := newProxyRotator()
	if err != nil {
		return nil, err
	}
	client := httputil.NewClient(httputil.ClientOptions{
		Timeout: cfg.Search.RequestTimeout,
		Proxies: proxies,
	})
	return search.New(cfg.Search, client, logger)
}

// openHistory opens the acquisition ledger, or returns nil when it is
// disabled.
func openHistory() (*ledger.Store, error) {
	if cfg.Acquisition.HistoryDB == "" {
		return nil, nil
	}
	store, err := ledger.Open(cfg.Acquisition.HistoryDB)
	if err != nil {
		return nil, fmt.Errorf("opening history %s: %w", cfg.Acquisition.HistoryDB, err)
	}
	return store, nil
}

// reportDroppedMirrors lists the mirrors a run marked exhausted.
func reportDroppedMirrors(w io.Writer, reg *mirror.Registry) {
	dropped := reg.Dropped()
	if len(dropped) == 0 {
		return
	}
	fmt.Fprintf(w, "\nMirrors dropped this run (%d, %d left):\n", len(dropped), reg.Len())
	for _, m := range dropped {
		fmt.Fprintf(w, "  %s  %s\n", m.URL, m.Status)
	}
}

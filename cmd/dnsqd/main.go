// Command dnsqd serves the dnsq lookup API. It answers every lookup by
// sending one DNS question to the requested upstream resolver.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lc/dnsq/internal/buildinfo"
	"github.com/lc/dnsq/internal/config"
	"github.com/lc/dnsq/internal/dnsresolver"
	"github.com/lc/dnsq/internal/filesys"
	"github.com/lc/dnsq/internal/log"
	"github.com/lc/dnsq/pkg/api"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:          "dnsqd",
		Short:        "dnsq lookup API daemon",
		Version:      buildinfo.Version,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		Run: func(_ *cobra.Command, _ []string) {
			serve(configPath)
		},
	}
	root.Flags().StringVar(&configPath, "config", "", "config file (default ~/"+config.DefaultConfigPath+")")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serve(configPath string) {
	// load config
	provider := config.New()
	if configPath != "" {
		provider = config.NewWithPath(filesys.OS(), configPath)
	}
	cfg, err := provider.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	defer log.Sync()

	// build deps
	res := dnsresolver.New(cfg.Server.QueryTimeout, dnsresolver.WithRetries(cfg.Server.Retries))
	apiSrv := api.New(res,
		api.WithDNSPort(cfg.Server.DNSPort),
		api.WithJWTSecret(cfg.Server.JWTSecret),
		api.WithRateLimit(cfg.Server.RateLimit),
	)

	log.Info("dnsqd starting",
		"version", buildinfo.Version,
		"commit", buildinfo.Commit,
		"listen", cfg.Server.Listen,
		"query_timeout", cfg.Server.QueryTimeout,
		"auth", cfg.Server.JWTSecret != "",
	)

	go func() {
		if err := apiSrv.ListenAndServe(cfg.Server.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("api listen: %v", err)
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	<-sig
	log.Info("shutting down…")

	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()

	if err := apiSrv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("api shutdown error: %v", err)
	}
}

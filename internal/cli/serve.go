package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vaultgen/vaultgen/internal/api"
	"github.com/vaultgen/vaultgen/internal/app/cooldown"
	"github.com/vaultgen/vaultgen/internal/app/dispatch"
	"github.com/vaultgen/vaultgen/internal/app/statusrole"
	"github.com/vaultgen/vaultgen/internal/app/vouch"
	"github.com/vaultgen/vaultgen/internal/config"
	"github.com/vaultgen/vaultgen/internal/domain"
	"github.com/vaultgen/vaultgen/internal/gateway"
	"github.com/vaultgen/vaultgen/internal/infra/banlist"
	"github.com/vaultgen/vaultgen/internal/infra/roster"
	"github.com/vaultgen/vaultgen/internal/infra/sqlite"
	"github.com/vaultgen/vaultgen/internal/infra/stock"
)

// sweepInterval is the cadence of the vouch expiry and ban purge loops.
const sweepInterval = 30 * time.Second

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot",
	Long:  `Start the HTTP surface and background loops using the configured stores.`,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if !cfg.TokenConfigured() {
		return fmt.Errorf("bot token not configured; edit %s and set [bot].token", configPath)
	}

	dataDir := cfg.Bot.DataDir
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	st, err := stock.New(filepath.Join(dataDir, "stock"), logger)
	if err != nil {
		return err
	}
	bans, err := banlist.Open(filepath.Join(dataDir, "bans.json"))
	if err != nil {
		return err
	}
	admins, err := roster.Open(filepath.Join(dataDir, "admins.json"))
	if err != nil {
		return err
	}
	db, err := sqlite.Open(dataDir)
	if err != nil {
		return err
	}
	defer db.Close()

	gw, err := gateway.New(gateway.Config{
		BaseURL:  cfg.Gateway.BaseURL,
		Token:    cfg.Bot.Token,
		ProxyURL: cfg.Gateway.SocksProxy,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	durations := make(map[domain.Tier]time.Duration)
	for _, tier := range domain.Tiers() {
		durations[tier] = cfg.CooldownFor(tier)
	}
	gate := cooldown.New(durations)

	vouches := vouch.New(vouch.Config{
		Grace:      cfg.GracePeriod(),
		TimeoutBan: cfg.TimeoutBan(),
		Channel:    cfg.Channels.Vouch,
		Logger:     logger,
	}, bans, db, gw)

	dispatcher := dispatch.New(&cfg, configPath, st, bans, admins, gate, vouches, db, gw, logger)

	guildID := ""
	if len(cfg.Bot.AllowedGuildIDs) > 0 {
		guildID = cfg.Bot.AllowedGuildIDs[0]
	}
	status := statusrole.New(statusrole.Config{
		GuildID:     guildID,
		RoleID:      cfg.Status.RoleID,
		MustContain: cfg.Status.MustContain,
		LogChannel:  cfg.Status.LogChannel,
		Logger:      logger,
	}, db, gw, gw)
	if status.Enabled() {
		if users, err := db.GrantedStatusUsers(guildID); err != nil {
			logger.Error("restore status roles", "error", err)
		} else {
			status.Restore(users)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go vouches.Run(ctx, sweepInterval)
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				dispatcher.SweepExpiredBans(ctx)
			}
		}
	}()

	server := api.NewServer(dispatcher, vouches, status, st, bans, db, cfg.API.WebhookSecret)
	if cfg.API.EnableMetrics {
		server.EnableMetrics()
	}
	httpServer := &http.Server{
		Addr:    cfg.API.Listen,
		Handler: server.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.API.Listen)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

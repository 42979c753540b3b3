package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/okian/autorole/internal/adapters/discord"
	"github.com/okian/autorole/internal/adapters/http/api"
	"github.com/okian/autorole/internal/adapters/notify"
	service "github.com/okian/autorole/internal/app"
	"github.com/okian/autorole/internal/config"
	"github.com/okian/autorole/internal/domain/dedupe"
	"github.com/okian/autorole/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Discord bot and the HTTP API",
		Long: `serve loads configuration from defaults, the YAML file named by
AUTOROLE_CONFIG and AUTOROLE_* environment variables, then serves the HTTP API.
The Discord front end runs when a discord_token is configured.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			// Load configuration (defaults -> optional file -> env)
			cfg, err := config.Load(ctx)
			if err != nil {
				return err
			}
			if err := logger.InitWith(os.Stdout, logger.Format(cfg.LogFormat)); err != nil {
				return err
			}

			// Apply configured log level (fallback to info on invalid input)
			if err := logger.SetLevelString(cfg.LogLevel); err != nil {
				logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
				_ = logger.SetLevelString("info")
			}
			return serve(ctx, cfg)
		},
	}
}

// serve runs every front end until ctx ends or one of them fails, then drains
// the request queues.
func serve(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()

	opts := []service.Option{
		service.WithLogger(log.Named("service")),
		service.WithCatalogPath(cfg.CatalogPath),
		service.WithProfileBaseURL(cfg.ProfileBaseURL),
		service.WithCompletionistAchievements(cfg.CompletionistAchievements),
		service.WithAcquisitionTimeout(cfg.AcquisitionTimeout()),
		service.WithQueueCapacity(cfg.QueueCapacity),
		service.WithDryRun(cfg.DryRun),
		service.WithRoleNames(cfg.RoleNames),
	}

	var session *discordgo.Session
	ack := notify.Notifier(notify.NewLog(nil))
	if cfg.DiscordEnabled() {
		s, err := discord.NewSession(cfg.DiscordToken)
		if err != nil {
			return err
		}
		session = s
		ack = notify.Fanout{
			notify.NewLog(nil),
			discord.NewNotifier(s, discord.WithModerators(cfg.ModeratorIDs...)),
		}
		opts = append(opts, service.WithGuild(discord.NewGuild(s)))
	}
	opts = append(opts, service.WithNotifier(ack))

	svc := service.New(opts...)
	if err := svc.Start(ctx); err != nil {
		return err
	}

	apiServer := api.NewServer(svc, svc.Gate(), svc,
		api.WithAdminToken(cfg.AdminToken),
		api.WithDefaultGuild(cfg.GuildID),
		api.WithLanguages(cfg.Languages),
		api.WithAcknowledger(notify.NewLog(nil)),
		api.WithDeduper(dedupe.NewMemory()),
	)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           apiServer.Router(),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if session != nil {
		bot := discord.NewBot(session, svc, svc.Gate(), ack,
			discord.WithGuild(cfg.GuildID),
			discord.WithRequestChannel(cfg.RequestChannelID),
			discord.WithAdmin(cfg.AdminUserID),
			discord.WithLanguages(cfg.Languages),
			discord.WithDeduper(dedupe.NewMemory()),
		)
		g.Go(func() error { return discord.Run(gctx, session, bot) })
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info(gctx, "shutting down...")

		// Graceful shutdown with timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		if err := svc.Stop(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})

	err := g.Wait()
	if err != nil {
		log.Error(ctx, "stopped with error", logger.Error(err))
		return err
	}
	log.Info(ctx, "server stopped")
	return nil
}

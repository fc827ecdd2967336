// invitehound-monitor runs the whole pipeline in one process: the Reddit
// pull loop, the Discord gateway intake, the optional report ticker, and
// the status dashboard, all sharing one in-memory PipelineState
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"invitehound/internal/adapters/ocr"
	"invitehound/internal/adapters/source/discord"
	"invitehound/internal/adapters/source/reddit"
	"invitehound/internal/adapters/telegram"
	"invitehound/internal/platform/config"
	"invitehound/internal/platform/logger"
	phttp "invitehound/internal/platform/net/http"
	"invitehound/internal/platform/net/middleware"
	"invitehound/internal/platform/store"
	"invitehound/internal/services/monitor/archive"
	"invitehound/internal/services/monitor/domain"
	"invitehound/internal/services/monitor/service"
	"invitehound/internal/services/status"
)

const (
	superviseAttempts = 10
	superviseDelay    = 60 * time.Second
)

func main() {
	// .env is for local runs, production sets real env
	_ = godotenv.Load()

	logger.Init(logger.FromEnv())
	log := logger.Get()

	root := config.New()
	monCfg := root.Prefix("MONITOR_")
	redditCfg := root.Prefix("REDDIT_")
	discordCfg := root.Prefix("DISCORD_")
	telegramCfg := root.Prefix("TELEGRAM_")
	ocrCfg := root.Prefix("OCR_")
	dbCfg := root.Prefix("SERVICE_PGSQL_")
	apiCfg := root.Prefix("CORE_API_")

	telegramCfg.Require("TOKEN", "CHAT_ID")
	redditCfg.Require("POST_URL")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// optional archive store
	st, err := store.Open(ctx, store.Config{
		Enabled:  dbCfg.MayBool("ENABLED", false),
		URL:      dbCfg.MayString("URL", ""),
		MaxConns: int32(dbCfg.MayInt("MAX_CONNS", 4)),
	})
	if err != nil {
		log.Panic().Err(err).Msg("store open failed")
	}
	defer st.Close()

	var arch domain.ArchivePort
	if pg := archive.NewPG(st); pg != nil {
		if err := pg.Migrate(ctx); err != nil {
			log.Panic().Err(err).Msg("archive migrate failed")
		}
		arch = pg
	}

	state := domain.NewPipelineState(monCfg.MayInt("SEEN_BOUND", 0), time.Now())

	notifier := telegram.NewNotifier(telegram.Options{
		Token:  telegramCfg.MustString("TOKEN"),
		ChatID: telegramCfg.MustString("CHAT_ID"),
	})

	ocrEnabled := ocrCfg.MayBool("ENABLED", true) && ocrCfg.MayString("API_KEY", "") != ""
	var resolver domain.ResolverPort
	if ocrEnabled {
		resolver = ocr.NewClient(ocr.Options{APIKey: ocrCfg.MustString("API_KEY")})
	} else {
		log.Info().Msg("ocr disabled, image attachments will be skipped")
	}

	pipeCfg := service.FromConf(monCfg)

	svc, err := service.New(state, resolver, notifier, arch, pipeCfg)
	if err != nil {
		log.Panic().Err(err).Msg("monitor service init failed")
	}

	redditClient := reddit.NewClient(reddit.Options{
		PostURL:   redditCfg.MustString("POST_URL"),
		UserAgent: redditCfg.MayString("USER_AGENT", ""),
		Limit:     pipeCfg.PullBatch,
	})

	sourceLabels := []string{"REDDIT ACTIVE"}
	discordToken := discordCfg.MayString("TOKEN", "")
	discordEnabled := discordToken != "" && discordCfg.MayString("CHANNEL_ID", "") != ""
	if discordEnabled {
		sourceLabels = append(sourceLabels, "DISCORD ACTIVE")
	} else {
		log.Info().Msg("discord monitoring disabled (token or channel missing)")
	}

	srv := phttp.NewServer(apiCfg)
	router := srv.Router()
	router.Use(middleware.RequestID())
	router.Use(middleware.Recover)
	router.Use(middleware.AccessLog(middleware.AccessLogOptions{Slow: time.Second}))
	router.Use(middleware.CORS(middleware.CORSOptions{}))
	status.Register(router, status.Options{
		State:         state,
		SourceLabels:  sourceLabels,
		CheckInterval: pipeCfg.PollInterval,
		OCREnabled:    ocrEnabled,
	})

	errCh := make(chan error, 4)

	go func() {
		errCh <- service.Supervise(ctx, log, superviseAttempts, superviseDelay, func(ctx context.Context) error {
			return svc.RunPull(ctx, redditClient)
		})
	}()

	if discordEnabled {
		discordClient := discord.NewClient(discord.Options{
			Token:     discordToken,
			ChannelID: discordCfg.MustString("CHANNEL_ID"),
		})
		// discord is best-effort: if its supervisor gives up, the reddit
		// loop and the dashboard keep running
		go func() {
			err := service.Supervise(ctx, log, superviseAttempts, superviseDelay, func(ctx context.Context) error {
				return svc.RunPush(ctx, discordClient)
			})
			if err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("discord intake stopped")
			}
		}()
	}

	if every := monCfg.MaySeconds("REPORT_INTERVAL", 0); every > 0 {
		go svc.RunReports(ctx, every)
	}

	go func() { errCh <- srv.Run(ctx) }()

	log.Info().Str("addr", srv.Addr()).Bool("ocr", ocrEnabled).Bool("discord", discordEnabled).Msg("invitehound monitor started")

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("component exited, shutting down")
		}
	}
	stop()
}

package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"QueueFM/config"
	"QueueFM/db"
	"QueueFM/logger"
	"QueueFM/realtime"
	"QueueFM/repository"
	"QueueFM/service"
	"QueueFM/slackbot"
	"QueueFM/youtube"

	"github.com/gorilla/mux"
	"github.com/slack-go/slack"
)

// Start initializes all components and runs the HTTP server until interrupted.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	})

	loc, err := time.LoadLocation(cfg.QueueTimezone)
	if err != nil {
		logger.Fatal("invalid queue timezone",
			logger.String("timezone", cfg.QueueTimezone),
			logger.ErrorField(err))
	}

	if err := db.ConnectDB(cfg); err != nil {
		logger.Fatal("failed to connect to database", logger.ErrorField(err))
	}
	defer db.DB.Close()

	if err := db.InitDB(); err != nil {
		logger.Fatal("failed to initialize database", logger.ErrorField(err))
	}

	hub := realtime.NewHub()
	go hub.Run()
	defer hub.Stop()

	songRepo := repository.NewMySQLSongRepository(db.DB, loc)
	playlist := service.NewPlaylistService(songRepo, hub)

	ytClient := youtube.NewClient(cfg.YouTubeAPIKey)
	var resolver slackbot.Resolver = ytClient
	if err := db.ConnectRedis(cfg); err != nil {
		logger.Warn("redis unavailable, descriptor caching disabled", logger.ErrorField(err))
	} else {
		defer db.CloseRedis()
		resolver = youtube.NewCachedResolver(ytClient, db.RedisClient, cfg.DescriptorCacheTTL)
		logger.Info("connected to Redis")
	}

	router := mux.NewRouter()
	router.Use(corsMiddleware)

	playlistHandler := NewPlaylistHandler(playlist)
	playlistHandler.RegisterRoutes(router.PathPrefix("/api/playlist").Subrouter())

	wsHandler := NewWSHandler(hub)
	router.HandleFunc("/ws", wsHandler.ServeWS)

	slackCtx, cancelSlack := context.WithCancel(context.Background())
	defer cancelSlack()
	setupSlack(slackCtx, cfg, playlist, resolver, router)

	// Frontend UI serving.
	router.PathPrefix("/").Handler(http.FileServer(http.Dir(cfg.WebAppDir)))

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", logger.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", logger.ErrorField(err))
	}

	logger.Info("server stopped")
}

// setupSlack wires whichever Slack integration the configuration allows: the
// Socket Mode runner, or the signed HTTP receiver mounted under /slack.
func setupSlack(ctx context.Context, cfg *config.Config, playlist *service.PlaylistService, resolver slackbot.Resolver, router *mux.Router) {
	if cfg.SlackBotToken == "" {
		logger.Warn("slack integration disabled: SLACK_BOT_TOKEN not set")
		return
	}

	handler := slackbot.NewHandler(playlist, resolver, slack.New(cfg.SlackBotToken), slackbot.Limits{
		SearchResults: cfg.SearchResultLimit,
		Unplayed:      cfg.UnplayedDisplayLimit,
		Played:        cfg.PlayedDisplayLimit,
	})

	switch {
	case cfg.SlackSocketMode && cfg.SlackAppToken != "":
		go func() {
			if err := slackbot.RunSocketMode(ctx, handler, cfg.SlackBotToken, cfg.SlackAppToken); err != nil && ctx.Err() == nil {
				logger.Error("slack socket mode stopped", logger.ErrorField(err))
			}
		}()
	case cfg.SlackSigningSecret != "":
		receiver := slackbot.NewReceiver(handler, cfg.SlackSigningSecret)
		receiver.RegisterRoutes(router.PathPrefix("/slack").Subrouter())
	default:
		logger.Warn("slack integration disabled: set SLACK_SIGNING_SECRET or SLACK_APP_TOKEN with SLACK_SOCKET_MODE")
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, HEAD")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

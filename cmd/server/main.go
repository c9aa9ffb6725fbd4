package main

import (
	"net/http"
	"os"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"voicedesk/internal/agent"
	"voicedesk/internal/config"
	"voicedesk/internal/conversation"
	"voicedesk/internal/dispatch"
	"voicedesk/internal/mockstore"
	"voicedesk/internal/platform/ffmpeg"
	"voicedesk/internal/report"
	"voicedesk/web"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))

	godotenv.Load(*envFile)

	// 1. Configuration
	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		log.Error("Invalid configuration", "err", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(cfg.AudioDir, 0o755); err != nil {
		log.Error("Failed to create audio dir", "dir", cfg.AudioDir, "err", err)
		os.Exit(1)
	}

	// 2. Clients
	llm := agent.NewTextClient(cfg.APIKey, cfg.LLMBaseURL, cfg.LLMModel)
	stt := agent.NewGoogleTranscriber(cfg.APIKey, cfg.ProjectID, cfg.SpeechLocation, cfg.STTModel, cfg.STTLanguage)
	tts := agent.NewTranslateSynthesizer(cfg.TTSLanguage, cfg.AudioDir)
	converter := ffmpeg.New(cfg.SampleRate, cfg.AudioDir)

	// 3. Services
	store := mockstore.New(cfg.MockDir)
	dispatcher := dispatch.New(llm, store)
	reporter := report.NewService()
	sessions := conversation.NewSessions()
	svc := conversation.NewService(sessions, dispatcher, llm, stt, tts, converter, reporter, cfg.AudioDir)
	handler := conversation.NewHandler(svc, cfg.AudioDir)

	// 4. Router
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS for frontend
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")
			if r.Method == "OPTIONS" {
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Route("/api", func(r chi.Router) {
		conversation.RegisterRoutes(r, handler)
	})
	r.Get("/audio/{name}", handler.ServeAudio)
	r.Get("/", web.Index)

	log.Info("Server starting", "port", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Error("Server failed", "err", err)
		os.Exit(1)
	}
}

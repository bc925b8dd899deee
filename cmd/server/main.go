package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"scribeline/internal/admission"
	"scribeline/internal/config"
	"scribeline/internal/db"
	"scribeline/internal/dispatch"
	"scribeline/internal/handlers"
	"scribeline/internal/middleware"
	"scribeline/internal/normalize"
	"scribeline/internal/provider"
	"scribeline/internal/storage"
	"scribeline/internal/worker"
	"scribeline/pkg/tasks"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file")
	}

	cfg := config.Load()
	db.InitDB(cfg.DatabaseURL)

	var store storage.ObjectStore
	if s, err := storage.NewMinioStore(storage.Options{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		UseSSL:    cfg.MinioUseSSL,
		PublicURL: cfg.MinioPublicURL,
	}); err != nil {
		log.Printf("object store unavailable, artifacts disabled: %v", err)
	} else {
		store = s
	}

	var llm normalize.LLM
	if cfg.LLMEnabled && cfg.OpenAIAPIKey != "" {
		llm = normalize.NewLLMClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
	}
	normalizer := normalize.New(llm)

	auto := provider.NewAutoTranscriptClient(cfg.AutoTranscriptBaseURL, cfg.AutoTranscriptAPIKey,
		cfg.AutoTranscriptPollInterval, cfg.AutoTranscriptMaxPolls)
	stt := provider.NewSpeechClient(cfg.STTBaseURL, cfg.STTAPIKey, cfg.STTModel)
	metadata := provider.NewMetadataClient(cfg.MetadataBaseURL, cfg.MetadataAPIKey)

	executor := worker.NewExecutor(auto, stt, normalizer, store, cfg.LLMEnabled && llm != nil)

	ctx := context.Background()
	var dispatcher dispatch.Dispatcher
	if cfg.QueueEnabled {
		client := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer client.Close()
		dispatcher = dispatch.NewAsynqDispatcher(client)
	} else {
		// Single-node development mode: jobs run inside this process and
		// the sweeper rides along, since no separate worker exists.
		inproc := dispatch.NewInProcessDispatcher(func(ctx context.Context, p tasks.TranscribeTaskPayload) error {
			return executor.Execute(ctx, p.TaskID, false)
		}, 128)
		inproc.Start(ctx)
		dispatcher = inproc

		if err := worker.RecoverPending(ctx, dispatcher); err != nil {
			log.Printf("startup recovery failed: %v", err)
		}

		sweeper := worker.NewSweeper(cfg.TaskTimeout())
		if _, err := sweeper.SweepOnce(); err != nil {
			log.Printf("initial sweep failed: %v", err)
		}
		c := cron.New()
		if _, err := c.AddFunc("@every 5m", func() {
			if _, err := sweeper.SweepOnce(); err != nil {
				log.Printf("sweep failed: %v", err)
			}
		}); err != nil {
			log.Fatalf("could not schedule sweeper: %v", err)
		}
		c.Start()
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	admissionSvc := admission.NewService(metadata, dispatcher, cfg.TrialMaxDuration(), cfg.TaskPollIntervalSeconds)
	h := handlers.New(admissionSvc, executor, store, redisClient, cfg)

	rateLimiter := middleware.NewRateLimiterMiddleware(1, 5)

	r := mux.NewRouter()

	api := r.NewRoute().Subrouter()
	api.Use(middleware.CallerMiddleware, rateLimiter.Middleware)
	api.HandleFunc("/tasks", h.PostTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks", h.ListTasks).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{id}", h.GetTask).Methods(http.MethodGet)
	api.HandleFunc("/uploads/presign", h.PostPresignUpload).Methods(http.MethodPost)
	api.HandleFunc("/auth/bind-trial", h.PostBindTrial).Methods(http.MethodPost)

	// Webhooks are public; their signatures are the authentication.
	r.HandleFunc("/webhooks/stt", h.PostSTTWebhook).Methods(http.MethodPost)
	r.HandleFunc("/webhooks/subscription", h.PostSubscriptionWebhook).Methods(http.MethodPost)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("Starting server on :%s (commit: %s)", cfg.Port, CommitSHA)
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal(err)
	}
}

package main

import (
	"context"
	"log"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"scribeline/internal/config"
	"scribeline/internal/db"
	"scribeline/internal/dispatch"
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

	executor := worker.NewExecutor(auto, stt, normalizer, store, cfg.LLMEnabled && llm != nil)

	client := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer client.Close()

	// Re-enqueue any pending rows whose dispatch was lost before this
	// worker came up.
	if err := worker.RecoverPending(context.Background(), dispatch.NewAsynqDispatcher(client)); err != nil {
		log.Printf("startup recovery failed: %v", err)
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		asynq.Config{
			Concurrency: 4,
			// Paid work drains ahead of free work.
			Queues: map[string]int{
				tasks.QueuePaid: 3,
				tasks.QueueFree: 1,
			},
			StrictPriority: true,
			RetryDelayFunc: dispatch.RetryDelay,
		},
	)

	mux := asynq.NewServeMux()
	taskHandler := worker.NewTaskHandler(executor)
	mux.HandleFunc(tasks.TypeTranscribe, taskHandler.HandleTranscribeTask)

	log.Printf("Worker starting (commit: %s)", CommitSHA)
	if err := srv.Run(mux); err != nil {
		log.Fatalf("could not run server: %v", err)
	}
}

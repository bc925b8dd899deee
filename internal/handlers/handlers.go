package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"

	"scribeline/internal/admission"
	"scribeline/internal/apperr"
	"scribeline/internal/config"
	"scribeline/internal/storage"
	"scribeline/internal/worker"
)

// Handlers carries the HTTP surface's dependencies, wired once at the
// composition root.
type Handlers struct {
	admission *admission.Service
	finalizer *worker.Executor
	store     storage.ObjectStore
	redis     *redis.Client
	validate  *validator.Validate
	cfg       config.Config
}

func New(admissionSvc *admission.Service, finalizer *worker.Executor, store storage.ObjectStore, redisClient *redis.Client, cfg config.Config) *Handlers {
	return &Handlers{
		admission: admissionSvc,
		finalizer: finalizer,
		store:     store,
		redis:     redisClient,
		validate:  validator.New(),
		cfg:       cfg,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	appErr := apperr.From(err)
	if appErr.Code == apperr.CodeInternal {
		log.Printf("internal error: %v", err)
	}
	writeJSON(w, appErr.HTTPStatus(), map[string]interface{}{"error": appErr})
}

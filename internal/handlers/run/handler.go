package run

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"gitlab.com/fcv-2025.net/coderunner/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/coderunner/internal/core/services/execution"
	"gitlab.com/fcv-2025.net/coderunner/internal/core/services/job"
	"gitlab.com/fcv-2025.net/coderunner/internal/domain"
	"gitlab.com/fcv-2025.net/coderunner/internal/handlers"
	"gitlab.com/fcv-2025.net/coderunner/internal/static/errs"
)

const maxBodyBytes = 50 << 20

// RunHandler handles submission requests
type RunHandler struct {
	jobService       job.IJobService
	executionService execution.IExecutionService
	logger           primary.Logger
	requestTimeout   time.Duration
}

// NewRunHandler creates a new run handler
func NewRunHandler(jobService job.IJobService, executionService execution.IExecutionService, requestTimeout time.Duration, logger primary.Logger) *RunHandler {
	return &RunHandler{
		jobService:       jobService,
		executionService: executionService,
		logger:           logger,
		requestTimeout:   requestTimeout,
	}
}

// RegisterRoutes registers the API routes for RunHandler
func (h *RunHandler) RegisterRoutes(router *mux.Router, mw *handlers.MiddlewareProvider) {
	guarded := mw.JWTMiddleware(mw.RateLimitMiddleware(http.HandlerFunc(h.Run)))
	router.Handle("/run", guarded).Methods("POST")
	router.HandleFunc("/api/languages", h.GetLanguages).Methods("GET")
}

// Run handles submission requests and blocks until the job settles
func (h *RunHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.logger.Error("Failed to decode request", "error", err)
		handlers.ResponseError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	req.Language = strings.ToLower(strings.TrimSpace(req.Language))
	if req.Language == "" {
		handlers.ResponseError(w, "language is required", http.StatusBadRequest)
		return
	}
	if !h.executionService.Supports(req.Language) {
		handlers.ResponseError(w, "Unsupported language: "+req.Language, http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if h.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.requestTimeout)
		defer cancel()
	}

	submission := domain.NewSubmission(req.Language, req.Code, req.TestCases)
	result, err := h.jobService.Submit(ctx, submission)
	if err != nil {
		if errors.Is(err, errs.ErrJobTimeout) || errors.Is(err, context.DeadlineExceeded) {
			h.logger.Warn("Submission timed out", "submissionId", submission.ID, "error", err)
			handlers.ResponseError(w, "Job timed out", http.StatusGatewayTimeout)
			return
		}
		h.logger.Error("Failed to process submission", "submissionId", submission.ID, "error", err)
		handlers.ResponseError(w, "Failed to add job to the queue or process it.", http.StatusInternalServerError)
		return
	}

	code := http.StatusOK
	if result.Status == domain.StatusInternalError {
		code = http.StatusInternalServerError
	}
	handlers.ResponseWithJson(w, code, NewRunResponse(result))
}

// GetLanguages lists every registered language with its effective limits
func (h *RunHandler) GetLanguages(w http.ResponseWriter, r *http.Request) {
	handlers.ResponseWithJson(w, http.StatusOK, map[string][]*domain.LanguageConfig{
		"languages": h.executionService.Languages(),
	})
}

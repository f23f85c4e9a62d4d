package workers

import (
	"net/http"

	"github.com/gorilla/mux"

	"gitlab.com/fcv-2025.net/coderunner/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/coderunner/internal/core/services/worker"
	"gitlab.com/fcv-2025.net/coderunner/internal/handlers"
)

type ApiHandler struct {
	WorkerService worker.IWorkerRegistrationService
	logger        primary.Logger
}

func NewHandler(workerService worker.IWorkerRegistrationService, logger primary.Logger) *ApiHandler {
	return &ApiHandler{
		WorkerService: workerService,
		logger:        logger,
	}
}

func (api *ApiHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/workers", api.GetWorkers).Methods("GET")
}

func (api *ApiHandler) GetWorkers(w http.ResponseWriter, r *http.Request) {
	workers, err := api.WorkerService.GetAllWorkers(r.Context())
	if err != nil {
		api.logger.Error("Failed to get workers", "error", err)
		handlers.ResponseError(w, "Failed to get workers", http.StatusInternalServerError)
		return
	}

	handlers.ResponseWithJson(w, http.StatusOK, workers)
}

package jobs

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/parcelhub/parcelhub/internal/platform/httpx"
)

// QueueInspector reads queue depth. *asynq.Inspector satisfies it.
type QueueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

// QueueHealth is the depth of one queue.
type QueueHealth struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
	Archived  int    `json:"archived"`
}

// Handler exposes queue health to branch-managing administrators.
type Handler struct {
	inspector QueueInspector
	logger    *slog.Logger
}

// NewHandler builds the handler. A nil inspector reports empty queues.
func NewHandler(inspector QueueInspector, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{inspector: inspector, logger: logger}
}

// MountRoutes attaches job routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", h.health)
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	queues := make([]QueueHealth, 0, 2)
	for _, name := range []string{QueueNotifications, QueueDefault} {
		qh := QueueHealth{Queue: name}
		if h.inspector != nil {
			info, err := h.inspector.GetQueueInfo(name)
			switch {
			case errors.Is(err, asynq.ErrQueueNotFound):
			case err != nil:
				h.logger.Warn("jobs health", slog.String("queue", name), slog.Any("error", err))
				httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "queue backend unreachable")
				return
			case info != nil:
				qh.Pending, qh.Active, qh.Scheduled = info.Pending, info.Active, info.Scheduled
				qh.Retry, qh.Archived = info.Retry, info.Archived
			}
		}
		queues = append(queues, qh)
	}
	httpx.OK(w, http.StatusOK, "Queue health fetched successfully", queues)
}

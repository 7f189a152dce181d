package handlers

import (
	"net/http"
	"time"

	"github.com/anonto42/dank-memes/backend/internal/logger"
	"github.com/anonto42/dank-memes/backend/internal/metrics"
	"github.com/anonto42/dank-memes/backend/internal/models"
	"github.com/anonto42/dank-memes/backend/internal/services"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Event streams, used as route suffixes and metric labels.
const (
	StreamUserCreated      = "users/created"
	StreamUserUpdated      = "users/updated"
	StreamMemeCreated      = "memes/created"
	StreamMemeUpdated      = "memes/updated"
	StreamCommentCreated   = "comments/created"
	StreamReportCreated    = "reports/created"
	StreamStorageFinalized = "storage/finalized"
)

// EventResponse is returned for every valid event. Result carries the
// service report; failures inside it are informational.
type EventResponse struct {
	EventID string      `json:"eventId,omitempty"`
	Stream  string      `json:"stream"`
	Status  string      `json:"status"`
	Result  interface{} `json:"result,omitempty"`
}

// EventHandler receives change events and dispatches them to the services
type EventHandler struct {
	counters    *services.CounterService
	propagation *services.PropagationEngine
	notifier    *services.Notifier
	thumbnails  *services.ThumbnailService
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(
	counters *services.CounterService,
	propagation *services.PropagationEngine,
	notifier *services.Notifier,
	thumbnails *services.ThumbnailService,
) *EventHandler {
	return &EventHandler{
		counters:    counters,
		propagation: propagation,
		notifier:    notifier,
		thumbnails:  thumbnails,
	}
}

// RegisterEventRoutes registers the change event routes
func (h *EventHandler) RegisterEventRoutes(g *echo.Group) {
	g.POST("/"+StreamUserCreated, h.UserCreated)
	g.POST("/"+StreamUserUpdated, h.UserUpdated)
	g.POST("/"+StreamMemeCreated, h.MemeCreated)
	g.POST("/"+StreamMemeUpdated, h.MemeUpdated)
	g.POST("/"+StreamCommentCreated, h.CommentCreated)
	g.POST("/"+StreamReportCreated, h.ReportCreated)
	if h.thumbnails != nil {
		g.POST("/"+StreamStorageFinalized, h.StorageFinalized)
	}
}

// UserCreated bumps the user counters
func (h *EventHandler) UserCreated(c echo.Context) error {
	var ev models.CreateEvent[models.User]
	if err := bindEvent(c, StreamUserCreated, &ev); err != nil {
		return err
	}
	start := time.Now()
	report := h.counters.OnUserCreated(c.Request().Context(), ev.Value)
	return respond(c, StreamUserCreated, ev.EventID, start, statusOf(report.Err != nil, ""), report)
}

// UserUpdated propagates profile changes
func (h *EventHandler) UserUpdated(c echo.Context) error {
	var ev models.UpdateEvent[models.User]
	if err := bindEvent(c, StreamUserUpdated, &ev); err != nil {
		return err
	}
	start := time.Now()
	report := h.propagation.OnUserUpdated(c.Request().Context(), ev.Before, ev.After)
	return respond(c, StreamUserUpdated, ev.EventID, start, statusOf(report.Failed(), report.NoOp), report)
}

// MemeCreated bumps the meme counters and may broadcast
func (h *EventHandler) MemeCreated(c echo.Context) error {
	var ev models.CreateEvent[models.Meme]
	if err := bindEvent(c, StreamMemeCreated, &ev); err != nil {
		return err
	}
	start := time.Now()
	report := h.counters.OnMemeCreated(c.Request().Context(), ev.Value)
	return respond(c, StreamMemeCreated, ev.EventID, start, statusOf(report.Err != nil, ""), report)
}

// MemeUpdated notifies the owner about new likes
func (h *EventHandler) MemeUpdated(c echo.Context) error {
	var ev models.UpdateEvent[models.Meme]
	if err := bindEvent(c, StreamMemeUpdated, &ev); err != nil {
		return err
	}
	start := time.Now()
	report := h.notifier.OnMemeUpdated(c.Request().Context(), ev.EventID, ev.Before, ev.After)
	return respond(c, StreamMemeUpdated, ev.EventID, start, fanOutStatus(report), report)
}

// CommentCreated notifies the meme owner and the other commenters
func (h *EventHandler) CommentCreated(c echo.Context) error {
	var ev models.CreateEvent[models.Comment]
	if err := bindEvent(c, StreamCommentCreated, &ev); err != nil {
		return err
	}
	start := time.Now()
	report := h.notifier.OnCommentCreated(c.Request().Context(), ev.Value)
	return respond(c, StreamCommentCreated, ev.EventID, start, fanOutStatus(report), report)
}

// ReportCreated alerts the moderators
func (h *EventHandler) ReportCreated(c echo.Context) error {
	var ev models.CreateEvent[models.Report]
	if err := bindEvent(c, StreamReportCreated, &ev); err != nil {
		return err
	}
	start := time.Now()
	err := h.notifier.OnReportCreated(c.Request().Context(), ev.Value)
	var result interface{}
	if err != nil {
		result = map[string]string{"error": err.Error()}
	}
	return respond(c, StreamReportCreated, ev.EventID, start, statusOf(err != nil, ""), result)
}

// StorageFinalized builds the thumbnail of an uploaded meme image
func (h *EventHandler) StorageFinalized(c echo.Context) error {
	var ev models.CreateEvent[models.StorageObject]
	if err := bindEvent(c, StreamStorageFinalized, &ev); err != nil {
		return err
	}
	start := time.Now()
	result, err := h.thumbnails.OnObjectFinalized(c.Request().Context(), ev.Value)
	body := struct {
		services.ThumbnailResult
		Error string `json:"error,omitempty"`
	}{ThumbnailResult: result}
	if err != nil {
		body.Error = err.Error()
	}
	return respond(c, StreamStorageFinalized, ev.EventID, start, statusOf(err != nil, result.Skipped), body)
}

func bindEvent(c echo.Context, stream string, ev interface{}) error {
	if err := c.Bind(ev); err != nil {
		metrics.Get().EventsHandled.WithLabelValues(stream, "invalid").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(ev); err != nil {
		metrics.Get().EventsHandled.WithLabelValues(stream, "invalid").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func statusOf(failed bool, noop string) string {
	switch {
	case failed:
		return "error"
	case noop != "":
		return "noop"
	default:
		return "ok"
	}
}

func fanOutStatus(r services.FanOutReport) string {
	failed := r.Err != nil || r.Count(services.StatusFailed) > 0
	return statusOf(failed, r.NoOp)
}

func respond(c echo.Context, stream, eventID string, start time.Time, status string, result interface{}) error {
	m := metrics.Get()
	m.EventsHandled.WithLabelValues(stream, status).Inc()
	m.EventDuration.WithLabelValues(stream).Observe(time.Since(start).Seconds())

	logger.Log.Info("Event handled",
		logger.WithEventID(eventID),
		zap.String("stream", stream),
		zap.String("status", status),
		zap.Duration("duration", time.Since(start)),
	)
	return c.JSON(http.StatusOK, EventResponse{
		EventID: eventID,
		Stream:  stream,
		Status:  status,
		Result:  result,
	})
}

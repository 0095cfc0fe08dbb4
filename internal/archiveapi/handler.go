package archiveapi

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	v1 "github.com/aevon-lab/activity-archive/internal/api/v1"
	"github.com/aevon-lab/activity-archive/internal/archive"
	httperr "github.com/aevon-lab/activity-archive/internal/core/errors"
	"github.com/gin-gonic/gin"
)

// ErrInvalidRequest marks client errors in archive requests.
var ErrInvalidRequest = errors.New("invalid archive request")

const defaultHeartbeat = 15 * time.Second

// SubjectAdder is implemented by filter providers whose allow-list can grow.
type SubjectAdder interface {
	AddSubjects(ids ...int64)
}

type Handler struct {
	ctrl      *archive.Controller
	subjects  SubjectAdder
	heartbeat time.Duration
}

// NewHandler exposes ctrl over HTTP. subjects may be nil, which disables
// POST /v1/archive/subjects.
func NewHandler(ctrl *archive.Controller, subjects SubjectAdder) *Handler {
	if ctrl == nil {
		panic("archiveapi: controller must not be nil")
	}
	return &Handler{ctrl: ctrl, subjects: subjects, heartbeat: defaultHeartbeat}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	g := r.Group("/v1/archive")
	g.POST("/load", h.loadHandler)
	g.POST("/subjects", h.addSubjectsHandler)
	g.GET("/status", h.statusHandler)
	g.GET("/full", h.outputHandler(archive.OutputFullHistory))
	g.GET("/threshold", h.outputHandler(archive.OutputThresholdSubset))
	g.GET("/recent", h.outputHandler(archive.OutputRecent))
	g.GET("/items", h.pageHandler)
	g.GET("/items/next", h.nextPageHandler)
	g.GET("/watch", h.watchHandler)
}

type loadRequest struct {
	SubjectIDs []int64 `json:"subject_ids"`
}

type loadResponse struct {
	InvocationID string    `json:"invocation_id"`
	Generation   uint64    `json:"generation"`
	Now          time.Time `json:"now"`
	SubjectIDs   []int64   `json:"subject_ids"`
}

// OutputResponse is the body of the three output endpoints.
type OutputResponse struct {
	Output     string           `json:"output"`
	Generation uint64           `json:"generation"`
	Version    uint64           `json:"version"`
	Present    bool             `json:"present"`
	Total      int              `json:"total"`
	Items      []v1.ArchiveItem `json:"items"`
}

func (h *Handler) loadHandler(c *gin.Context) {
	req, err := parseSubjects(c)
	if err != nil {
		writeError(c, err)
		return
	}

	inv := h.ctrl.LoadArchive(c.Request.Context(), req.SubjectIDs)
	c.JSON(http.StatusAccepted, invocationResponse(inv))
}

// addSubjectsHandler extends the allow-list and reloads with the grown list.
func (h *Handler) addSubjectsHandler(c *gin.Context) {
	if h.subjects == nil {
		c.JSON(http.StatusNotImplemented, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidRequestError,
			Message:   "subject allow-list is fixed",
		})
		return
	}

	req, err := parseSubjects(c)
	if err != nil {
		writeError(c, err)
		return
	}
	if len(req.SubjectIDs) == 0 {
		writeError(c, fmt.Errorf("%w: subject_ids must not be empty", ErrInvalidRequest))
		return
	}

	h.subjects.AddSubjects(req.SubjectIDs...)
	inv := h.ctrl.LoadArchive(c.Request.Context(), nil)

	slog.Info("[ArchiveAPI] Allow-list extended, archive reloaded",
		"added", req.SubjectIDs,
		"subject_ids", inv.SubjectIDs(),
		"generation", inv.Generation(),
	)
	c.JSON(http.StatusAccepted, invocationResponse(inv))
}

func (h *Handler) statusHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.ctrl.Status())
}

func (h *Handler) outputHandler(output string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, h.output(output))
	}
}

func (h *Handler) pageHandler(c *gin.Context) {
	n := 0
	if raw := c.Query("page"); raw != "" {
		var err error
		if n, err = strconv.Atoi(raw); err != nil || n < 0 {
			writeError(c, fmt.Errorf("%w: page must be a non-negative integer", ErrInvalidRequest))
			return
		}
	}
	c.JSON(http.StatusOK, h.ctrl.Page(n))
}

func (h *Handler) nextPageHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.ctrl.NextPage())
}

func (h *Handler) slot(output string) *archive.Slot[[]v1.ArchiveItem] {
	switch output {
	case archive.OutputFullHistory:
		return h.ctrl.FullHistory()
	case archive.OutputThresholdSubset:
		return h.ctrl.ThresholdSubset()
	default:
		return h.ctrl.RecentWithinRange()
	}
}

func (h *Handler) output(output string) OutputResponse {
	return newOutputResponse(output, h.slot(output).Load())
}

func newOutputResponse(output string, snap archive.Snapshot[[]v1.ArchiveItem]) OutputResponse {
	items := snap.Value
	if items == nil {
		items = []v1.ArchiveItem{}
	}
	return OutputResponse{
		Output:     output,
		Generation: snap.Generation,
		Version:    snap.Version,
		Present:    snap.Present,
		Total:      len(items),
		Items:      items,
	}
}

func parseSubjects(c *gin.Context) (loadRequest, error) {
	var req loadRequest
	if c.Request.ContentLength == 0 {
		return req, nil
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		return req, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	for _, id := range req.SubjectIDs {
		if id <= 0 {
			return req, fmt.Errorf("%w: subject ids must be positive, got %d", ErrInvalidRequest, id)
		}
	}
	return req, nil
}

func invocationResponse(inv *archive.Invocation) loadResponse {
	ids := inv.SubjectIDs()
	if ids == nil {
		ids = []int64{}
	}
	return loadResponse{
		InvocationID: inv.ID(),
		Generation:   inv.Generation(),
		Now:          inv.Now(),
		SubjectIDs:   ids,
	}
}

func writeError(c *gin.Context, err error) {
	if errors.Is(err, ErrInvalidRequest) {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidRequestError,
			Message:   err.Error(),
		})
		return
	}

	slog.Error("[ArchiveAPI] Request failed", "error", err, "path", c.FullPath())
	c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
		ErrorType: httperr.HttpInternalError,
		Message:   "internal error",
	})
}

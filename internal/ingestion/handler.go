package ingestion

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	v1 "github.com/aevon-lab/activity-archive/internal/api/v1"
	httperr "github.com/aevon-lab/activity-archive/internal/core/errors"
	"github.com/aevon-lab/activity-archive/internal/core/storage"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgReadBodyFailed    = "Failed to read request body"
	msgInvalidJSON       = "Invalid JSON body"
	msgPersistFailed     = "Failed to persist activity"
	msgDuplicateActivity = "Activity already exists"
	msgListFailed        = "Failed to list activities"
)

// ingestionError carries the structured HTTP error shape from a helper back to the orchestrator.
type ingestionError struct {
	statusCode int
	errorType  string
	message    string
	details    interface{}
}

func (e *ingestionError) Error() string {
	return e.message
}

// IngestHandler handles POST /v1/activities.
func (s *Service) IngestHandler(c *gin.Context) {
	item, payloadSize, err := s.parseActivity(c)
	if err != nil {
		writeError(c, err)
		return
	}

	if err := validateActivity(item); err != nil {
		writeError(c, err)
		return
	}

	slog.Info("[Ingestion] Received activity",
		"activity_id", item.ID,
		"subject_id", item.SubjectID,
		"kind", item.Kind,
		"payload_size", payloadSize)

	if err := s.persistActivity(c.Request.Context(), item); err != nil {
		writeError(c, err)
		return
	}

	// Visible to the next archive load that covers its order date.
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "id": item.ID})
}

// parseActivity reads the raw request body and binds it into an ArchiveItem.
// A missing id is assigned here so retries by the client can reuse the echoed one.
func (s *Service) parseActivity(c *gin.Context) (*v1.ArchiveItem, int, *ingestionError) {
	maxBytes := int64(s.maxBodySizeBytes)
	limitedBody := io.LimitReader(c.Request.Body, maxBytes+1) // +1 to detect oversized requests

	bodyBytes, err := io.ReadAll(limitedBody)
	if err != nil {
		slog.Error("[Ingestion] Failed to read request body", "error", err)
		return nil, 0, &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgReadBodyFailed,
		}
	}

	if int64(len(bodyBytes)) > maxBytes {
		slog.Warn("[Ingestion] Request body exceeds maximum size", "size", len(bodyBytes), "max", maxBytes)
		return nil, len(bodyBytes), &ingestionError{
			statusCode: http.StatusRequestEntityTooLarge,
			errorType:  httperr.HttpInvalidJsonError,
			message:    "Request body exceeds maximum allowed size",
			details: map[string]interface{}{
				"max_size_mb": maxBytes / (1024 * 1024),
			},
		}
	}

	c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))

	var item v1.ArchiveItem
	if err := c.ShouldBindJSON(&item); err != nil {
		slog.Warn("[Ingestion] Invalid JSON body received", "error", err, "payload_size", len(bodyBytes))
		return nil, len(bodyBytes), &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    msgInvalidJSON,
		}
	}

	item.ID = strings.TrimSpace(item.ID)
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.OrderDate = item.OrderDate.UTC()
	return &item, len(bodyBytes), nil
}

func validateActivity(item *v1.ArchiveItem) *ingestionError {
	if err := item.Validate(); err != nil {
		slog.Warn("[Ingestion] Activity validation failed", "error", err, "activity_id", item.ID)
		return &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    err.Error(),
		}
	}
	return nil
}

// persistActivity saves the activity to the backing store.
func (s *Service) persistActivity(ctx context.Context, item *v1.ArchiveItem) *ingestionError {
	if err := s.store.SaveActivity(ctx, item); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			slog.Info("[Ingestion] Duplicate activity rejected", "activity_id", item.ID, "subject_id", item.SubjectID)
			return &ingestionError{
				statusCode: http.StatusConflict,
				errorType:  httperr.HttpDuplicateActivityError,
				message:    msgDuplicateActivity,
			}
		}

		slog.Error("[Ingestion] Failed to persist activity", "error", err, "activity_id", item.ID)
		return &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgPersistFailed,
		}
	}

	return nil
}

// ListActivitiesHandler handles GET /v1/activities/:subject_id?before=&limit=.
// before defaults to now, limit to the configured list limit.
func (s *Service) ListActivitiesHandler(c *gin.Context) {
	subjectID, err := strconv.ParseInt(c.Param("subject_id"), 10, 64)
	if err != nil || subjectID <= 0 {
		writeError(c, invalidRequest("subject_id must be a positive integer"))
		return
	}

	before := time.Now().UTC()
	if raw := c.Query("before"); raw != "" {
		if before, err = time.Parse(time.RFC3339, raw); err != nil {
			writeError(c, invalidRequest("before must be an RFC3339 timestamp"))
			return
		}
	}

	limit := s.listLimit
	if raw := c.Query("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit <= 0 || limit > maxListLimit {
			writeError(c, invalidRequest("limit must be between 1 and 1000"))
			return
		}
	}

	items, err := s.store.ListActivities(c.Request.Context(), subjectID, before, limit)
	if err != nil {
		slog.Error("[Ingestion] Failed to list activities", "error", err, "subject_id", subjectID)
		writeError(c, &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgListFailed,
		})
		return
	}
	if items == nil {
		items = []v1.ArchiveItem{}
	}

	c.JSON(http.StatusOK, items)
}

func invalidRequest(message string) *ingestionError {
	return &ingestionError{
		statusCode: http.StatusBadRequest,
		errorType:  httperr.HttpInvalidRequestError,
		message:    message,
	}
}

// writeError serializes an ingestionError as the JSON HTTP response.
func writeError(c *gin.Context, err *ingestionError) {
	c.JSON(err.statusCode, httperr.ErrorResponse{
		ErrorType: err.errorType,
		Message:   err.message,
		Details:   err.details,
	})
}

package ingestion

import (
	"github.com/aevon-lab/activity-archive/internal/core/storage"
	"github.com/gin-gonic/gin"
)

const maxListLimit = 1000

type Service struct {
	store            storage.ActivityStore
	maxBodySizeBytes int
	listLimit        int
}

func NewService(repo storage.ActivityStore, maxBodySizeMB, listLimit int) *Service {
	if repo == nil {
		panic("ingestion: store must not be nil")
	}
	if maxBodySizeMB <= 0 {
		maxBodySizeMB = 1 // default to 1MB
	}
	if listLimit <= 0 || listLimit > maxListLimit {
		listLimit = 100
	}
	return &Service{
		store:            repo,
		maxBodySizeBytes: maxBodySizeMB * 1024 * 1024,
		listLimit:        listLimit,
	}
}

// RegisterRoutes registers the ingestion service routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/activities", s.IngestHandler)
	r.GET("/v1/activities/:subject_id", s.ListActivitiesHandler)
}

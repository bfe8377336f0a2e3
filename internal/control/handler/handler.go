package handler

import (
	"context"
	"log/slog"
	"sync"

	"github.com/cuongbtq/mission-control/internal/control/domain"
	"github.com/cuongbtq/mission-control/internal/control/events"
	"github.com/cuongbtq/mission-control/internal/control/model"
	"github.com/cuongbtq/mission-control/internal/control/storage"
)

// MissionController is the job controller as seen by the HTTP layer.
type MissionController interface {
	Submit(ctx context.Context, artifact domain.Artifact) error
	Snapshot() domain.Snapshot
	Active() bool
	Teardown()
}

// MissionArchive reads finished missions.
type MissionArchive interface {
	GetMission(ctx context.Context, jobID string) (*model.Mission, error)
	ListMissions(ctx context.Context, filter storage.MissionFilter) ([]model.Mission, error)
}

// HealthChecker probes a backing service.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger      *slog.Logger
	ServiceName string
	Controller  MissionController
	Hub         *events.Hub
	// Archive is nil when the archive database is disabled.
	Archive MissionArchive
	// Health checks the archive database; nil when it is disabled.
	Health         HealthChecker
	UploadDir      string
	MaxUploadBytes int64
}

// MissionHandler handles mission-related HTTP requests
type MissionHandler struct {
	logger         *slog.Logger
	controller     MissionController
	hub            *events.Hub
	archive        MissionArchive
	uploadDir      string
	maxUploadBytes int64

	// submitMu makes the active-mission check and Submit atomic.
	submitMu sync.Mutex
}

// NewMissionHandler creates a new MissionHandler instance
func NewMissionHandler(deps *Dependencies) *MissionHandler {
	return &MissionHandler{
		logger:         deps.Logger,
		controller:     deps.Controller,
		hub:            deps.Hub,
		archive:        deps.Archive,
		uploadDir:      deps.UploadDir,
		maxUploadBytes: deps.MaxUploadBytes,
	}
}

package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cuongbtq/mission-control/internal/control/domain"
	"github.com/cuongbtq/mission-control/internal/control/dto"
	"github.com/cuongbtq/mission-control/internal/control/events"
	"github.com/cuongbtq/mission-control/internal/control/storage"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

var errArchiveDisabled = errors.New("mission archive is disabled")

// SubmitMission handles POST /api/v1/missions
// Accepts a multipart upload (field "file") and starts a new mission.
func (h *MissionHandler) SubmitMission(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, dto.ErrorResponse{Error: "Source file too large"})
			return
		}
		h.logger.Warn("Missing source file", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: domain.ErrInvalidInput.Error()})
		return
	}
	if file.Size == 0 {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: domain.ErrInvalidInput.Error()})
		return
	}

	h.submitMu.Lock()
	defer h.submitMu.Unlock()

	// A torn-down mission keeps its last stage but no longer blocks a new one.
	if h.controller.Active() {
		c.JSON(http.StatusConflict, gin.H{
			"error":   domain.ErrMissionActive.Error(),
			"mission": h.controller.Snapshot(),
		})
		return
	}

	artifact := &domain.UploadArtifact{
		Filename: file.Filename,
		Path:     filepath.Join(h.uploadDir, uuid.NewString()+filepath.Ext(file.Filename)),
	}
	if err := c.SaveUploadedFile(file, artifact.Path); err != nil {
		h.logger.Error("Failed to spool upload", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to store source file"})
		return
	}

	if err := h.controller.Submit(c.Request.Context(), artifact); err != nil {
		if rmErr := artifact.Discard(); rmErr != nil {
			h.logger.Warn("Failed to remove spooled upload", slog.String("error", rmErr.Error()))
		}
		if errors.Is(err, domain.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
			return
		}
		h.logger.Error("Failed to submit mission", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to submit mission"})
		return
	}

	h.logger.Info("Mission accepted",
		slog.String("artifact", artifact.Name()),
		slog.Int64("size", file.Size),
	)
	c.JSON(http.StatusAccepted, h.controller.Snapshot())
}

// CurrentMission handles GET /api/v1/missions/current
func (h *MissionHandler) CurrentMission(c *gin.Context) {
	c.JSON(http.StatusOK, h.controller.Snapshot())
}

// StreamMission handles GET /api/v1/missions/current/events
// Streams state transitions as Server-Sent Events, starting with the current snapshot.
func (h *MissionHandler) StreamMission(c *gin.Context) {
	listener := h.hub.Subscribe()
	defer h.hub.Unsubscribe(listener.ID)

	h.logger.Debug("Event stream opened", slog.String("listener_id", listener.ID))

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.Render(-1, sse.Event{
		Event: string(events.EventTypeState),
		Data:  h.controller.Snapshot(),
	})
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case event, ok := <-listener.C:
			if !ok {
				return false
			}
			c.Render(-1, sse.Event{
				Id:    strconv.FormatInt(event.Seq, 10),
				Event: string(event.Type),
				Data:  event.Snapshot,
			})
			return true
		}
	})

	h.logger.Debug("Event stream closed", slog.String("listener_id", listener.ID))
}

// TeardownMission handles DELETE /api/v1/missions/current
// Stops polling the active mission.
func (h *MissionHandler) TeardownMission(c *gin.Context) {
	h.submitMu.Lock()
	defer h.submitMu.Unlock()

	h.controller.Teardown()
	h.logger.Info("Mission torn down", slog.String("job_id", h.controller.Snapshot().JobID))
	c.Status(http.StatusNoContent)
}

// GetMission handles GET /api/v1/missions/:job_id
// Retrieves an archived mission including its result payload.
func (h *MissionHandler) GetMission(c *gin.Context) {
	if h.archive == nil {
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Error: errArchiveDisabled.Error()})
		return
	}

	jobID := c.Param("job_id")
	if jobID == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "job_id is required"})
		return
	}

	mission, err := h.archive.GetMission(c.Request.Context(), jobID)
	if errors.Is(err, domain.ErrMissionNotFound) {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		h.logger.Error("Failed to get mission", slog.String("job_id", jobID), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get mission"})
		return
	}

	c.JSON(http.StatusOK, dto.NewMissionDTO(*mission, true))
}

// ListMissions handles GET /api/v1/missions
// Lists archived missions newest first with cursor pagination.
func (h *MissionHandler) ListMissions(c *gin.Context) {
	if h.archive == nil {
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Error: errArchiveDisabled.Error()})
		return
	}

	var req dto.ListMissionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Warn("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid query parameters"})
		return
	}

	if req.State != "" && !domain.State(req.State).IsTerminal() {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "state must be completed or failed"})
		return
	}
	if req.PageSize <= 0 {
		req.PageSize = defaultPageSize
	}
	if req.PageSize > maxPageSize {
		req.PageSize = maxPageSize
	}

	cursor, err := DecodeMissionCursor(req.Cursor)
	if err != nil {
		h.logger.Warn("Invalid cursor", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid cursor"})
		return
	}

	missions, err := h.archive.ListMissions(c.Request.Context(), storage.MissionFilter{
		State:    req.State,
		PageSize: req.PageSize,
		Cursor:   cursor,
	})
	if err != nil {
		h.logger.Error("Failed to list missions", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list missions"})
		return
	}

	hasMore := len(missions) > req.PageSize
	if hasMore {
		missions = missions[:req.PageSize]
	}

	resp := dto.ListMissionsResponse{Missions: make([]dto.MissionDTO, len(missions))}
	for i, m := range missions {
		resp.Missions[i] = dto.NewMissionDTO(m, false)
	}
	if hasMore {
		last := missions[len(missions)-1]
		resp.NextCursor = EncodeMissionCursor(&storage.MissionCursor{
			FinishedAt: last.FinishedAt,
			JobID:      last.JobID,
		})
	}

	c.JSON(http.StatusOK, resp)
}

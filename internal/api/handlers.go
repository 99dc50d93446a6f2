package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sharkusmanch/outline-backup/internal/domain"
	"github.com/sharkusmanch/outline-backup/pkg/version"
)

// StatusResponse is the body of GET /api/v1/status.
type StatusResponse struct {
	Phase     domain.Phase     `json:"phase"`
	Progress  domain.Progress  `json:"progress"`
	Percent   float64          `json:"percent"`
	Outcome   *OutcomeResponse `json:"outcome,omitempty"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// OutcomeResponse is the JSON form of a finished run.
type OutcomeResponse struct {
	RunID       string             `json:"run_id"`
	Kind        domain.OutcomeKind `json:"kind"`
	Error       string             `json:"error,omitempty"`
	StartedAt   time.Time          `json:"started_at"`
	EndedAt     time.Time          `json:"ended_at"`
	FilesCopied uint64             `json:"files_copied"`
	BytesCopied uint64             `json:"bytes_copied"`
	DurationMS  int64              `json:"duration_ms"`
}

// NewStatusResponse converts a status snapshot.
func NewStatusResponse(s domain.Status) StatusResponse {
	resp := StatusResponse{
		Phase:     s.Phase,
		Progress:  s.Progress,
		UpdatedAt: s.UpdatedAt,
	}
	if s.Progress.FilesTotal > 0 {
		resp.Percent = float64(s.Progress.FilesCopied) * 100 / float64(s.Progress.FilesTotal)
	}
	if o := s.Outcome; o != nil {
		resp.Outcome = &OutcomeResponse{
			RunID:       o.RunID,
			Kind:        o.Kind,
			Error:       o.Reason(),
			StartedAt:   o.StartTime,
			EndedAt:     o.EndTime,
			FilesCopied: o.FilesCopied,
			BytesCopied: o.BytesCopied,
			DurationMS:  o.Duration.Milliseconds(),
		}
	}
	return resp
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, NewStatusResponse(s.ctrl.Snapshot()))
}

func (s *Server) handleVersion(c *gin.Context) {
	c.JSON(http.StatusOK, version.Get())
}

// handleCancel always succeeds; cancelling with no backup running is a no-op.
func (s *Server) handleCancel(c *gin.Context) {
	running := s.ctrl.Snapshot().Phase == domain.PhaseInProgress
	s.ctrl.Cancel()
	c.JSON(http.StatusAccepted, gin.H{"cancelled": running})
}

func (s *Server) handleReset(c *gin.Context) {
	s.ctrl.Reset()
	c.JSON(http.StatusOK, NewStatusResponse(s.ctrl.Snapshot()))
}

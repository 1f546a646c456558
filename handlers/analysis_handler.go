package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"compliancedesk-backend/logger"
	"compliancedesk-backend/middleware"
	"compliancedesk-backend/models"
	"compliancedesk-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AnalysisHandler handles HTTP requests for analysis jobs and findings
type AnalysisHandler struct {
	analysis *service.AnalysisService
	export   *service.ExportService
	log      *logger.Logger
	// run executes background work. Tests replace it to run jobs inline.
	run func(func())
	// inflight counts analyses started by this handler that have not finished
	inflight sync.WaitGroup
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(analysis *service.AnalysisService, export *service.ExportService, log *logger.Logger) *AnalysisHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &AnalysisHandler{
		analysis: analysis,
		export:   export,
		log:      log,
		run:      func(f func()) { go f() },
	}
}

// Drain waits for background analyses to finish or for ctx to end
func (h *AnalysisHandler) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("analyses still running: %w", ctx.Err())
	}
}

// Analyze handles POST /api/contracts/:id/analyze
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}
	id, ok := pathID(c, "contract")
	if !ok {
		return
	}

	// Start is synchronous so a second request sees the contract as analyzing
	jobID, err := h.analysis.StartAnalysis(c.Request.Context(), id, userID)
	if err != nil {
		respondServiceError(c, err, "ANALYSIS_FAILED")
		return
	}

	h.inflight.Add(1)
	h.run(func() {
		defer h.inflight.Done()
		if err := h.analysis.ProcessAnalysis(context.Background(), jobID); err != nil {
			// Already recorded on the job and the contract
			h.log.Warn("analysis.job.failed", "job_id", jobID, "error", err)
		}
	})

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"data": gin.H{
			"job_id":  jobID,
			"status":  models.JobStatusPending,
			"message": "Analysis job created. Poll /api/analysis-jobs/:id for updates.",
		},
	})
}

// GetJob handles GET /api/analysis-jobs/:id. With ?wait=true it blocks until the job
// finishes or the analysis timeout elapses.
func (h *AnalysisHandler) GetJob(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}
	id, ok := pathID(c, "job")
	if !ok {
		return
	}

	var (
		job *models.AnalysisJob
		err error
	)
	if strings.EqualFold(c.Query("wait"), "true") {
		job, err = h.analysis.AwaitJob(c.Request.Context(), id, userID)
	} else {
		job, err = h.analysis.GetJob(c.Request.Context(), id, userID)
	}
	if err != nil {
		respondServiceError(c, err, "JOB_FETCH_FAILED")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    job,
	})
}

// ListFindings handles GET /api/contracts/:id/findings
func (h *AnalysisHandler) ListFindings(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}
	id, ok := pathID(c, "contract")
	if !ok {
		return
	}

	findings, err := h.analysis.ListFindings(c.Request.Context(), id, userID)
	if err != nil {
		respondServiceError(c, err, "FINDINGS_FAILED")
		return
	}
	if findings == nil {
		findings = []*models.Finding{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    findings,
	})
}

// ExportFindings handles GET /api/contracts/:id/findings/export
func (h *AnalysisHandler) ExportFindings(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}
	id, ok := pathID(c, "contract")
	if !ok {
		return
	}

	data, err := h.export.ExportFindings(c.Request.Context(), id, userID)
	if err != nil {
		respondServiceError(c, err, "EXPORT_FAILED")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFilename(id)))
	c.Data(http.StatusOK, xlsxContentType, data)
}

func exportFilename(id uuid.UUID) string {
	return "findings-" + id.String() + ".xlsx"
}

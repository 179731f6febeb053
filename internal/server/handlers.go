package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/finopshub/advisor/pkg/recommend"
)

func (s *Server) handleHealth(c *gin.Context) {
	s.mu.RLock()
	report := s.reports.Latest()
	s.mu.RUnlock()

	status := gin.H{
		"status":  "ok",
		"uptime":  time.Since(s.startTime).String(),
		"version": Version,
	}
	if report != nil {
		status["lastCycleId"] = report.CycleID
		status["lastCollectedAt"] = report.CollectedAt
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) handleReport(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report := s.reports.Latest()
	if report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no report available yet"})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleSummary(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report := s.reports.Latest()
	if report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no report available yet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"cycleId":     report.CycleID,
		"collectedAt": report.CollectedAt,
		"partial":     report.Partial,
		"summary":     report.Summary,
		"sourceStats": report.SourceStats,
	})
}

func (s *Server) handleRecommendations(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report := s.reports.Latest()
	if report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no report available yet"})
		return
	}

	priority := c.Query("priority")
	service := c.Query("service")
	region := c.Query("region")
	status := c.Query("status")

	matched := make([]recommend.Recommendation, 0, len(report.Recommendations))
	for _, rec := range report.Recommendations {
		if priority != "" && string(rec.PriorityLevel) != priority {
			continue
		}
		if service != "" && rec.Service != service {
			continue
		}
		if region != "" && rec.Region != region {
			continue
		}
		if status != "" && string(rec.Status) != status {
			continue
		}
		matched = append(matched, rec)
	}

	c.JSON(http.StatusOK, gin.H{
		"cycleId":         report.CycleID,
		"count":           len(matched),
		"recommendations": matched,
	})
}

func (s *Server) handleRecommendation(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report := s.reports.Latest()
	if report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no report available yet"})
		return
	}

	id := c.Param("id")
	for _, rec := range report.Recommendations {
		if rec.ID == id {
			c.JSON(http.StatusOK, rec)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "recommendation not found"})
}

type statusUpdateRequest struct {
	Status recommend.Status `json:"status" binding:"required"`
	Notes  string           `json:"notes"`
}

func (s *Server) handleStatusUpdate(c *gin.Context) {
	var req statusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if !req.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	report := s.reports.Latest()
	if report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no report available yet"})
		return
	}

	id := c.Param("id")
	for i := range report.Recommendations {
		rec := &report.Recommendations[i]
		if rec.ID != id {
			continue
		}

		if s.annotations != nil {
			if err := s.annotations.Set(rec.Key(), req.Status, req.Notes); err != nil {
				s.logger.Error().Err(err).Str("key", rec.Key()).Msg("Failed to persist annotation")
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist status"})
				return
			}
		}

		rec.Status = req.Status
		rec.Notes = req.Notes
		c.JSON(http.StatusOK, rec)
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "recommendation not found"})
}

func (s *Server) handleCollect(c *gin.Context) {
	if s.trigger == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "collection trigger not configured"})
		return
	}
	s.trigger()
	c.JSON(http.StatusAccepted, gin.H{"status": "collection triggered"})
}

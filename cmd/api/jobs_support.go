package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"

	"github.com/yourusername/sentinel-safe/internal/config"
	"github.com/yourusername/sentinel-safe/internal/jobs"
	"github.com/yourusername/sentinel-safe/internal/mailer"
	"github.com/yourusername/sentinel-safe/internal/report"
	"github.com/yourusername/sentinel-safe/internal/visitor"
)

func setupJobs(cfg *config.Config, reports *report.Service, mail *mailer.Mailer) (*jobs.Manager, error) {
	opt, err := redis.ParseURL(cfg.QueueRedisURL)
	if err != nil {
		return nil, err
	}

	redisClient := redis.NewClient(opt)
	ttlMinutes := cfg.ReportExpireMinutes
	if ttlMinutes <= 0 {
		ttlMinutes = 30
	}
	store := jobs.NewStore(redisClient, time.Duration(ttlMinutes)*time.Minute)
	manager, err := jobs.NewManager(cfg, reports, mail, store, log.Default())
	if err != nil {
		return nil, err
	}
	return manager, nil
}

func reportEnqueueHandler(manager *jobs.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := visitor.ListFilter{
			Search: strings.TrimSpace(c.PostForm("search")),
			Action: c.PostForm("filter"),
		}
		if filter.Action != "" && !visitor.ValidActionTaken(filter.Action) {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "Unknown visitor action filter",
			})
			return
		}

		jobID, err := manager.EnqueueReport(c.Request.Context(), filter)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to start report job",
			})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"jobId":     jobID,
			"statusUrl": fmt.Sprintf("/api/jobs/%s", jobID),
		})
	}
}

func jobStatusHandler(manager *jobs.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID := c.Param("id")
		if strings.TrimSpace(jobID) == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "Job id is required",
			})
			return
		}

		record, err := manager.GetRecord(c.Request.Context(), jobID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to load job record",
			})
			return
		}
		if record == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"code":    "JOB_NOT_FOUND",
				"message": "Unknown job id",
			})
			return
		}

		payload := gin.H{
			"jobId":  record.JobID,
			"kind":   record.Kind,
			"status": record.Status,
			"progress": gin.H{
				"percent": record.Progress.Percent,
				"stage":   record.Progress.Stage,
			},
			"updatedAt": record.UpdatedAt,
		}
		if record.DownloadURL != "" {
			payload["downloadUrl"] = record.DownloadURL
		}
		if record.RowCount > 0 {
			payload["rowCount"] = record.RowCount
		}
		if record.Error != nil {
			payload["error"] = record.Error
		}

		c.JSON(http.StatusOK, payload)
	}
}

func jobDownloadHandler(reports *report.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID := c.Param("id")
		if strings.TrimSpace(jobID) == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "Job id is required",
			})
			return
		}

		result, file, err := reports.OpenResultFile(jobID)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				c.JSON(http.StatusNotFound, gin.H{
					"code":    "JOB_RESULT_NOT_FOUND",
					"message": "Report is not available",
				})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to open report file",
			})
			return
		}
		defer file.Close()

		c.Header("Content-Type", "application/pdf")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.OutputFilename))
		c.Header("Cache-Control", "no-store")
		c.Header("X-Job-Id", result.JobID)
		c.DataFromReader(http.StatusOK, result.OutputSize, "application/pdf", file, nil)
	}
}

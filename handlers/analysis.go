package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"lesson-insights-api/store"
	valkeystore "lesson-insights-api/valkey"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ResultCache interface {
	GetJSON(ctx context.Context, key string, v any) (bool, error)
}

type LessonRepository interface {
	Get(ctx context.Context, job string) (*store.LessonAnalysis, error)
	List(ctx context.Context, limit int) ([]store.LessonAnalysis, error)
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// HandleGetLesson returns the analysis for a job, from the cache when present
// and from the database otherwise.
func HandleGetLesson(logger *zap.Logger, cache ResultCache, repo LessonRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		sugar := logger.Sugar()
		job := c.Param("job")
		if job == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "job is required"})
			return
		}

		ctx := c.Request.Context()

		var cached store.LessonAnalysis
		found, err := cache.GetJSON(ctx, valkeystore.LessonKey(job), &cached)
		if err != nil {
			sugar.Warnw("Cache lookup failed, falling back to database",
				"job", job,
				"error", err)
		}
		if found {
			c.JSON(http.StatusOK, cached)
			return
		}

		rec, err := repo.Get(ctx, job)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Lesson not found",
				"message": "Job is unknown or has expired",
			})
			return
		}
		if err != nil {
			sugar.Errorw("Lesson retrieval failed",
				"job", job,
				"error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve lesson"})
			return
		}

		c.JSON(http.StatusOK, rec)
	}
}

// HandleListLessons lists recent lessons without their text bodies.
func HandleListLessons(logger *zap.Logger, repo LessonRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := defaultListLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
				return
			}
			limit = min(n, maxListLimit)
		}

		lessons, err := repo.List(c.Request.Context(), limit)
		if err != nil {
			logger.Sugar().Errorw("Lesson listing failed",
				"error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list lessons"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"lessons": lessons, "count": len(lessons)})
	}
}

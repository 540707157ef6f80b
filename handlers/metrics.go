package handlers

import (
	"net/http"

	"lesson-insights-api/utils"

	"github.com/gin-gonic/gin"
)

func HandleMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"lessons_uploaded_total":  utils.LessonsUploaded.Value(),
			"lessons_processed_total": utils.LessonsProcessed.Value(),
			"lessons_failed_total":    utils.LessonsFailed.Value(),
			"lessons_dedup_total":     utils.LessonsDeduplicated.Value(),
		})
	}
}

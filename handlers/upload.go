package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"lesson-insights-api/subscriber"
	"lesson-insights-api/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Publisher interface {
	Publish(ctx context.Context, channel, message string) error
}

var allowedAudioExt = map[string]bool{
	".webm": true,
	".ogg":  true,
	".opus": true,
	".wav":  true,
	".flac": true,
	".amr":  true,
	".spx":  true,
}

// HandleUploadLesson spools the uploaded recording and queues a lesson job.
func HandleUploadLesson(logger *zap.Logger, pub Publisher, spoolDir, channel string) gin.HandlerFunc {
	return func(c *gin.Context) {
		sugar := logger.Sugar()

		file, err := c.FormFile("audio")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "audio is required"})
			return
		}

		ext := strings.ToLower(filepath.Ext(file.Filename))
		if !allowedAudioExt[ext] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported audio file type"})
			return
		}

		cleanup := true
		if raw := c.PostForm("no_cleanup"); raw != "" {
			noCleanup, err := strconv.ParseBool(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "no_cleanup must be a boolean"})
				return
			}
			cleanup = !noCleanup
		}

		job := uuid.NewString()
		dst := filepath.Join(spoolDir, job+ext)
		if err := c.SaveUploadedFile(file, dst); err != nil {
			sugar.Errorw("File processing failed",
				"error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store audio file"})
			return
		}

		message, err := json.Marshal(subscriber.LessonJob{
			Job:          job,
			AudioPath:    dst,
			FileName:     filepath.Base(file.Filename),
			LanguageCode: c.PostForm("language_code"),
			Cleanup:      cleanup,
		})
		if err != nil {
			os.Remove(dst)
			sugar.Errorw("Message serialization failed",
				"error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue lesson"})
			return
		}

		if err := pub.Publish(c.Request.Context(), channel, string(message)); err != nil {
			os.Remove(dst)
			sugar.Errorw("Message publishing failed",
				"channel", channel,
				"error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue lesson"})
			return
		}

		utils.LessonsUploaded.Add(1)
		sugar.Infow("Lesson queued",
			"job", job,
			"file_name", file.Filename)

		c.JSON(http.StatusAccepted, gin.H{
			"message": "Lesson queued for analysis",
			"job":     job,
		})
	}
}

// Package testui serves a small browser page for uploading a lesson and
// polling its result.
package testui

import (
	_ "embed"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed index.html
var indexHTML string

func RegisterRoutes(r *gin.Engine, basePath string) {
	if basePath == "" {
		basePath = "/"
	}
	r.GET(basePath, func(ctx *gin.Context) {
		ctx.Header("Content-Type", "text/html; charset=utf-8")
		ctx.String(http.StatusOK, indexHTML)
	})
}

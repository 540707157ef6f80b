package utils

import (
	"expvar"
)

var LessonsProcessed = expvar.NewInt("lessons_processed_total")
var LessonsFailed = expvar.NewInt("lessons_failed_total")
var LessonsDeduplicated = expvar.NewInt("lessons_dedup_total")
var LessonsUploaded = expvar.NewInt("lessons_uploaded_total")

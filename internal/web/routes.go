package web

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"fuego-ffmpeg/internal/services"
	"fuego-ffmpeg/internal/web/handlers"
)

// SetupRouter 建立 gin 路由。runs 為 nil 時不提供 /runs。
func SetupRouter(extractor handlers.Extractor, runs services.RunStore, logger logrus.FieldLogger) *gin.Engine {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	router := gin.New()
	router.Use(requestLogger(logger))
	router.Use(gin.Recovery())

	extractHandler := handlers.NewExtractHandler(extractor, logger)
	router.POST("/", extractHandler.Handle)
	router.POST("/extractMp4", extractHandler.Handle)

	if runs != nil {
		runsHandler := handlers.NewRunsHandler(runs, logger)
		router.GET("/runs", runsHandler.List)
		exportHandler := handlers.NewExportHandler(runs, logger)
		router.GET("/runs/export", exportHandler.Export)
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	logger.WithField("component", "Router").Info("資訊：HTTP 路由設定完成。")
	return router
}

// requestLogger 以 logrus 記錄每個請求，取代 gin.Logger()
func requestLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	log := logger.WithField("component", "HTTP")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		entry := log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("警告：請求處理失敗")
			return
		}
		entry.Debug("資訊：請求完成")
	}
}

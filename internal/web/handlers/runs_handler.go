package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"fuego-ffmpeg/internal/models"
	"fuego-ffmpeg/internal/services"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 200
)

// RunsHandler 查詢最近的執行紀錄
type RunsHandler struct {
	store services.RunStore
	log   logrus.FieldLogger
}

func NewRunsHandler(store services.RunStore, logger logrus.FieldLogger) *RunsHandler {
	if store == nil {
		logrus.Panicln("RunsHandler：RunStore 不得為空")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RunsHandler{store: store, log: logger.WithField("component", "RunsHandler")}
}

// List GET /runs?limit=N
func (h *RunsHandler) List(c *gin.Context) {
	limit := defaultRunsLimit
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit 必須是正整數"})
			return
		}
		limit = min(n, maxRunsLimit)
	}

	runs, err := h.store.ListRecentRuns(c.Request.Context(), limit)
	if err != nil {
		h.log.WithError(err).Error("錯誤：查詢執行紀錄失敗")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "無法查詢執行紀錄"})
		return
	}
	if runs == nil {
		runs = []models.RunRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

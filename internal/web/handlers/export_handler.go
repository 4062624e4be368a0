package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"fuego-ffmpeg/internal/models"
	"fuego-ffmpeg/internal/services"
)

const (
	exportLimit   = 1000
	exportSheet   = "runs"
	mimeXLSX      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	exportTimeFmt = "2006-01-02 15:04:05"
)

var exportHeader = []string{
	"ID", "主機", "攝影機", "日期", "Quarter", "上傳資料夾", "來源 URL",
	"狀態", "失敗階段", "影格數", "已上傳", "錯誤訊息", "開始時間", "結束時間",
}

// ExportHandler 匯出最近的執行紀錄 (CSV 或 XLSX)
type ExportHandler struct {
	store services.RunStore
	log   logrus.FieldLogger
	now   func() time.Time
}

// NewExportHandler 建立一個 ExportHandler 實例
func NewExportHandler(store services.RunStore, logger logrus.FieldLogger) *ExportHandler {
	if store == nil {
		logrus.Panicln("ExportHandler：RunStore 不得為空")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ExportHandler{store: store, log: logger.WithField("component", "ExportHandler"), now: time.Now}
}

func exportRow(r models.RunRecord) []string {
	finished := ""
	if r.FinishedAt.Valid {
		finished = r.FinishedAt.Time.Format(exportTimeFmt)
	}
	return []string{
		r.ID, r.HostName, r.CameraID, r.DateDir, r.QName, r.UploadDir, r.SourceURL,
		string(r.Status), r.Stage.String, strconv.Itoa(r.Frames), strconv.Itoa(r.Uploaded), r.Error.String,
		r.StartedAt.Format(exportTimeFmt), finished,
	}
}

// Export GET /runs/export?format=csv|xlsx
func (h *ExportHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	if format != "csv" && format != "xlsx" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format 只支援 csv 或 xlsx"})
		return
	}

	runs, err := h.store.ListRecentRuns(c.Request.Context(), exportLimit)
	if err != nil {
		h.log.WithError(err).Error("錯誤：從資料庫獲取執行紀錄失敗")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "無法獲取匯出數據"})
		return
	}
	h.log.Infof("資訊：匯出 %d 筆執行紀錄 (%s)", len(runs), format)

	filename := fmt.Sprintf("extract_runs_%s.%s", h.now().Format("2006-01-02"), format)
	c.Header("Content-Disposition", "attachment; filename="+filename)

	if format == "xlsx" {
		h.writeXLSX(c, runs)
		return
	}
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)
	// UTF-8 BOM 讓 Excel 正確顯示中文
	c.Writer.Write([]byte("\xEF\xBB\xBF"))
	w := csv.NewWriter(c.Writer)
	w.Write(exportHeader)
	for _, r := range runs {
		w.Write(exportRow(r))
	}
	w.Flush()
	if err := w.Error(); err != nil {
		h.log.WithError(err).Error("錯誤：寫入 CSV 失敗")
	}
}

func (h *ExportHandler) writeXLSX(c *gin.Context, runs []models.RunRecord) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		h.xlsxFailed(c, err)
		return
	}
	header := make([]any, len(exportHeader))
	for i, v := range exportHeader {
		header[i] = v
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		h.xlsxFailed(c, err)
		return
	}
	for i, r := range runs {
		row := exportRow(r)
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		// 數字欄位保留數值型別方便加總
		values[9], values[10] = r.Frames, r.Uploaded
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			h.xlsxFailed(c, err)
			return
		}
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			h.xlsxFailed(c, err)
			return
		}
	}

	c.Header("Content-Type", mimeXLSX)
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		h.log.WithError(err).Error("錯誤：寫入 XLSX 失敗")
	}
}

func (h *ExportHandler) xlsxFailed(c *gin.Context, err error) {
	h.log.WithError(err).Error("錯誤：建立 XLSX 失敗")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "無法產生 XLSX"})
}

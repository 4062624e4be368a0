package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-viper/mapstructure/v2"
	"github.com/sirupsen/logrus"

	"fuego-ffmpeg/internal/models"
	"fuego-ffmpeg/internal/services"
)

// maxBodyBytes 觸發請求只有幾個短欄位
const maxBodyBytes = 64 << 10

// Extractor 執行一次完整的擷取上傳流程
type Extractor interface {
	Run(ctx context.Context, req models.ExtractRequest) (*models.ExtractResult, error)
}

// ExtractHandler 處理觸發請求，同步回傳 "done" 或失敗階段的訊息
type ExtractHandler struct {
	svc Extractor
	log logrus.FieldLogger
}

// NewExtractHandler 建立 ExtractHandler
func NewExtractHandler(svc Extractor, logger logrus.FieldLogger) *ExtractHandler {
	if svc == nil {
		logrus.Panicln("ExtractHandler：Extractor 不得為空")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ExtractHandler{svc: svc, log: logger.WithField("component", "ExtractHandler")}
}

// Handle POST / 與 POST /extractMp4
func (h *ExtractHandler) Handle(c *gin.Context) {
	h.log.Infof("資訊：收到請求: %s %s 來自 %s", c.Request.Method, c.Request.URL.Path, c.ClientIP())

	fields, err := readFields(c)
	if err != nil {
		h.log.WithError(err).Warn("警告：無法解析請求內容")
		c.String(http.StatusBadRequest, "Invalid request body")
		return
	}

	var in models.TriggerInput
	if err := decodeTrigger(fields, &in); err != nil {
		h.log.WithError(err).Warn("警告：請求欄位型別錯誤")
		c.String(http.StatusBadRequest, "Invalid parameters: %v", err)
		return
	}

	req, err := services.NewExtractRequest(in)
	if err != nil {
		status, msg := services.PublicResponse(err)
		h.log.WithField("fields", fields).Warnf("警告：請求驗證失敗: %s", msg)
		c.String(status, msg)
		return
	}

	res, err := h.svc.Run(c.Request.Context(), req)
	status, msg := services.PublicResponse(err)
	if err != nil {
		h.log.WithError(err).WithField("quarter", req.Quarter.String()).Error("錯誤：處理失敗")
	} else {
		h.log.WithFields(logrus.Fields{"run_id": res.RunID, "uploaded": len(res.Uploaded)}).Info("資訊：處理完成")
	}
	c.String(status, msg)
}

// readFields 依 Content-Type 讀出 JSON 物件或表單欄位
func readFields(c *gin.Context) (map[string]any, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)

	if strings.HasPrefix(c.ContentType(), gin.MIMEJSON) {
		fields := map[string]any{}
		dec := json.NewDecoder(c.Request.Body)
		dec.UseNumber()
		if err := dec.Decode(&fields); err != nil && err != io.EOF {
			return nil, fmt.Errorf("JSON 格式錯誤: %w", err)
		}
		return fields, nil
	}

	if err := c.Request.ParseForm(); err != nil {
		return nil, fmt.Errorf("表單格式錯誤: %w", err)
	}
	fields := make(map[string]any, len(c.Request.PostForm))
	for k, v := range c.Request.PostForm {
		if len(v) > 0 {
			fields[k] = v[0]
		}
	}
	return fields, nil
}

func decodeTrigger(fields map[string]any, out *models.TriggerInput) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(fields)
}

package hpwren

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"fuego-ffmpeg/internal/config"
	"fuego-ffmpeg/internal/models"
)

// Client 負責組出 HPWREN 封存 URL 並下載 MP4
type Client struct {
	scheme     string
	baseDomain string
	httpClient *http.Client
	log        logrus.FieldLogger
}

// NewClient 建立一個 HPWREN 客戶端；httpClient 為 nil 時使用 http.DefaultClient
func NewClient(cfg config.HPWRENConfig, httpClient *http.Client, logger logrus.FieldLogger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	scheme := cfg.Scheme
	if scheme == "" {
		scheme = "http"
	}
	return &Client{
		scheme:     scheme,
		baseDomain: strings.Trim(cfg.BaseDomain, "."),
		httpClient: httpClient,
		log:        logger.WithField("component", "HPWREN Client"),
	}
}

// ArchiveURL 組出封存檔案的 URL：
// {scheme}://{host}.{baseDomain}/archive/{cameraID}/large/[{yearDir}/]{dateDir}/MP4/{qName}
func (c *Client) ArchiveURL(q models.QuarterID) string {
	var b strings.Builder
	b.WriteString(c.scheme)
	b.WriteString("://")
	b.WriteString(url.PathEscape(q.HostName))
	if c.baseDomain != "" {
		b.WriteString(".")
		b.WriteString(c.baseDomain)
	}
	b.WriteString("/archive/")
	b.WriteString(url.PathEscape(q.CameraID))
	b.WriteString("/large/")
	if q.YearDir != "" {
		b.WriteString(url.PathEscape(q.YearDir))
		b.WriteString("/")
	}
	b.WriteString(url.PathEscape(q.DateDir))
	b.WriteString("/MP4/")
	b.WriteString(url.PathEscape(q.QName))
	return b.String()
}

// Download 以 GET 下載 mp4Url 並寫入 destPath，回傳寫入的位元組數
func (c *Client) Download(ctx context.Context, mp4Url string, destPath string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mp4Url, nil)
	if err != nil {
		return 0, fmt.Errorf("建立下載請求失敗 '%s': %w", mp4Url, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("下載 '%s' 失敗: %w", mp4Url, err)
	}
	defer resp.Body.Close()

	c.log.WithFields(logrus.Fields{
		"status":       resp.StatusCode,
		"content_type": resp.Header.Get("Content-Type"),
	}).Info("資訊：收到封存伺服器回應")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, &HTTPError{URL: mp4Url, StatusCode: resp.StatusCode}
	}

	f, err := os.Create(destPath)
	if err != nil {
		return 0, fmt.Errorf("無法建立檔案 '%s': %w", destPath, err)
	}
	n, copyErr := io.Copy(f, resp.Body)
	closeErr := f.Close()
	if copyErr != nil {
		return n, fmt.Errorf("寫入 '%s' 失敗: %w", destPath, copyErr)
	}
	if closeErr != nil {
		return n, fmt.Errorf("關閉 '%s' 失敗: %w", destPath, closeErr)
	}
	c.log.WithFields(logrus.Fields{"path": destPath, "bytes": n}).Info("資訊：MP4 下載完成")
	return n, nil
}

// HTTPError 封存伺服器回傳非 2xx
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("下載 '%s' 回應狀態碼 %d", e.URL, e.StatusCode)
}

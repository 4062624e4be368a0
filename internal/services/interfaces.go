package services

import (
	"context"

	"fuego-ffmpeg/internal/models"
	"fuego-ffmpeg/internal/storage/workdir"
)

// ArchiveSource 組出封存 URL 並下載 MP4
type ArchiveSource interface {
	ArchiveURL(q models.QuarterID) string
	Download(ctx context.Context, url string, destPath string) (int64, error)
}

// FrameDecoder 把影片拆成依 outputPattern 編號的 JPEG
type FrameDecoder interface {
	Decode(ctx context.Context, inputPath string, outputPattern string) error
}

// Uploader 上傳單一檔案，回傳遠端檔案 ID
type Uploader interface {
	Upload(ctx context.Context, localPath string, folderID string, name string) (string, error)
}

// DriveAuthorizer 取得已授權的上傳客戶端
type DriveAuthorizer interface {
	Authorize(ctx context.Context) (Uploader, error)
}

// AuthorizerFunc 讓一般函式滿足 DriveAuthorizer
type AuthorizerFunc func(ctx context.Context) (Uploader, error)

func (f AuthorizerFunc) Authorize(ctx context.Context) (Uploader, error) { return f(ctx) }

// WorkDirs 配發每次執行專屬的暫存目錄
type WorkDirs interface {
	Acquire() (*workdir.Dir, error)
}

// RunStore 保存執行紀錄
type RunStore interface {
	CreateRun(ctx context.Context, run *models.RunRecord) error
	FinishRun(ctx context.Context, run *models.RunRecord) error
	ListRecentRuns(ctx context.Context, limit int) ([]models.RunRecord, error)
}

// NopRunStore 未啟用資料庫時使用
type NopRunStore struct{}

func (NopRunStore) CreateRun(context.Context, *models.RunRecord) error { return nil }
func (NopRunStore) FinishRun(context.Context, *models.RunRecord) error { return nil }
func (NopRunStore) ListRecentRuns(context.Context, int) ([]models.RunRecord, error) {
	return nil, nil
}

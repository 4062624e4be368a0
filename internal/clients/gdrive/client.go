package gdrive

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// FolderMimeType Drive 資料夾的 MIME 類型
const FolderMimeType = "application/vnd.google-apps.folder"

// RemoteFile Drive 上的檔案
type RemoteFile struct {
	ID   string
	Name string
}

// Client 包裝 drive/v3 服務，所有呼叫都支援共用雲端硬碟
type Client struct {
	srv      *drive.Service
	mimeType string
	log      logrus.FieldLogger
}

// NewClient 建立 Drive 客戶端；mimeType 為上傳檔案的內容類型
func NewClient(ctx context.Context, mimeType string, logger logrus.FieldLogger, opts ...option.ClientOption) (*Client, error) {
	srv, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("無法建立 Drive 服務: %w", err)
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return &Client{
		srv:      srv,
		mimeType: mimeType,
		log:      logger.WithField("component", "Drive Client"),
	}, nil
}

// Upload 將本機檔案上傳到 folderID 底下並命名為 name，回傳新檔案 ID
func (c *Client) Upload(ctx context.Context, localPath string, folderID string, name string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("無法開啟 '%s': %w", localPath, err)
	}
	defer f.Close()

	meta := &drive.File{
		Name:    name,
		Parents: []string{folderID},
	}
	created, err := c.srv.Files.Create(meta).
		Media(f, googleapi.ContentType(c.mimeType)).
		SupportsAllDrives(true).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("上傳 '%s' 為 '%s' 失敗: %w", localPath, name, err)
	}
	c.log.WithFields(logrus.Fields{"name": name, "id": created.Id}).Debug("資訊：檔案上傳完成")
	return created.Id, nil
}

// List 列出資料夾內未刪除的檔案
func (c *Client) List(ctx context.Context, folderID string) ([]RemoteFile, error) {
	var files []RemoteFile
	q := fmt.Sprintf("'%s' in parents and trashed = false", folderID)
	err := c.srv.Files.List().
		Q(q).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Fields("nextPageToken, files(id, name)").
		Pages(ctx, func(page *drive.FileList) error {
			for _, f := range page.Files {
				files = append(files, RemoteFile{ID: f.Id, Name: f.Name})
			}
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("列出資料夾 '%s' 失敗: %w", folderID, err)
	}
	return files, nil
}

// CreateFolder 在 parentID 底下建立資料夾，回傳資料夾 ID
func (c *Client) CreateFolder(ctx context.Context, parentID string, name string) (string, error) {
	meta := &drive.File{
		Name:     name,
		MimeType: FolderMimeType,
	}
	if parentID != "" {
		meta.Parents = []string{parentID}
	}
	created, err := c.srv.Files.Create(meta).
		SupportsAllDrives(true).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("建立資料夾 '%s' 失敗: %w", name, err)
	}
	c.log.WithFields(logrus.Fields{"name": name, "id": created.Id}).Info("資訊：資料夾建立完成")
	return created.Id, nil
}

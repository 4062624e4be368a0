package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"fuego-ffmpeg/internal/config"
	"fuego-ffmpeg/internal/logging"
	"fuego-ffmpeg/internal/models"
	"fuego-ffmpeg/internal/storage/workdir"
)

type fakeSource struct {
	mu      sync.Mutex
	err     error
	calls   int
	gotURL  string
	gotDest string
}

func (f *fakeSource) ArchiveURL(q models.QuarterID) string {
	return "http://" + q.HostName + ".example.test/archive/" + q.CameraID + "/large/" + q.DateDir + "/MP4/" + q.QName
}

func (f *fakeSource) Download(ctx context.Context, url string, dest string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.gotURL, f.gotDest = url, dest
	if f.err != nil {
		return 0, f.err
	}
	return 4, os.WriteFile(dest, []byte("mp4!"), 0o644)
}

// fakeDecoder 依 outputPattern 產生 frames 張假 JPEG
type fakeDecoder struct {
	frames int
	err    error
	calls  int
	input  string
}

func (f *fakeDecoder) Decode(ctx context.Context, input string, pattern string) error {
	f.calls++
	f.input = input
	if f.err != nil {
		return f.err
	}
	for i := 1; i <= f.frames; i++ {
		if err := os.WriteFile(fmt.Sprintf(pattern, i), []byte{0xff, 0xd8}, 0o644); err != nil {
			return err
		}
	}
	return nil
}

type uploadCall struct {
	localPath, folderID, name string
}

type fakeUploader struct {
	mu     sync.Mutex
	calls  []uploadCall
	failOn map[string]bool
}

func (f *fakeUploader) Upload(ctx context.Context, localPath, folderID, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, uploadCall{localPath, folderID, name})
	if f.failOn[name] {
		return "", errors.New("drive 拒絕")
	}
	if _, err := os.Stat(localPath); err != nil {
		return "", err
	}
	return "id-" + name, nil
}

func (f *fakeUploader) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.name
	}
	sort.Strings(out)
	return out
}

type memRunStore struct {
	mu       sync.Mutex
	created  []models.RunRecord
	finished []models.RunRecord
}

func (m *memRunStore) CreateRun(_ context.Context, r *models.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, *r)
	return nil
}

func (m *memRunStore) FinishRun(_ context.Context, r *models.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished = append(m.finished, *r)
	return nil
}

func (m *memRunStore) ListRecentRuns(_ context.Context, limit int) ([]models.RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.RunRecord(nil), m.finished...), nil
}

type harness struct {
	cfg      *config.Config
	base     string
	source   *fakeSource
	decoder  *fakeDecoder
	uploader *fakeUploader
	authErr  error
	authN    int
	runs     *memRunStore
	svc      *ExtractService
}

func testConfig() *config.Config {
	return &config.Config{
		FFmpeg: config.FFmpegConfig{OutputPattern: "img-%03d.jpg"},
		Upload: config.UploadConfig{BatchSize: 8, MimeType: "image/jpeg"},
	}
}

func newHarness(t *testing.T, frames int) *harness {
	t.Helper()
	h := &harness{
		cfg:      testConfig(),
		base:     t.TempDir(),
		source:   &fakeSource{},
		decoder:  &fakeDecoder{frames: frames},
		uploader: &fakeUploader{failOn: map[string]bool{}},
		runs:     &memRunStore{},
	}
	h.cfg.WorkDir.BaseDir = h.base
	mgr, err := workdir.NewManager(h.cfg.WorkDir, logging.Nop())
	if err != nil {
		t.Fatalf("建立 workdir 失敗：%v", err)
	}
	auth := AuthorizerFunc(func(ctx context.Context) (Uploader, error) {
		h.authN++
		if h.authErr != nil {
			return nil, h.authErr
		}
		return h.uploader, nil
	})
	h.svc, err = NewExtractService(h.cfg, h.source, h.decoder, auth, mgr, h.runs, logging.Nop())
	if err != nil {
		t.Fatalf("建立 ExtractService 失敗：%v", err)
	}
	return h
}

// leftovers 列出 base 底下殘留的暫存目錄
func (h *harness) leftovers(t *testing.T) []string {
	t.Helper()
	m, err := filepath.Glob(filepath.Join(h.base, workdir.DirPrefix+"*"))
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func sampleRequest(qNum int) models.ExtractRequest {
	return models.ExtractRequest{
		Quarter: models.QuarterID{
			HostName: "c1",
			CameraID: "cam",
			DateDir:  "20170613",
			Quarter:  qNum,
			QName:    models.QNameFor(qNum),
		},
		UploadDir: "folder-1",
	}
}

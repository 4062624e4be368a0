package workdir

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"fuego-ffmpeg/internal/config"
)

// DirPrefix 每次執行建立的暫存目錄名稱前綴
const DirPrefix = "fuego_ffmpeg_"

// Manager 負責在 baseDir 底下建立與清理每次執行專屬的暫存目錄
type Manager struct {
	baseDir string
	log     logrus.FieldLogger
	now     func() time.Time
}

// NewManager baseDir 為空時使用系統暫存目錄；不存在則建立
func NewManager(cfg config.WorkDirConfig, logger logrus.FieldLogger) (*Manager, error) {
	base := cfg.BaseDir
	if base == "" {
		base = os.TempDir()
	}
	absBase, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("無法取得暫存根目錄的絕對路徑 '%s': %w", base, err)
	}

	log := logger.WithField("component", "WorkDir")
	if _, err := os.Stat(absBase); os.IsNotExist(err) {
		log.Infof("資訊：暫存根目錄 '%s' 不存在，正在嘗試建立...", absBase)
		if err := os.MkdirAll(absBase, 0o755); err != nil {
			return nil, fmt.Errorf("無法建立暫存根目錄 '%s': %w", absBase, err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("檢查暫存根目錄 '%s' 時發生錯誤: %w", absBase, err)
	}
	return &Manager{baseDir: absBase, log: log, now: time.Now}, nil
}

// BaseDir 暫存根目錄
func (m *Manager) BaseDir() string { return m.baseDir }

// Acquire 建立一個全新的暫存目錄，只屬於一次執行
func (m *Manager) Acquire() (*Dir, error) {
	p, err := os.MkdirTemp(m.baseDir, DirPrefix)
	if err != nil {
		return nil, fmt.Errorf("無法建立暫存目錄: %w", err)
	}
	m.log.WithField("path", p).Debug("資訊：建立暫存目錄")
	return &Dir{path: p, log: m.log}, nil
}

// SweepStale 刪除超過 olderThan 未修改的遺留暫存目錄 (通常是失敗後保留下來的)
func (m *Manager) SweepStale(olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(m.baseDir)
	if err != nil {
		return 0, fmt.Errorf("讀取暫存根目錄 '%s' 失敗: %w", m.baseDir, err)
	}
	cutoff := m.now().Add(-olderThan)
	removed := 0
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), DirPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			m.log.WithError(err).Warnf("警告：無法讀取 '%s' 資訊", e.Name())
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		p := filepath.Join(m.baseDir, e.Name())
		if err := os.RemoveAll(p); err != nil {
			m.log.WithError(err).Warnf("警告：刪除遺留暫存目錄 '%s' 失敗", p)
			continue
		}
		removed++
		m.log.WithField("path", p).Info("資訊：已刪除遺留暫存目錄")
	}
	return removed, nil
}

// Dir 單次執行的暫存目錄
type Dir struct {
	path string
	log  logrus.FieldLogger
}

// Root 目錄路徑
func (d *Dir) Root() string { return d.path }

// Path 目錄內檔案的完整路徑
func (d *Dir) Path(name string) string { return filepath.Join(d.path, name) }

// Frames 列出目錄內的 .jpg 並依檔名排序 (ffmpeg 的補零編號即擷取順序)
func (d *Dir) Frames() ([]string, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, fmt.Errorf("讀取暫存目錄 '%s' 失敗: %w", d.path, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".jpg") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(d.path, n)
	}
	return paths, nil
}

// Sizes 回傳目錄內各檔案大小，僅供日誌記錄
func (d *Dir) Sizes() (map[string]int64, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, fmt.Errorf("讀取暫存目錄 '%s' 失敗: %w", d.path, err)
	}
	sizes := make(map[string]int64, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		sizes[e.Name()] = info.Size()
	}
	return sizes, nil
}

// LogContents 記錄目錄內檔案數與總大小
func (d *Dir) LogContents(stage string) {
	sizes, err := d.Sizes()
	if err != nil {
		d.log.WithError(err).Warn("警告：無法列出暫存目錄")
		return
	}
	var total int64
	for _, s := range sizes {
		total += s
	}
	d.log.WithFields(logrus.Fields{"stage": stage, "files": len(sizes), "bytes": total}).Info("資訊：暫存目錄內容")
}

// Release 刪除整個暫存目錄
func (d *Dir) Release() error {
	if err := os.RemoveAll(d.path); err != nil {
		return fmt.Errorf("無法刪除暫存目錄 '%s': %w", d.path, err)
	}
	d.log.WithField("path", d.path).Debug("資訊：暫存目錄已刪除")
	return nil
}

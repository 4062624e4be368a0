package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"fuego-ffmpeg/internal/batch"
	"fuego-ffmpeg/internal/config"
	"fuego-ffmpeg/internal/models"
	"fuego-ffmpeg/internal/naming"
)

// mp4FileName 下載後在暫存目錄中的檔名
const mp4FileName = "q.mp4"

// ExtractService 依序執行：組 URL → 下載 → 擷取影格 → 授權 → 批次上傳 → 清理
type ExtractService struct {
	cfg      *config.Config
	source   ArchiveSource
	decoder  FrameDecoder
	auth     DriveAuthorizer
	workdirs WorkDirs
	runs     RunStore
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewExtractService 建立 ExtractService 實例；runs 可為 nil
func NewExtractService(
	cfg *config.Config,
	source ArchiveSource,
	decoder FrameDecoder,
	auth DriveAuthorizer,
	workdirs WorkDirs,
	runs RunStore,
	logger logrus.FieldLogger,
) (*ExtractService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("ExtractService：設定不得為空")
	}
	if source == nil {
		return nil, fmt.Errorf("ExtractService：ArchiveSource 不得為空")
	}
	if decoder == nil {
		return nil, fmt.Errorf("ExtractService：FrameDecoder 不得為空")
	}
	if auth == nil {
		return nil, fmt.Errorf("ExtractService：DriveAuthorizer 不得為空")
	}
	if workdirs == nil {
		return nil, fmt.Errorf("ExtractService：WorkDirs 不得為空")
	}
	if runs == nil {
		runs = NopRunStore{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ExtractService{
		cfg:      cfg,
		source:   source,
		decoder:  decoder,
		auth:     auth,
		workdirs: workdirs,
		runs:     runs,
		log:      logger.WithField("component", "ExtractService"),
		now:      time.Now,
	}, nil
}

func stageContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// Run 執行一次完整流程。任何階段失敗即中止，回傳 *StageError。
func (s *ExtractService) Run(ctx context.Context, req models.ExtractRequest) (res *models.ExtractResult, err error) {
	q := req.Quarter
	runID := uuid.NewString()
	log := s.log.WithFields(logrus.Fields{"run_id": runID, "quarter": q.String()})

	prefix, err := naming.Prefix(q.CameraID, q.DateDir)
	if err != nil {
		return nil, newStageError(StageRequest, err)
	}

	mp4URL := s.source.ArchiveURL(q)
	log.WithField("url", mp4URL).Info("資訊：開始處理 quarter")

	rec := &models.RunRecord{
		ID:        runID,
		HostName:  q.HostName,
		CameraID:  q.CameraID,
		DateDir:   q.DateDir,
		QName:     q.QName,
		UploadDir: req.UploadDir,
		SourceURL: mp4URL,
		Status:    models.RunStatusRunning,
		StartedAt: s.now(),
	}
	if cerr := s.runs.CreateRun(ctx, rec); cerr != nil {
		log.WithError(cerr).Warn("警告：寫入執行紀錄失敗")
	}
	defer func() { s.finishRun(log, rec, res, err) }()

	dir, err := s.workdirs.Acquire()
	if err != nil {
		return nil, newStageError(StageWorkDir, err)
	}
	defer func() {
		if err != nil && s.cfg.WorkDir.KeepOnFailure {
			log.WithField("path", dir.Root()).Warn("警告：執行失敗，保留暫存目錄供除錯")
			return
		}
		if rerr := dir.Release(); rerr != nil {
			log.WithError(rerr).Warn("警告：刪除暫存目錄失敗")
		}
	}()

	// 1. 下載
	mp4Path := dir.Path(mp4FileName)
	dctx, cancel := stageContext(ctx, s.cfg.Timeouts.Download)
	n, err := s.source.Download(dctx, mp4URL, mp4Path)
	cancel()
	if err != nil {
		log.WithError(err).Error("錯誤：下載 MP4 失敗")
		return nil, newStageError(StageDownload, err)
	}
	log.WithField("bytes", n).Info("資訊：MP4 下載完成")
	dir.LogContents("download")

	// 2. 擷取影格
	pattern := dir.Path(s.cfg.FFmpeg.OutputPattern)
	fctx, cancel := stageContext(ctx, s.cfg.Timeouts.Decode)
	err = s.decoder.Decode(fctx, mp4Path, pattern)
	cancel()
	if err != nil {
		log.WithError(err).Error("錯誤：擷取影格失敗")
		return nil, newStageError(StageDecode, err)
	}
	dir.LogContents("decode")

	frames, err := dir.Frames()
	if err != nil {
		return nil, newStageError(StageDecode, err)
	}
	if len(frames) == 0 {
		return nil, newStageError(StageDecode, errors.New("ffmpeg 沒有產生任何影格"))
	}
	rec.Frames = len(frames)

	// 3. 授權
	uploader, err := s.auth.Authorize(ctx)
	if err != nil {
		log.WithError(err).Error("錯誤：Drive 授權失敗")
		return nil, newStageError(StageAuth, err)
	}

	// 4. 批次上傳
	tasks, _ := naming.BuildTasks(prefix, q.Quarter, req.UploadDir, frames)
	log.WithFields(logrus.Fields{"frames": len(tasks), "batch_size": s.cfg.Upload.BatchSize}).Info("資訊：開始上傳影格")
	outcomes, err := batch.RunWithLogger(ctx, log, tasks, s.cfg.Upload.BatchSize,
		func(ctx context.Context, t models.UploadTask) (models.UploadResult, error) {
			uctx, cancel := stageContext(ctx, s.cfg.Timeouts.Upload)
			defer cancel()
			id, err := uploader.Upload(uctx, t.LocalPath, t.FolderID, t.Name)
			return models.UploadResult{Task: t, FileID: id}, err
		})
	uploaded := batch.Values(outcomes)
	rec.Uploaded = len(uploaded)
	if err != nil {
		log.WithError(err).WithField("uploaded", len(uploaded)).Error("錯誤：上傳影格失敗")
		return nil, newStageError(StageUpload, err)
	}

	log.WithField("uploaded", len(uploaded)).Info("資訊：全部完成")
	return &models.ExtractResult{
		RunID:    runID,
		URL:      mp4URL,
		Frames:   len(frames),
		Uploaded: uploaded,
	}, nil
}

func (s *ExtractService) finishRun(log logrus.FieldLogger, rec *models.RunRecord, res *models.ExtractResult, err error) {
	rec.FinishedAt = models.NewJsonNullTime(s.now())
	if err != nil {
		rec.Status = models.RunStatusFailed
		rec.Error = models.NewJsonNullString(err.Error())
		var se *StageError
		if errors.As(err, &se) {
			rec.Stage = models.NewJsonNullString(string(se.Stage))
		}
	} else {
		rec.Status = models.RunStatusSucceeded
		if res != nil {
			rec.Uploaded = len(res.Uploaded)
		}
	}
	// 呼叫端的 ctx 可能已取消，紀錄仍要寫完
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if ferr := s.runs.FinishRun(ctx, rec); ferr != nil {
		log.WithError(ferr).Warn("警告：更新執行紀錄失敗")
	}
}

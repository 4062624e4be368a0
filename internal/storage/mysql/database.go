package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"

	"fuego-ffmpeg/internal/config"
	"fuego-ffmpeg/internal/models"
)

// MySQLStore 以 extract_runs 資料表保存執行紀錄
type MySQLStore struct {
	db  *sql.DB
	log logrus.FieldLogger
}

// NewMySQLStore 開啟連線並 ping 確認可用
func NewMySQLStore(dbCfg config.DatabaseConfig, logger logrus.FieldLogger) (*MySQLStore, error) {
	if dbCfg.Driver != "mysql" {
		return nil, fmt.Errorf("不支援的資料庫驅動程式: %s", dbCfg.Driver)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	db, err := sql.Open("mysql", dbCfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("開啟資料庫連線失敗: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("無法連線到資料庫 (ping 失敗): %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	log := logger.WithField("component", "MySQLStore")
	log.Info("資訊：成功連線到 MySQL 資料庫。")
	return &MySQLStore{db: db, log: log}, nil
}

func (s *MySQLStore) Close() error {
	if s.db != nil {
		s.log.Info("資訊：正在關閉 MySQL 資料庫連線...")
		return s.db.Close()
	}
	return nil
}

// CreateRun 新增一筆 running 狀態的紀錄
func (s *MySQLStore) CreateRun(ctx context.Context, run *models.RunRecord) error {
	if run == nil || run.ID == "" {
		return errors.New("傳入的執行紀錄不得為空且必須有 ID")
	}
	const q = `INSERT INTO extract_runs (id, host_name, camera_id, date_dir, q_name, upload_dir, source_url, status, frames, uploaded, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`
	_, err := s.db.ExecContext(ctx, q, run.ID, run.HostName, run.CameraID, run.DateDir, run.QName, run.UploadDir,
		run.SourceURL, run.Status, run.Frames, run.Uploaded, run.StartedAt)
	if err != nil {
		return fmt.Errorf("插入執行紀錄失敗 (ID: %s): %w", run.ID, err)
	}
	return nil
}

// FinishRun 更新結束狀態、失敗階段與計數
func (s *MySQLStore) FinishRun(ctx context.Context, run *models.RunRecord) error {
	if run == nil || run.ID == "" {
		return errors.New("傳入的執行紀錄不得為空且必須有 ID")
	}
	const q = `UPDATE extract_runs SET status = ?, stage = ?, frames = ?, uploaded = ?, error_message = ?, finished_at = ? WHERE id = ?;`
	res, err := s.db.ExecContext(ctx, q, run.Status, run.Stage.NullString, run.Frames, run.Uploaded,
		run.Error.NullString, run.FinishedAt.NullTime, run.ID)
	if err != nil {
		return fmt.Errorf("更新執行紀錄 %s 失敗: %w", run.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		s.log.Warnf("警告：執行紀錄 %s 不存在，未更新任何資料列", run.ID)
	}
	return nil
}

// ListRecentRuns 依開始時間由新到舊
func (s *MySQLStore) ListRecentRuns(ctx context.Context, limit int) ([]models.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `SELECT id, host_name, camera_id, date_dir, q_name, upload_dir, source_url, status, stage, frames, uploaded, error_message, started_at, finished_at
		FROM extract_runs ORDER BY started_at DESC LIMIT ?;`
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("查詢執行紀錄失敗: %w", err)
	}
	defer rows.Close()

	runs := []models.RunRecord{}
	for rows.Next() {
		var r models.RunRecord
		if err := rows.Scan(&r.ID, &r.HostName, &r.CameraID, &r.DateDir, &r.QName, &r.UploadDir, &r.SourceURL, &r.Status,
			&r.Stage.NullString, &r.Frames, &r.Uploaded, &r.Error.NullString, &r.StartedAt, &r.FinishedAt.NullTime); err != nil {
			s.log.WithError(err).Error("錯誤：掃描執行紀錄失敗")
			continue
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("處理執行紀錄結果集時發生錯誤: %w", err)
	}
	return runs, nil
}

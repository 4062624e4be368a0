package models

import "time"

// RunStatus 執行紀錄狀態
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// RunRecord 對應 extract_runs 資料表
type RunRecord struct {
	ID         string         `json:"id"`
	HostName   string         `json:"host_name"`
	CameraID   string         `json:"camera_id"`
	DateDir    string         `json:"date_dir"`
	QName      string         `json:"q_name"`
	UploadDir  string         `json:"upload_dir"`
	SourceURL  string         `json:"source_url"`
	Status     RunStatus      `json:"status"`
	Stage      JsonNullString `json:"stage"` // 失敗的階段：download / decode / auth / upload
	Frames     int            `json:"frames"`
	Uploaded   int            `json:"uploaded"`
	Error      JsonNullString `json:"error"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt JsonNullTime   `json:"finished_at"`
}

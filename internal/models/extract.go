package models

// ExtractRequest 已驗證過的觸發請求
type ExtractRequest struct {
	Quarter   QuarterID
	UploadDir string // Drive 目標資料夾 ID
}

// ExtractResult 一次完整執行的結果
type ExtractResult struct {
	RunID    string
	URL      string
	Frames   int
	Uploaded []UploadResult
}

// TriggerInput HTTP 觸發請求的原始欄位；數字或字串皆可 (以 mapstructure 弱型別解碼)
type TriggerInput struct {
	HostName  string `mapstructure:"hostName"`
	CameraID  string `mapstructure:"cameraID"`
	YearDir   string `mapstructure:"yearDir"`
	DateDir   string `mapstructure:"dateDir"`
	QNum      int    `mapstructure:"qNum"`
	QName     string `mapstructure:"qName"`
	UploadDir string `mapstructure:"uploadDir"`
}

package models

// FrameRecord 由 quarter 與擷取序號推導出的影格資訊，建立後不再修改
type FrameRecord struct {
	Index  int
	Hour   int
	Minute int
	Name   string
}

// UploadTask 一個待上傳的影格檔案
type UploadTask struct {
	LocalPath string
	FolderID  string
	Name      string
}

// UploadResult 上傳成功後 Drive 回傳的檔案 ID
type UploadResult struct {
	Task   UploadTask
	FileID string
}

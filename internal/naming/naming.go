// Package naming 把 quarter 內的影格擷取序號換算成時間戳記檔名。
//
// 檔名格式為 <cameraID>__YYYY-MM-DDT<hour>;<MM>;00.jpg，
// 相同輸入永遠得到相同檔名，同一 quarter 內各格檔名互不重複。
package naming

import (
	"fmt"
	"regexp"

	"fuego-ffmpeg/internal/models"
)

// FramesPerHour 封存影片每分鐘一格
const FramesPerHour = 60

var dateDirPattern = regexp.MustCompile(`^[0-9]{8}$`)

// Prefix 由攝影機 ID 與 YYYYMMDD 日期目錄組出檔名前綴
func Prefix(cameraID, dateDir string) (string, error) {
	if !dateDirPattern.MatchString(dateDir) {
		return "", fmt.Errorf("dateDir 必須為 YYYYMMDD，得到 %q", dateDir)
	}
	return cameraID + "__" + dateDir[0:4] + "-" + dateDir[4:6] + "-" + dateDir[6:8] + "T", nil
}

// HourMinute 回傳第 index 格 (0 起算) 對應的時與分。
// hour 不檢查是否超過 23；一個 quarter 最多 180 格。
func HourMinute(quarter, index int) (hour, minute int) {
	hour = (quarter-1)*models.HoursPerQuarter + index/FramesPerHour
	minute = index % FramesPerHour
	return hour, minute
}

// FrameName 組出上傳檔名，分鐘補零、小時不補零
func FrameName(prefix string, quarter, index int) string {
	hour, minute := HourMinute(quarter, index)
	return fmt.Sprintf("%s%d;%02d;00.jpg", prefix, hour, minute)
}

// NewFrameRecord 建立單一影格的命名紀錄
func NewFrameRecord(prefix string, quarter, index int) models.FrameRecord {
	hour, minute := HourMinute(quarter, index)
	return models.FrameRecord{
		Index:  index,
		Hour:   hour,
		Minute: minute,
		Name:   FrameName(prefix, quarter, index),
	}
}

// BuildTasks 依排序後的本機檔案清單建立上傳任務，第 i 個檔案即第 i 格
func BuildTasks(prefix string, quarter int, folderID string, localPaths []string) ([]models.UploadTask, []models.FrameRecord) {
	tasks := make([]models.UploadTask, 0, len(localPaths))
	records := make([]models.FrameRecord, 0, len(localPaths))
	for i, p := range localPaths {
		rec := NewFrameRecord(prefix, quarter, i)
		records = append(records, rec)
		tasks = append(tasks, models.UploadTask{
			LocalPath: p,
			FolderID:  folderID,
			Name:      rec.Name,
		})
	}
	return tasks, records
}

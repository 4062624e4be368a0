package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"fuego-ffmpeg/internal/models"
	"fuego-ffmpeg/internal/naming"
)

var qNamePattern = regexp.MustCompile(`^Q([1-8])\.mp4$`)

// NewExtractRequest 驗證觸發請求並轉成 ExtractRequest。
// 只給 qName 時，quarter 編號從 Q<n>.mp4 取出，檔名時間需要它。
func NewExtractRequest(in models.TriggerInput) (models.ExtractRequest, error) {
	var missing []string
	for _, f := range []struct {
		name, value string
	}{
		{"hostName", in.HostName},
		{"cameraID", in.CameraID},
		{"dateDir", in.DateDir},
		{"uploadDir", in.UploadDir},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if in.QNum == 0 && strings.TrimSpace(in.QName) == "" {
		missing = append(missing, "qNum|qName")
	}
	if len(missing) > 0 {
		return models.ExtractRequest{}, newStageError(StageRequest, fmt.Errorf("Missing parameters: %s", strings.Join(missing, ", ")))
	}

	q := models.QuarterID{
		HostName: strings.TrimSpace(in.HostName),
		CameraID: strings.TrimSpace(in.CameraID),
		YearDir:  strings.TrimSpace(in.YearDir),
		DateDir:  strings.TrimSpace(in.DateDir),
		Quarter:  in.QNum,
		QName:    strings.TrimSpace(in.QName),
	}
	if _, err := naming.Prefix(q.CameraID, q.DateDir); err != nil {
		return models.ExtractRequest{}, newStageError(StageRequest, fmt.Errorf("Invalid dateDir: %q (expected YYYYMMDD)", q.DateDir))
	}

	switch {
	case q.Quarter != 0:
		if q.Quarter < 1 || q.Quarter > models.QuarterCount {
			return models.ExtractRequest{}, newStageError(StageRequest, fmt.Errorf("Invalid qNum: %d (expected 1-%d)", q.Quarter, models.QuarterCount))
		}
		if q.QName == "" {
			q.QName = models.QNameFor(q.Quarter)
		}
	default:
		m := qNamePattern.FindStringSubmatch(q.QName)
		if m == nil {
			return models.ExtractRequest{}, newStageError(StageRequest, fmt.Errorf("Invalid qName: %q (expected Q1.mp4-Q8.mp4)", q.QName))
		}
		q.Quarter, _ = strconv.Atoi(m[1])
	}

	return models.ExtractRequest{Quarter: q, UploadDir: strings.TrimSpace(in.UploadDir)}, nil
}

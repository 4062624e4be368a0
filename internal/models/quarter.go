package models

import "fmt"

// QuarterCount 一天切成 8 個 3 小時的 quarter
const QuarterCount = 8

// HoursPerQuarter 每個 quarter 涵蓋的小時數
const HoursPerQuarter = 3

// QuarterID 識別封存庫中的一段影片 (攝影機 + 日期 + quarter)
type QuarterID struct {
	HostName string
	CameraID string
	YearDir  string // 選填，部分攝影機封存路徑中有年份目錄
	DateDir  string // YYYYMMDD
	Quarter  int    // 1-8；只指定 QName 時為 0
	QName    string // 封存庫中的檔名，例如 Q3.mp4
}

// QNameFor 將 quarter 編號對應到封存庫檔名
func QNameFor(quarter int) string {
	return fmt.Sprintf("Q%d.mp4", quarter)
}

// String 方便日誌輸出
func (q QuarterID) String() string {
	return fmt.Sprintf("%s/%s/%s", q.CameraID, q.DateDir, q.QName)
}

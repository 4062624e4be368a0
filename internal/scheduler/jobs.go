package scheduler

import (
	"time"

	"github.com/sirupsen/logrus"
)

// StaleSweeper 刪除過期的暫存目錄
type StaleSweeper interface {
	SweepStale(olderThan time.Duration) (int, error)
}

// SweepJob 定期清掉失敗後保留或異常中斷遺留的暫存目錄
type SweepJob struct {
	sweeper StaleSweeper
	maxAge  time.Duration
	log     logrus.FieldLogger
}

// NewSweepJob 建立一個 SweepJob
func NewSweepJob(sweeper StaleSweeper, maxAge time.Duration, logger logrus.FieldLogger) *SweepJob {
	return &SweepJob{sweeper: sweeper, maxAge: maxAge, log: logger.WithField("component", "SweepJob")}
}

// Run 實現 cron.Job 介面 (github.com/robfig/cron/v3)
func (j *SweepJob) Run() {
	j.log.Debug("資訊：執行排程任務 - 清理暫存目錄...")
	n, err := j.sweeper.SweepStale(j.maxAge)
	if err != nil {
		j.log.WithError(err).Error("錯誤：清理暫存目錄排程任務執行失敗")
		return
	}
	if n > 0 {
		j.log.Infof("資訊：清理暫存目錄排程任務完成，刪除 %d 個目錄。", n)
	}
}

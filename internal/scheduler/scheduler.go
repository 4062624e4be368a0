package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler 包裝 cron，目前只排程暫存目錄清理
type Scheduler struct {
	cron     *cron.Cron
	sweepJob *SweepJob
	log      logrus.FieldLogger
}

// NewScheduler sweepCronSpec 使用含秒數的 6 欄格式
func NewScheduler(sweeper StaleSweeper, sweepCronSpec string, maxAge time.Duration, logger logrus.FieldLogger) (*Scheduler, error) {
	log := logger.WithField("component", "Scheduler")
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLogger(cron.PrintfLogger(log)),
		cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(log))),
	)

	sweepJob := NewSweepJob(sweeper, maxAge, logger)
	if sweepCronSpec == "" {
		log.Warn("警告：未提供暫存目錄清理任務的 Cron 表達式，該任務將不會被排程。")
	} else {
		if _, err := c.AddJob(sweepCronSpec, sweepJob); err != nil {
			return nil, fmt.Errorf("無法新增暫存目錄清理任務到排程器 (spec: %s): %w", sweepCronSpec, err)
		}
		log.Infof("資訊：暫存目錄清理任務已註冊，排程：%s，保留時間：%s", sweepCronSpec, maxAge)
	}

	return &Scheduler{cron: c, sweepJob: sweepJob, log: log}, nil
}

// Start 非阻塞啟動
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("資訊：排程器已非阻塞啟動。")
}

// Stop 等待執行中的任務結束，最多 10 秒
func (s *Scheduler) Stop() {
	s.log.Info("資訊：正在停止排程器...")
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
		s.log.Info("資訊：排程器已優雅停止，所有運行中任務已完成。")
	case <-time.After(10 * time.Second):
		s.log.Warn("警告：排程器停止超時，可能仍有任務在執行。")
	}
}

// Entries 已註冊的任務數
func (s *Scheduler) Entries() int { return len(s.cron.Entries()) }

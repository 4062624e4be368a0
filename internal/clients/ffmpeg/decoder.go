package ffmpeg

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xfrr/goffmpeg/transcoder"

	"fuego-ffmpeg/internal/config"
)

// defaultStopGrace 送出 q 之後等 ffmpeg 自行結束的時間，逾時即強制終止
const defaultStopGrace = 5 * time.Second

// runFunc 實際執行轉檔，測試時可替換
type runFunc func(ctx context.Context, inputPath, outputPattern string) error

// Decoder 用 ffmpeg 將 MP4 拆成逐格 JPEG
type Decoder struct {
	cfg       config.FFmpegConfig
	log       logrus.FieldLogger
	run       runFunc
	stopGrace time.Duration
}

// NewDecoder 建立 goffmpeg 影格擷取器
func NewDecoder(cfg config.FFmpegConfig, logger logrus.FieldLogger) *Decoder {
	d := &Decoder{
		cfg:       cfg,
		log:       logger.WithField("component", "FFmpeg Decoder"),
		stopGrace: defaultStopGrace,
	}
	d.run = d.transcode
	return d
}

// transcode 相當於 ffmpeg -i in -c:v mjpeg -an -qscale N -f image2 out。
// ctx 結束時先要求 ffmpeg 停止，必要時強制終止，確定行程結束後才回傳。
func (d *Decoder) transcode(ctx context.Context, inputPath, outputPattern string) error {
	trans := new(transcoder.Transcoder)
	if err := trans.Initialize(inputPath, outputPattern); err != nil {
		return fmt.Errorf("初始化 transcoder 失敗: %w", err)
	}
	trans.MediaFile().SetOutputFormat(d.cfg.OutputFormat)
	trans.MediaFile().SetVideoCodec(d.cfg.VideoCodec)
	trans.MediaFile().SetQScale(d.cfg.QScale)
	trans.MediaFile().SetSkipAudio(true)

	done := trans.Run(false)
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("ffmpeg 轉檔失敗: %w", err)
		}
		return nil
	case <-ctx.Done():
		d.stop(trans, done)
		return fmt.Errorf("ffmpeg 已中止: %w", ctx.Err())
	}
}

// stop 送出 q 讓 ffmpeg 收尾；stopGrace 內沒結束就 Kill，並等待行程回收
func (d *Decoder) stop(trans *transcoder.Transcoder, done <-chan error) {
	d.log.Warn("警告：要求 ffmpeg 停止")
	if err := trans.Stop(); err != nil {
		d.log.WithError(err).Warn("警告：無法送出停止指令給 ffmpeg")
	}
	timer := time.NewTimer(d.stopGrace)
	defer timer.Stop()
	select {
	case <-done:
		return
	case <-timer.C:
	}

	if cmd := trans.Process(); cmd != nil && cmd.Process != nil {
		d.log.Warn("警告：ffmpeg 未在時限內結束，強制終止")
		if err := cmd.Process.Kill(); err != nil {
			d.log.WithError(err).Warn("警告：強制終止 ffmpeg 失敗")
		}
	}
	<-done
}

// Decode 從 inputPath 擷取所有影格，依 outputPattern (例如 dir/img-%03d.jpg) 編號輸出。
// 回傳時 ffmpeg 行程一定已經結束。
func (d *Decoder) Decode(ctx context.Context, inputPath string, outputPattern string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.log.WithFields(logrus.Fields{"input": inputPath, "output": outputPattern}).Info("資訊：開始擷取影格")

	if err := d.run(ctx, inputPath, outputPattern); err != nil {
		if ctx.Err() != nil {
			d.log.WithError(err).Warn("警告：影格擷取逾時或被取消")
		} else {
			d.log.WithError(err).Error("錯誤：影格擷取失敗")
		}
		return err
	}
	d.log.Info("資訊：影格擷取完成")
	return nil
}

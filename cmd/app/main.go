package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"fuego-ffmpeg/internal/clients/ffmpeg"
	"fuego-ffmpeg/internal/clients/gdrive"
	"fuego-ffmpeg/internal/clients/hpwren"
	"fuego-ffmpeg/internal/config"
	"fuego-ffmpeg/internal/logging"
	"fuego-ffmpeg/internal/scheduler"
	"fuego-ffmpeg/internal/services"
	"fuego-ffmpeg/internal/storage/mysql"
	"fuego-ffmpeg/internal/storage/workdir"
	"fuego-ffmpeg/internal/web"
)

func main() {
	configDir := pflag.String("config-dir", "./configs", "設定檔所在目錄")
	migrationPath := pflag.String("migrations", mysql.DefaultMigrationPath, "資料庫遷移檔來源")
	pflag.Parse()

	cfg, err := config.Load(*configDir, "config")
	if err != nil {
		logrus.Fatalf("錯誤：無法載入設定: %v", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		logrus.Fatalf("錯誤：無法初始化日誌: %v", err)
	}
	log := logger.WithField("component", "Main")
	log.Info("資訊：應用程式設定載入成功。")
	gin.SetMode(cfg.Server.Mode)

	var runStore services.RunStore = services.NopRunStore{}
	var runsForHTTP services.RunStore
	if cfg.Database.Enabled {
		if err := mysql.Migrate(cfg.Database, *migrationPath, logger); err != nil {
			log.Fatalf("錯誤：%v", err)
		}
		store, err := mysql.NewMySQLStore(cfg.Database, logger)
		if err != nil {
			log.Fatalf("錯誤：初始化 MySQL 資料庫連線失敗: %v", err)
		}
		defer store.Close()
		runStore, runsForHTTP = store, store
	} else {
		log.Info("資訊：資料庫已在設定檔中停用，不保存執行紀錄。")
	}

	workdirs, err := workdir.NewManager(cfg.WorkDir, logger)
	if err != nil {
		log.Fatalf("錯誤：初始化暫存目錄失敗: %v", err)
	}

	provider, err := gdrive.ProviderFromConfig(cfg.Auth)
	if err != nil {
		log.Fatalf("錯誤：%v", err)
	}
	driveAuth := gdrive.NewAuthorizer(provider, cfg.Upload.MimeType, logger)

	extractSvc, err := services.NewExtractService(
		cfg,
		hpwren.NewClient(cfg.HPWREN, &http.Client{}, logger),
		ffmpeg.NewDecoder(cfg.FFmpeg, logger),
		services.AuthorizerFunc(func(ctx context.Context) (services.Uploader, error) {
			client, err := driveAuth.Authorize(ctx)
			if err != nil {
				return nil, err
			}
			return client, nil
		}),
		workdirs,
		runStore,
		logger,
	)
	if err != nil {
		log.Fatalf("錯誤：初始化擷取服務失敗: %v", err)
	}

	if cfg.Scheduler.Enabled {
		log.Info("資訊：排程器已在設定檔中啟用，正在初始化...")
		appScheduler, err := scheduler.NewScheduler(workdirs, cfg.Scheduler.SweepCronSpec, cfg.WorkDir.MaxAge, logger)
		if err != nil {
			log.Fatalf("錯誤：%v", err)
		}
		appScheduler.Start()
		defer appScheduler.Stop()
	} else {
		log.Info("資訊：排程器已在設定檔中禁用。")
	}

	router := web.SetupRouter(extractSvc, runsForHTTP, logger)
	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		log.Infof("資訊：HTTP 伺服器正在監聽 %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("錯誤：HTTP 伺服器監聽失敗: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("資訊：收到關閉訊號，正在關閉應用程式...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Errorf("錯誤：HTTP 伺服器優雅關閉失敗: %v", err)
		return
	}
	log.Info("資訊：HTTP 伺服器已關閉。")
	log.Info("資訊：應用程式已成功關閉。")
}

package mysql

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/sirupsen/logrus"

	"fuego-ffmpeg/internal/config"
)

// DefaultMigrationPath 相對於工作目錄的遷移檔位置
const DefaultMigrationPath = "file://scripts/migrate/mysql"

// Migrate 套用所有尚未執行的遷移
func Migrate(dbCfg config.DatabaseConfig, migrationPath string, logger logrus.FieldLogger) error {
	log := logger.WithField("component", "Migrate")
	log.Infof("資訊：準備執行資料庫遷移，來源: %s, DSN 使用資料庫: %s", migrationPath, dbCfg.DBName)

	m, err := migrate.New(migrationPath, dbCfg.MigrateURL())
	if err != nil {
		return fmt.Errorf("建立遷移實例失敗: %w", err)
	}
	defer m.Close()

	currentVersion, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("獲取資料庫遷移版本失敗: %w", err)
	}
	if dirty {
		return fmt.Errorf("資料庫處於 dirty 狀態 (版本 %d)，遷移失敗", currentVersion)
	}
	log.Infof("資訊：目前資料庫版本: %d。開始應用遷移...", currentVersion)

	switch err := m.Up(); {
	case errors.Is(err, migrate.ErrNoChange):
		log.Info("資訊：資料庫結構已是最新，無需遷移。")
	case err != nil:
		return fmt.Errorf("執行資料庫遷移 (m.Up) 失敗: %w", err)
	default:
		newVersion, _, _ := m.Version()
		log.Infof("資訊：資料庫遷移成功完成，版本更新至: %d。", newVersion)
	}
	return nil
}

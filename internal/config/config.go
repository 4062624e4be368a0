package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig HTTP 觸發端點設定
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	Mode            string        `mapstructure:"mode"` // gin 模式：debug / release / test
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
}

// HPWRENConfig 影片封存來源設定
type HPWRENConfig struct {
	Scheme     string `mapstructure:"scheme"`
	BaseDomain string `mapstructure:"baseDomain"`
}

// FFmpegConfig 擷取影格時的編碼設定
type FFmpegConfig struct {
	OutputPattern string `mapstructure:"outputPattern"`
	OutputFormat  string `mapstructure:"outputFormat"`
	VideoCodec    string `mapstructure:"videoCodec"`
	QScale        uint32 `mapstructure:"qscale"`
}

// UploadConfig 批次上傳設定
type UploadConfig struct {
	BatchSize int    `mapstructure:"batchSize"`
	MimeType  string `mapstructure:"mimeType"`
}

// AuthConfig 選擇 Google Drive 憑證的取得方式
// provider: "default" (環境預設憑證)、"serviceAccount" (金鑰檔)、"oauthToken" (OAuth refresh token)
type AuthConfig struct {
	Provider        string `mapstructure:"provider"`
	KeyFile         string `mapstructure:"keyFile"`
	CredentialsFile string `mapstructure:"credentialsFile"`
	TokenFile       string `mapstructure:"tokenFile"`
}

// WorkDirConfig 暫存工作目錄設定
type WorkDirConfig struct {
	BaseDir       string        `mapstructure:"baseDir"`
	KeepOnFailure bool          `mapstructure:"keepOnFailure"`
	MaxAge        time.Duration `mapstructure:"maxAge"`
}

// TimeoutConfig 各階段逾時，0 表示不限制
type TimeoutConfig struct {
	Download time.Duration `mapstructure:"download"`
	Decode   time.Duration `mapstructure:"decode"`
	Upload   time.Duration `mapstructure:"upload"`
}

// SchedulerConfig 清理排程設定
type SchedulerConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	SweepCronSpec string `mapstructure:"sweepCronSpec"`
}

// LogConfig 日誌設定
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text 或 json
}

// Config 應用程式設定
type Config struct {
	AppName   string          `mapstructure:"appName"`
	Server    ServerConfig    `mapstructure:"server"`
	HPWREN    HPWRENConfig    `mapstructure:"hpwren"`
	FFmpeg    FFmpegConfig    `mapstructure:"ffmpeg"`
	Upload    UploadConfig    `mapstructure:"upload"`
	Auth      AuthConfig      `mapstructure:"auth"`
	WorkDir   WorkDirConfig   `mapstructure:"workdir"`
	Timeouts  TimeoutConfig   `mapstructure:"timeouts"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Log       LogConfig       `mapstructure:"log"`
}

type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbName"`
}

// DSN 組出 go-sql-driver/mysql 使用的連線字串
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local", d.User, d.Password, d.Host, d.Port, d.DBName)
}

// MigrateURL 組出 golang-migrate 使用的連線字串
func (d DatabaseConfig) MigrateURL() string {
	return fmt.Sprintf("mysql://%s&multiStatements=true", d.DSN())
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("appName", "fuego-ffmpeg")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.shutdownTimeout", 30*time.Second)

	v.SetDefault("hpwren.scheme", "http")
	v.SetDefault("hpwren.baseDomain", "hpwren.ucsd.edu")

	v.SetDefault("ffmpeg.outputPattern", "img-%03d.jpg")
	v.SetDefault("ffmpeg.outputFormat", "image2")
	v.SetDefault("ffmpeg.videoCodec", "mjpeg")
	v.SetDefault("ffmpeg.qscale", 1)

	// 8 個檔案並行上傳在雲端環境下已有明顯加速，再多容易碰到 API 速率限制
	v.SetDefault("upload.batchSize", 8)
	v.SetDefault("upload.mimeType", "image/jpeg")

	v.SetDefault("auth.provider", "default")

	v.SetDefault("workdir.baseDir", "")
	v.SetDefault("workdir.keepOnFailure", false)
	v.SetDefault("workdir.maxAge", 6*time.Hour)

	v.SetDefault("timeouts.download", 5*time.Minute)
	v.SetDefault("timeouts.decode", 5*time.Minute)
	v.SetDefault("timeouts.upload", 2*time.Minute)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.host", "127.0.0.1")

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.sweepCronSpec", "0 */30 * * * *")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load 讀取設定檔並套用環境變數覆寫 (例如 UPLOAD_BATCHSIZE=4)
func Load(configPath string, configName string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(configPath)
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Println("警告：找不到設定檔，將使用預設值和環境變數。")
		} else {
			return nil, fmt.Errorf("讀取設定檔時發生錯誤: %w", err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("無法解析設定檔到結構: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 檢查彼此相依的設定值
func (c *Config) Validate() error {
	if c.Upload.BatchSize <= 0 {
		return fmt.Errorf("upload.batchSize 必須大於 0，目前為 %d", c.Upload.BatchSize)
	}
	switch c.Auth.Provider {
	case "default":
	case "serviceAccount":
		if c.Auth.KeyFile == "" {
			return fmt.Errorf("auth.provider=serviceAccount 時必須設定 auth.keyFile")
		}
	case "oauthToken":
		if c.Auth.CredentialsFile == "" || c.Auth.TokenFile == "" {
			return fmt.Errorf("auth.provider=oauthToken 時必須設定 auth.credentialsFile 與 auth.tokenFile")
		}
	default:
		return fmt.Errorf("不支援的 auth.provider: %q", c.Auth.Provider)
	}
	if c.Database.Enabled && c.Database.Driver != "mysql" {
		return fmt.Errorf("不支援的資料庫驅動程式: %s", c.Database.Driver)
	}
	if !strings.Contains(c.FFmpeg.OutputPattern, "%") {
		return fmt.Errorf("ffmpeg.outputPattern 必須包含序號格式 (例如 img-%%03d.jpg)，目前為 %q", c.FFmpeg.OutputPattern)
	}
	return nil
}

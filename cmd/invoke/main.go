// invoke 建立一個暫用的 Drive 資料夾，對擷取服務送出一次觸發請求，方便手動驗證部署結果。
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"

	"fuego-ffmpeg/internal/clients/gdrive"
	"fuego-ffmpeg/internal/config"
	"fuego-ffmpeg/internal/logging"
)

const localURL = "http://localhost:8080"

type options struct {
	configDir string
	url       string
	localhost bool
	parent    string
	hostName  string
	cameraID  string
	yearDir   string
	dateDir   string
	qNum      int
	list      bool
	timeout   time.Duration
}

func parseFlags(args []string) (*options, error) {
	fs := pflag.NewFlagSet("invoke", pflag.ContinueOnError)
	o := &options{}
	fs.StringVar(&o.configDir, "config-dir", "./configs", "設定檔所在目錄 (讀取 auth 區段)")
	fs.StringVarP(&o.url, "url", "u", "", "擷取服務的 URL")
	fs.BoolVarP(&o.localhost, "localhost", "l", false, "改打 "+localURL+"，不附 ID token")
	fs.StringVarP(&o.parent, "parent", "p", "", "建立暫用資料夾的上層 Drive 資料夾 ID")
	fs.StringVar(&o.hostName, "host", "c1", "HPWREN 主機名稱")
	fs.StringVarP(&o.cameraID, "camera", "c", "", "攝影機 ID (必填)")
	fs.StringVar(&o.yearDir, "year", "2017", "年份目錄")
	fs.StringVar(&o.dateDir, "date", "20170613", "日期目錄 YYYYMMDD")
	fs.IntVarP(&o.qNum, "qnum", "q", 3, "quarter 編號 1-8")
	fs.BoolVar(&o.list, "list", false, "完成後列出資料夾內容")
	fs.DurationVar(&o.timeout, "timeout", 10*time.Minute, "等待回應的上限")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.cameraID == "" {
		return nil, fmt.Errorf("必須指定 --camera")
	}
	if o.parent == "" {
		return nil, fmt.Errorf("必須指定 --parent")
	}
	if o.localhost {
		o.url = localURL
	}
	if o.url == "" {
		return nil, fmt.Errorf("必須指定 --url 或 --localhost")
	}
	return o, nil
}

// triggerForm 與服務端接受的欄位一致
func triggerForm(o *options, folderID string) url.Values {
	return url.Values{
		"hostName":  {o.hostName},
		"cameraID":  {o.cameraID},
		"yearDir":   {o.yearDir},
		"dateDir":   {o.dateDir},
		"qNum":      {strconv.Itoa(o.qNum)},
		"uploadDir": {folderID},
	}
}

func httpClient(ctx context.Context, o *options, auth config.AuthConfig) (*http.Client, error) {
	if o.localhost {
		return &http.Client{}, nil
	}
	var opts []option.ClientOption
	if auth.Provider == "serviceAccount" && auth.KeyFile != "" {
		opts = append(opts, option.WithCredentialsFile(auth.KeyFile))
	}
	client, err := idtoken.NewClient(ctx, o.url, opts...)
	if err != nil {
		return nil, fmt.Errorf("無法建立帶 ID token 的 HTTP 客戶端: %w", err)
	}
	return client, nil
}

func post(ctx context.Context, client *http.Client, target string, form url.Values) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := client.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("送出請求失敗: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, "", fmt.Errorf("讀取回應失敗: %w", err)
	}
	return resp.StatusCode, string(body), nil
}

func run(ctx context.Context, o *options, log logrus.FieldLogger) error {
	cfg, err := config.Load(o.configDir, "config")
	if err != nil {
		return err
	}
	provider, err := gdrive.ProviderFromConfig(cfg.Auth)
	if err != nil {
		return err
	}
	drv, err := gdrive.NewAuthorizer(provider, cfg.Upload.MimeType, log).Authorize(ctx)
	if err != nil {
		return err
	}

	folderName := uuid.NewString()
	folderID, err := drv.CreateFolder(ctx, o.parent, folderName)
	if err != nil {
		return err
	}

	client, err := httpClient(ctx, o, cfg.Auth)
	if err != nil {
		return err
	}
	reqCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	status, body, err := post(reqCtx, client, o.url, triggerForm(o, folderID))
	if err != nil {
		return err
	}
	log.Warnf("服務回應: %d %s", status, body)

	if o.list {
		files, err := drv.List(ctx, folderID)
		if err != nil {
			return err
		}
		for _, f := range files {
			fmt.Printf("%s\t%s\n", f.ID, f.Name)
		}
		log.Infof("資訊：資料夾內共有 %d 個檔案", len(files))
	}
	log.Warnf("新資料夾 %s (%s) 用完請記得清除", folderName, folderID)
	return nil
}

func main() {
	logger, err := logging.New(config.LogConfig{Level: "info", Format: "text"})
	if err != nil {
		panic(err)
	}
	log := logger.WithField("component", "Invoke")

	o, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Fatalf("錯誤：%v", err)
	}
	if err := run(context.Background(), o, log); err != nil {
		log.Fatalf("錯誤：%v", err)
	}
}

package gdrive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"fuego-ffmpeg/internal/config"
)

// CredentialProvider 取得呼叫 Drive API 用的 token 來源
type CredentialProvider interface {
	Name() string
	TokenSource(ctx context.Context) (oauth2.TokenSource, error)
}

// ServiceAccountKey 以服務帳戶金鑰檔簽發 JWT
type ServiceAccountKey struct {
	KeyFile string
	Scopes  []string
}

func (p ServiceAccountKey) Name() string { return "serviceAccount" }

func (p ServiceAccountKey) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	data, err := os.ReadFile(p.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("讀取服務帳戶金鑰 '%s' 失敗: %w", p.KeyFile, err)
	}
	jwtCfg, err := google.JWTConfigFromJSON(data, scopesOrDefault(p.Scopes)...)
	if err != nil {
		return nil, fmt.Errorf("解析服務帳戶金鑰 '%s' 失敗: %w", p.KeyFile, err)
	}
	return jwtCfg.TokenSource(ctx), nil
}

// AmbientDefault 使用執行環境的預設憑證 (Cloud Functions 的服務帳戶或 GOOGLE_APPLICATION_CREDENTIALS)
type AmbientDefault struct {
	Scopes []string
}

func (p AmbientDefault) Name() string { return "default" }

func (p AmbientDefault) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	creds, err := google.FindDefaultCredentials(ctx, scopesOrDefault(p.Scopes)...)
	if err != nil {
		return nil, fmt.Errorf("找不到預設憑證: %w", err)
	}
	return creds.TokenSource, nil
}

// OAuthToken 使用已安裝應用程式的 client 設定加上先前取得的 refresh token
type OAuthToken struct {
	CredentialsFile string
	TokenFile       string
	Scopes          []string
}

func (p OAuthToken) Name() string { return "oauthToken" }

func (p OAuthToken) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	credsData, err := os.ReadFile(p.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("讀取 OAuth client 設定 '%s' 失敗: %w", p.CredentialsFile, err)
	}
	oauthCfg, err := google.ConfigFromJSON(credsData, scopesOrDefault(p.Scopes)...)
	if err != nil {
		return nil, fmt.Errorf("解析 OAuth client 設定 '%s' 失敗: %w", p.CredentialsFile, err)
	}
	tokenData, err := os.ReadFile(p.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("讀取 token 檔 '%s' 失敗: %w", p.TokenFile, err)
	}
	var stored struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.Unmarshal(tokenData, &stored); err != nil {
		return nil, fmt.Errorf("解析 token 檔 '%s' 失敗: %w", p.TokenFile, err)
	}
	if stored.RefreshToken == "" {
		return nil, fmt.Errorf("token 檔 '%s' 缺少 refresh_token", p.TokenFile)
	}
	return oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: stored.RefreshToken}), nil
}

func scopesOrDefault(scopes []string) []string {
	if len(scopes) == 0 {
		return []string{drive.DriveScope}
	}
	return scopes
}

// ProviderFromConfig 依 auth.provider 選擇憑證來源
func ProviderFromConfig(cfg config.AuthConfig) (CredentialProvider, error) {
	switch cfg.Provider {
	case "", "default":
		return AmbientDefault{}, nil
	case "serviceAccount":
		return ServiceAccountKey{KeyFile: cfg.KeyFile}, nil
	case "oauthToken":
		return OAuthToken{CredentialsFile: cfg.CredentialsFile, TokenFile: cfg.TokenFile}, nil
	default:
		return nil, fmt.Errorf("不支援的憑證來源: %q", cfg.Provider)
	}
}

// Authorizer 每次呼叫都重新取得 token 並建立 Drive 客戶端
type Authorizer struct {
	provider CredentialProvider
	mimeType string
	opts     []option.ClientOption
	log      logrus.FieldLogger
}

// NewAuthorizer opts 會附加在 token 來源之後，測試時可用來指定 endpoint
func NewAuthorizer(provider CredentialProvider, mimeType string, logger logrus.FieldLogger, opts ...option.ClientOption) *Authorizer {
	return &Authorizer{
		provider: provider,
		mimeType: mimeType,
		opts:     opts,
		log:      logger.WithField("component", "Drive Auth"),
	}
}

// Authorize 先實際換一次 token，確認憑證可用後再建立客戶端
func (a *Authorizer) Authorize(ctx context.Context) (*Client, error) {
	a.log.WithField("provider", a.provider.Name()).Info("資訊：取得 Drive 憑證")
	ts, err := a.provider.TokenSource(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := ts.Token(); err != nil {
		return nil, fmt.Errorf("以 %s 憑證取得 token 失敗: %w", a.provider.Name(), err)
	}
	opts := append([]option.ClientOption{option.WithTokenSource(ts)}, a.opts...)
	client, err := NewClient(ctx, a.mimeType, a.log, opts...)
	if err != nil {
		return nil, err
	}
	a.log.Info("資訊：Drive 授權成功")
	return client, nil
}

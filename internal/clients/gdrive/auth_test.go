package gdrive

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"google.golang.org/api/option"

	"fuego-ffmpeg/internal/config"
	"fuego-ffmpeg/internal/logging"
)

func newTokenServer(t *testing.T, status int) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"Bearer","expires_in":3600}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func writeServiceAccountKey(t *testing.T, tokenURL string) string {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}
	keyJSON := map[string]string{
		"type":           "service_account",
		"project_id":     "fuego-test",
		"private_key_id": "kid",
		"private_key":    string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})),
		"client_email":   "ffmpeg@fuego-test.iam.gserviceaccount.com",
		"client_id":      "123",
		"token_uri":      tokenURL,
	}
	b, _ := json.Marshal(keyJSON)
	p := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(p, b, 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func writeOAuthFiles(t *testing.T, tokenURL, refreshToken string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	creds := map[string]any{
		"installed": map[string]any{
			"client_id":     "cid",
			"client_secret": "secret",
			"redirect_uris": []string{"urn:ietf:wg:oauth:2.0:oob"},
			"auth_uri":      "https://accounts.example/auth",
			"token_uri":     tokenURL,
		},
	}
	cb, _ := json.Marshal(creds)
	credsPath := filepath.Join(dir, "credentials.json")
	tokenPath := filepath.Join(dir, "token.json")
	if err := os.WriteFile(credsPath, cb, 0o600); err != nil {
		t.Fatal(err)
	}
	tb, _ := json.Marshal(map[string]string{"refresh_token": refreshToken})
	if err := os.WriteFile(tokenPath, tb, 0o600); err != nil {
		t.Fatal(err)
	}
	return credsPath, tokenPath
}

func TestProviderFromConfig(t *testing.T) {
	cases := []struct {
		cfg  config.AuthConfig
		want string
	}{
		{config.AuthConfig{}, "default"},
		{config.AuthConfig{Provider: "default"}, "default"},
		{config.AuthConfig{Provider: "serviceAccount", KeyFile: "k.json"}, "serviceAccount"},
		{config.AuthConfig{Provider: "oauthToken", CredentialsFile: "c", TokenFile: "t"}, "oauthToken"},
	}
	for _, tc := range cases {
		p, err := ProviderFromConfig(tc.cfg)
		if err != nil {
			t.Fatalf("不期望錯誤：%v", err)
		}
		if p.Name() != tc.want {
			t.Fatalf("provider 錯誤：%s，期望 %s", p.Name(), tc.want)
		}
	}
	if _, err := ProviderFromConfig(config.AuthConfig{Provider: "env"}); err == nil {
		t.Fatalf("未知 provider 應回傳錯誤")
	}
}

func TestServiceAccountKey_TokenSource(t *testing.T) {
	tokenSrv, hits := newTokenServer(t, http.StatusOK)
	p := ServiceAccountKey{KeyFile: writeServiceAccountKey(t, tokenSrv.URL)}
	ts, err := p.TokenSource(context.Background())
	if err != nil {
		t.Fatalf("不期望錯誤：%v", err)
	}
	tok, err := ts.Token()
	if err != nil {
		t.Fatalf("不期望錯誤：%v", err)
	}
	if tok.AccessToken != "tok" || atomic.LoadInt32(hits) != 1 {
		t.Fatalf("token 錯誤：%+v hits=%d", tok, *hits)
	}
}

func TestServiceAccountKey_MissingFile(t *testing.T) {
	p := ServiceAccountKey{KeyFile: filepath.Join(t.TempDir(), "none.json")}
	if _, err := p.TokenSource(context.Background()); err == nil {
		t.Fatalf("金鑰檔不存在應回傳錯誤")
	}
}

func TestOAuthToken_TokenSource(t *testing.T) {
	tokenSrv, _ := newTokenServer(t, http.StatusOK)
	credsPath, tokenPath := writeOAuthFiles(t, tokenSrv.URL, "refresh")
	ts, err := OAuthToken{CredentialsFile: credsPath, TokenFile: tokenPath}.TokenSource(context.Background())
	if err != nil {
		t.Fatalf("不期望錯誤：%v", err)
	}
	if tok, err := ts.Token(); err != nil || tok.AccessToken != "tok" {
		t.Fatalf("token 錯誤：%+v %v", tok, err)
	}
}

func TestOAuthToken_MissingRefreshToken(t *testing.T) {
	credsPath, tokenPath := writeOAuthFiles(t, "http://unused", "")
	if _, err := (OAuthToken{CredentialsFile: credsPath, TokenFile: tokenPath}).TokenSource(context.Background()); err == nil {
		t.Fatalf("缺少 refresh_token 應回傳錯誤")
	}
}

func TestAuthorizer_AuthorizeBuildsWorkingClient(t *testing.T) {
	tokenSrv, _ := newTokenServer(t, http.StatusOK)
	fd := &fakeDrive{}
	driveSrv := newFakeDriveServer(t, fd)

	a := NewAuthorizer(ServiceAccountKey{KeyFile: writeServiceAccountKey(t, tokenSrv.URL)}, "image/jpeg", logging.Nop(),
		option.WithEndpoint(driveSrv.URL+"/"),
		option.WithHTTPClient(driveSrv.Client()),
	)
	client, err := a.Authorize(context.Background())
	if err != nil {
		t.Fatalf("不期望錯誤：%v", err)
	}
	if _, err := client.CreateFolder(context.Background(), "p", "f"); err != nil {
		t.Fatalf("授權後的客戶端應可使用：%v", err)
	}
}

func TestAuthorizer_TokenRejected(t *testing.T) {
	tokenSrv, _ := newTokenServer(t, http.StatusUnauthorized)
	a := NewAuthorizer(ServiceAccountKey{KeyFile: writeServiceAccountKey(t, tokenSrv.URL)}, "image/jpeg", logging.Nop())
	if _, err := a.Authorize(context.Background()); err == nil {
		t.Fatalf("token 被拒時應回傳錯誤")
	}
}

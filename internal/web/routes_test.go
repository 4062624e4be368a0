package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"fuego-ffmpeg/internal/logging"
	"fuego-ffmpeg/internal/models"
	"fuego-ffmpeg/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeExtractor struct {
	mu   sync.Mutex
	reqs []models.ExtractRequest
	err  error
}

func (f *fakeExtractor) Run(_ context.Context, req models.ExtractRequest) (*models.ExtractResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &models.ExtractResult{RunID: "run-1", Frames: 1, Uploaded: []models.UploadResult{{FileID: "x"}}}, nil
}

type fakeRuns struct {
	services.NopRunStore
	gotLimit int
}

func (f *fakeRuns) ListRecentRuns(_ context.Context, limit int) ([]models.RunRecord, error) {
	f.gotLimit = limit
	return []models.RunRecord{{ID: "run-1", CameraID: "cam", Status: models.RunStatusSucceeded}}, nil
}

func postForm(t *testing.T, h http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func postJSON(t *testing.T, h http.Handler, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func sampleForm() url.Values {
	return url.Values{
		"hostName":  {"c1"},
		"cameraID":  {"cam"},
		"yearDir":   {"2017"},
		"dateDir":   {"20170613"},
		"qNum":      {"3"},
		"uploadDir": {"folder-1"},
	}
}

func TestExtract_FormSuccess(t *testing.T) {
	fx := &fakeExtractor{}
	r := SetupRouter(fx, nil, logging.Nop())

	w := postForm(t, r, "/", sampleForm())
	if w.Code != http.StatusOK || w.Body.String() != "done" {
		t.Fatalf("期望 200 done，實際 %d %q", w.Code, w.Body.String())
	}
	if len(fx.reqs) != 1 {
		t.Fatalf("應執行一次，實際 %d", len(fx.reqs))
	}
	q := fx.reqs[0].Quarter
	if q.Quarter != 3 || q.QName != "Q3.mp4" || q.YearDir != "2017" || fx.reqs[0].UploadDir != "folder-1" {
		t.Fatalf("請求轉換錯誤：%+v", fx.reqs[0])
	}
}

func TestExtract_JSONNumbersAndStrings(t *testing.T) {
	fx := &fakeExtractor{}
	r := SetupRouter(fx, nil, logging.Nop())

	body := `{"hostName":"c1","cameraID":"cam","yearDir":2017,"dateDir":"20170613","qNum":4,"uploadDir":"folder-1"}`
	w := postJSON(t, r, "/extractMp4", body)
	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，實際 %d %q", w.Code, w.Body.String())
	}
	if got := fx.reqs[0].Quarter; got.Quarter != 4 || got.YearDir != "2017" {
		t.Fatalf("數字欄位解碼錯誤：%+v", got)
	}

	body = `{"hostName":"c1","cameraID":"cam","dateDir":"20170613","qNum":"2","uploadDir":"folder-1"}`
	if w := postJSON(t, r, "/", body); w.Code != http.StatusOK {
		t.Fatalf("字串 qNum 應接受，實際 %d %q", w.Code, w.Body.String())
	}
}

func TestExtract_MissingUploadDirNeverRuns(t *testing.T) {
	fx := &fakeExtractor{}
	r := SetupRouter(fx, nil, logging.Nop())

	form := sampleForm()
	form.Del("uploadDir")
	w := postForm(t, r, "/", form)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("期望 400，實際 %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "uploadDir") {
		t.Fatalf("訊息應指出缺少 uploadDir：%q", w.Body.String())
	}
	if len(fx.reqs) != 0 {
		t.Fatal("欄位缺少時不應執行流程")
	}
}

func TestExtract_InvalidInputs(t *testing.T) {
	r := SetupRouter(&fakeExtractor{}, nil, logging.Nop())
	cases := map[string]string{
		"JSON 壞掉":  `{"hostName":`,
		"qNum 非數字": `{"hostName":"c1","cameraID":"cam","dateDir":"20170613","qNum":"three","uploadDir":"f"}`,
		"qNum 超出":  `{"hostName":"c1","cameraID":"cam","dateDir":"20170613","qNum":12,"uploadDir":"f"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if w := postJSON(t, r, "/", body); w.Code != http.StatusBadRequest {
				t.Fatalf("期望 400，實際 %d %q", w.Code, w.Body.String())
			}
		})
	}
}

func TestExtract_StageFailureMessage(t *testing.T) {
	fx := &fakeExtractor{err: &services.StageError{Stage: services.StageDownload, Err: errors.New("404")}}
	r := SetupRouter(fx, nil, logging.Nop())

	w := postForm(t, r, "/", sampleForm())
	if w.Code != http.StatusBadRequest || w.Body.String() != "Could not download mp4" {
		t.Fatalf("期望 400 Could not download mp4，實際 %d %q", w.Code, w.Body.String())
	}
}

func TestRuns(t *testing.T) {
	store := &fakeRuns{}
	r := SetupRouter(&fakeExtractor{}, store, logging.Nop())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/runs?limit=5000", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，實際 %d", w.Code)
	}
	if store.gotLimit != 200 {
		t.Fatalf("limit 應限制為 200，實際 %d", store.gotLimit)
	}
	var body struct {
		Runs  []models.RunRecord `json:"runs"`
		Count int                `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("回應不是 JSON：%v", err)
	}
	if body.Count != 1 || body.Runs[0].ID != "run-1" {
		t.Fatalf("回應內容錯誤：%+v", body)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/runs?limit=abc", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("limit 非數字應 400，實際 %d", w.Code)
	}
}

func TestRuns_DisabledAndHealthz(t *testing.T) {
	r := SetupRouter(&fakeExtractor{}, nil, logging.Nop())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/runs", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("未啟用紀錄時 /runs 應 404，實際 %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("healthz 錯誤：%d %q", w.Code, w.Body.String())
	}
}

func TestRunsExport(t *testing.T) {
	r := SetupRouter(&fakeExtractor{}, &fakeRuns{}, logging.Nop())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/runs/export", nil))
	if w.Code != http.StatusOK || !strings.HasPrefix(w.Header().Get("Content-Type"), "text/csv") {
		t.Fatalf("CSV 匯出錯誤：%d %s", w.Code, w.Header().Get("Content-Type"))
	}
	body := strings.TrimPrefix(w.Body.String(), "\xEF\xBB\xBF")
	lines := strings.Split(strings.TrimSpace(body), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[1], "run-1,") {
		t.Fatalf("CSV 內容錯誤：%q", body)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/runs/export?format=xlsx", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("XLSX 匯出錯誤：%d", w.Code)
	}
	f, err := excelize.OpenReader(w.Body)
	if err != nil {
		t.Fatalf("XLSX 無法開啟：%v", err)
	}
	defer f.Close()
	id, err := f.GetCellValue("runs", "A2")
	if err != nil || id != "run-1" {
		t.Fatalf("XLSX 內容錯誤：%q %v", id, err)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/runs/export?format=pdf", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("不支援的格式應 400，實際 %d", w.Code)
	}
}

func TestRuns_EmptyStoreReturnsEmptyArray(t *testing.T) {
	r := SetupRouter(&fakeExtractor{}, services.NopRunStore{}, logging.Nop())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/runs", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，實際 %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"runs":[]`) {
		t.Fatalf("沒有紀錄時 runs 應為空陣列：%s", w.Body.String())
	}
}

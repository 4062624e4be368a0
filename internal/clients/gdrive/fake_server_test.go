package gdrive

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// fakeDrive 只實作測試用到的 files.create / files.list
type fakeDrive struct {
	mu      sync.Mutex
	created []createdFile
	// failNames 內的檔名會回傳 400 (不會被 googleapi 重試)
	failNames map[string]bool
	listPages [][]RemoteFile
}

type createdFile struct {
	Name     string   `json:"name"`
	Parents  []string `json:"parents"`
	MimeType string   `json:"mimeType"`
	Body     string   `json:"-"`
	Query    string   `json:"-"`
}

func newFakeDriveServer(t *testing.T, fd *fakeDrive) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			fd.handleCreate(t, w, r)
		case http.MethodGet:
			fd.handleList(w, r)
		default:
			http.Error(w, "unsupported", http.StatusMethodNotAllowed)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func (fd *fakeDrive) handleCreate(t *testing.T, w http.ResponseWriter, r *http.Request) {
	var cf createdFile
	mediaType, params, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.HasPrefix(mediaType, "multipart/") {
		mr := multipart.NewReader(r.Body, params["boundary"])
		meta, err := mr.NextPart()
		if err != nil {
			t.Errorf("讀取 metadata part 失敗: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := json.NewDecoder(meta).Decode(&cf); err != nil {
			t.Errorf("解析 metadata 失敗: %v", err)
		}
		if media, err := mr.NextPart(); err == nil {
			b, _ := io.ReadAll(media)
			cf.Body = string(b)
		}
	} else {
		_ = json.NewDecoder(r.Body).Decode(&cf)
	}
	cf.Query = r.URL.RawQuery

	fd.mu.Lock()
	fail := fd.failNames[cf.Name]
	if !fail {
		fd.created = append(fd.created, cf)
	}
	id := fmt.Sprintf("id-%d", len(fd.created))
	fd.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if fail {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"code":400,"message":"invalid parent"}}`)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"id": id})
}

func (fd *fakeDrive) handleList(w http.ResponseWriter, r *http.Request) {
	page := 0
	if tok := r.URL.Query().Get("pageToken"); tok != "" {
		fmt.Sscanf(tok, "p%d", &page)
	}
	resp := map[string]any{}
	var files []map[string]string
	if page < len(fd.listPages) {
		for _, f := range fd.listPages[page] {
			files = append(files, map[string]string{"id": f.ID, "name": f.Name})
		}
	}
	resp["files"] = files
	if page+1 < len(fd.listPages) {
		resp["nextPageToken"] = fmt.Sprintf("p%d", page+1)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

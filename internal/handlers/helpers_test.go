package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"fleamarket/internal/config"
	"fleamarket/internal/handlers"
	"fleamarket/internal/storage"
	"fleamarket/models"
)

const (
	ownerAddr    = "10.0.0.1:40000"
	strangerAddr = "10.0.0.2:40000"
)

type testEnv struct {
	router    http.Handler
	db        *gorm.DB
	uploadDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.IPAddress{}, &models.Item{}))

	dir := t.TempDir()
	store, err := storage.NewDiskStore(dir, false, zap.NewNop())
	require.NoError(t, err)

	cfg := &config.Config{
		Upload:    config.UploadConfig{Dir: dir, MaxFileSize: 10 << 20},
		Auth:      config.AuthConfig{ExpiryDays: 30},
		RateLimit: config.RateLimitConfig{PerMinute: 1000},
	}

	router := handlers.NewRouter(handlers.Deps{DB: db, Store: store, Log: zap.NewNop(), Cfg: cfg})
	return &testEnv{router: router, db: db, uploadDir: dir}
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Count   int             `json:"count"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func (e *testEnv) do(t *testing.T, method, path, remoteAddr string, body io.Reader, contentType string) (*httptest.ResponseRecorder, apiEnvelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.RemoteAddr = remoteAddr
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var env apiEnvelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "body: %s", w.Body.String())
	}
	return w, env
}

func (e *testEnv) get(t *testing.T, path string) (*httptest.ResponseRecorder, apiEnvelope) {
	t.Helper()
	return e.do(t, "GET", path, strangerAddr, nil, "")
}

type testFile struct {
	name        string
	contentType string
	data        string
}

func multipartBody(t *testing.T, fields url.Values, files []testFile) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for key, values := range fields {
		for _, v := range values {
			require.NoError(t, mw.WriteField(key, v))
		}
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images"; filename=%q`, f.name))
		h.Set("Content-Type", f.contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.data))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func sellFields(name string) url.Values {
	return url.Values{
		"item_type":      {"sell"},
		"category":       {"electronics"},
		"name":           {name},
		"description":    {"in good shape"},
		"price":          {"100"},
		"item_condition": {"9"},
	}
}

// createItem posts a new item from the given address and returns the decoded
// record.
func (e *testEnv) createItem(t *testing.T, remoteAddr string, fields url.Values, files ...testFile) models.Item {
	t.Helper()
	body, contentType := multipartBody(t, fields, files)
	w, env := e.do(t, "POST", "/api/items", remoteAddr, body, contentType)
	require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())

	var item models.Item
	require.NoError(t, json.Unmarshal(env.Data, &item))
	return item
}

func (e *testEnv) fileExists(name string) bool {
	_, err := os.Stat(filepath.Join(e.uploadDir, name))
	return err == nil
}

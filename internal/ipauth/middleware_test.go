package ipauth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"fleamarket/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.IPAddress{}, &models.Item{}))
	return db
}

// serve runs one request with the given remote address through the
// middleware and returns the user the wrapped handler observed.
func serve(t *testing.T, db *gorm.DB, remoteAddr string) (*models.User, *httptest.ResponseRecorder) {
	t.Helper()
	var seen *models.User
	handler := Middleware(db, 30, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := FromContext(r.Context())
		require.True(t, ok)
		seen = user
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/users/me", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return seen, w
}

func TestMiddlewareCreatesUserOnFirstSight(t *testing.T) {
	db := newTestDB(t)

	user, w := serve(t, db, "10.1.2.3:51000")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, user)
	assert.Equal(t, models.StatusActive, user.Status)
	assert.True(t, user.ExpiresAt.After(time.Now().Add(29*24*time.Hour)))

	var ipRow models.IPAddress
	require.NoError(t, db.Where("ip = ?", "10.1.2.3").First(&ipRow).Error)
	assert.Equal(t, user.ID, ipRow.UserID)
}

func TestMiddlewareReusesUserForKnownAddress(t *testing.T) {
	db := newTestDB(t)

	first, _ := serve(t, db, "10.1.2.3:51000")
	second, _ := serve(t, db, "10.1.2.3:62000")
	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestMiddlewareDistinctAddressesGetDistinctUsers(t *testing.T) {
	db := newTestDB(t)

	a, _ := serve(t, db, "10.0.0.1:1000")
	b, _ := serve(t, db, "10.0.0.2:1000")
	assert.NotEqual(t, a.ID, b.ID)
}

func TestMiddlewareRefreshesSlidingExpiration(t *testing.T) {
	db := newTestDB(t)

	user, _ := serve(t, db, "10.1.2.3:51000")

	// Force the window into the past, then hit the middleware again.
	stale := time.Now().Add(-48 * time.Hour)
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", user.ID).
		Updates(map[string]any{"expires_at": stale, "last_login": stale}).Error)

	refreshed, _ := serve(t, db, "10.1.2.3:51000")
	require.NotNil(t, refreshed)
	assert.True(t, refreshed.ExpiresAt.After(time.Now().Add(29*24*time.Hour)))

	var stored models.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	assert.True(t, stored.ExpiresAt.After(time.Now()))
	assert.True(t, stored.LastLogin.After(stale))
}

func TestClientIPNormalization(t *testing.T) {
	tests := []struct {
		remoteAddr string
		want       string
	}{
		{"192.168.1.10:40000", "192.168.1.10"},
		{"[::ffff:192.168.1.10]:40000", "192.168.1.10"},
		{"[::1]:40000", "127.0.0.1"},
		{"10.0.0.1", "10.0.0.1"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = tt.remoteAddr
		assert.Equal(t, tt.want, ClientIP(req), "remoteAddr=%s", tt.remoteAddr)
	}
}

package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"inkpress/internal/auth"
	"inkpress/internal/config"
	"inkpress/internal/db"
	"inkpress/internal/service"
	"inkpress/internal/store"
	"inkpress/internal/user"
)

const testSecret = "api-test-secret"

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Auth.JWTSecret = testSecret
	cfg.Auth.TokenTTLHours = 1
	cfg.Server.Environment = config.EnvDevelopment
	return cfg
}

func setupTestDeps(t *testing.T, cfg *config.Config) (*Deps, *gorm.DB) {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	conn, err := db.Open(db.SQLitePrefix + "file:api_" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	issuer, err := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.TokenTTL())
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	users := store.NewGormUsers(conn)
	return &Deps{
		Auth:    service.NewAuthService(users, issuer),
		Users:   service.NewUserService(users),
		Issuer:  issuer,
		Cookies: auth.NewCookiePolicy(cfg),
	}, conn
}

func newTestRouter(t *testing.T) (*gin.Engine, *Deps, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	deps, conn := setupTestDeps(t, cfg)
	return SetupRouter(cfg, deps), deps, conn
}

func seedUser(t *testing.T, conn *gorm.DB, username string, isAdmin bool) user.User {
	t.Helper()
	hash, err := user.HashPassword("longpassw0rd")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	u := user.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		IsAdmin:      isAdmin,
		CreatedAt:    time.Now(),
	}
	if err := conn.Create(&u).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return u
}

func tokenFor(t *testing.T, deps *Deps, u user.User) string {
	t.Helper()
	token, err := deps.Issuer.Issue(u.ID, u.IsAdmin)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return token
}

// doRequest sends body as JSON, attaching token as the session cookie when set.
func doRequest(r *gin.Engine, method, target string, body any, token string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body %q: %v", w.Body.String(), err)
	}
	return body
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	return nil
}

func contains(s, substr string) bool {
	return strings.Contains(s, substr)
}

package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"inkpress/internal/auth"
	"inkpress/internal/user"
)

func TestGetUserHandler_Public(t *testing.T) {
	r, _, conn := newTestRouter(t)
	u := seedUser(t, conn, "public1", false)

	w := doRequest(r, "GET", "/user/"+u.ID, nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["username"] != "public1" {
		t.Errorf("unexpected user: %v", body)
	}
	if _, ok := body["passwordHash"]; ok || contains(w.Body.String(), "password") {
		t.Errorf("user response leaked the secret: %s", w.Body.String())
	}
}

func TestUpdateUserHandler_Permissions(t *testing.T) {
	r, deps, conn := newTestRouter(t)
	alice := seedUser(t, conn, "alice1", false)
	bob := seedUser(t, conn, "bobby1", false)
	admin := seedUser(t, conn, "admin1", true)

	w := doRequest(r, "PUT", "/user/"+alice.ID, map[string]string{"username": "alice2"}, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without a session, got %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(r, "PUT", "/user/"+alice.ID, map[string]string{"username": "bobwashere"}, tokenFor(t, deps, bob))
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for another user, got %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(r, "PUT", "/user/"+alice.ID, map[string]string{"username": "alice2"}, tokenFor(t, deps, alice))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for self update, got %d: %s", w.Code, w.Body.String())
	}
	if body := decodeBody(t, w); body["username"] != "alice2" {
		t.Errorf("expected username alice2, got %v", body["username"])
	}

	w = doRequest(r, "PUT", "/user/"+alice.ID, map[string]any{"isAdmin": true}, tokenFor(t, deps, alice))
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for self promotion, got %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(r, "PUT", "/user/"+alice.ID, map[string]string{"password": "freshpassw0rd"}, tokenFor(t, deps, admin))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin update, got %d: %s", w.Code, w.Body.String())
	}
	var stored user.User
	if err := conn.First(&stored, "id = ?", alice.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !user.VerifyPassword("freshpassw0rd", stored.PasswordHash) {
		t.Errorf("admin password change did not persist")
	}
}

func TestUpdateUserHandler_ValidationAndConflict(t *testing.T) {
	r, deps, conn := newTestRouter(t)
	alice := seedUser(t, conn, "alice1", false)
	seedUser(t, conn, "bobby1", false)
	token := tokenFor(t, deps, alice)

	cases := []struct {
		name string
		body map[string]string
		msg  string
	}{
		{"short password", map[string]string{"password": "short"}, ""},
		{"short username", map[string]string{"username": "abc"}, "Username must be between 5 and 20 characters"},
		{"space in username", map[string]string{"username": "ali ce1"}, "Username cannot contain spaces"},
		{"symbol in username", map[string]string{"username": "alice_1"}, "Username can only contain letters and numbers"},
		{"taken username", map[string]string{"username": "bobby1"}, ""},
		{"nothing to change", map[string]string{}, "No changes provided"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doRequest(r, "PUT", "/user/"+alice.ID, tc.body, token)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
			if tc.msg != "" {
				if body := decodeBody(t, w); body["message"] != tc.msg {
					t.Errorf("expected message %q, got %v", tc.msg, body["message"])
				}
			}
		})
	}
}

func TestUpdateUserHandler_AdminMissingTarget(t *testing.T) {
	r, deps, conn := newTestRouter(t)
	admin := seedUser(t, conn, "admin1", true)

	w := doRequest(r, "PUT", "/user/missing", map[string]string{"username": "ghost1"}, tokenFor(t, deps, admin))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestDeleteUserHandler(t *testing.T) {
	r, deps, conn := newTestRouter(t)
	alice := seedUser(t, conn, "alice1", false)
	bob := seedUser(t, conn, "bobby1", false)
	admin := seedUser(t, conn, "admin1", true)

	w := doRequest(r, "DELETE", "/user/"+alice.ID, nil, tokenFor(t, deps, bob))
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 deleting another user, got %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(r, "DELETE", "/user/"+alice.ID, nil, tokenFor(t, deps, alice))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for self delete, got %d: %s", w.Code, w.Body.String())
	}
	if c := sessionCookie(w); c == nil || c.MaxAge >= 0 {
		t.Errorf("self delete should clear the session cookie, got %+v", c)
	}

	w = doRequest(r, "DELETE", "/user/"+bob.ID, nil, tokenFor(t, deps, admin))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin delete, got %d: %s", w.Code, w.Body.String())
	}
	if sessionCookie(w) != nil {
		t.Errorf("admin deleting another account must keep the admin's cookie")
	}

	w = doRequest(r, "DELETE", "/user/"+bob.ID, nil, tokenFor(t, deps, admin))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for an already deleted user, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSignoutHandler_ClearsCookie(t *testing.T) {
	r, deps, conn := newTestRouter(t)
	u := seedUser(t, conn, "alice1", false)

	for _, token := range []string{"", "garbage", tokenFor(t, deps, u)} {
		w := doRequest(r, "POST", "/user/signout", nil, token)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		c := sessionCookie(w)
		if c == nil || c.Value != "" || c.MaxAge >= 0 {
			t.Errorf("expected a cleared cookie, got %+v", c)
		}
	}
}

func TestListUsersHandler_AdminOnly(t *testing.T) {
	r, deps, conn := newTestRouter(t)
	regular := seedUser(t, conn, "alice1", false)
	admin := seedUser(t, conn, "admin1", true)
	seedUser(t, conn, "bobby1", false)

	w := doRequest(r, "GET", "/user/getusers", nil, tokenFor(t, deps, regular))
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for non-admin, got %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(r, "GET", "/user/getusers?limit=2&sort=asc", nil, tokenFor(t, deps, admin))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	users, _ := body["users"].([]any)
	if len(users) != 2 {
		t.Errorf("expected 2 users, got %d", len(users))
	}
	if body["totalUsers"] != float64(3) || body["lastMonthUsers"] != float64(3) {
		t.Errorf("unexpected counts: %v", body)
	}
	if contains(w.Body.String(), "password") {
		t.Errorf("list leaked secrets: %s", w.Body.String())
	}

	w = doRequest(r, "GET", "/user/getusers?sort=sideways", nil, tokenFor(t, deps, admin))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a bad sort, got %d: %s", w.Code, w.Body.String())
	}
}

func TestOnlineUserCountHandler_WithoutRedis(t *testing.T) {
	r, deps, conn := newTestRouter(t)
	admin := seedUser(t, conn, "admin1", true)

	w := doRequest(r, "GET", "/user/online", nil, tokenFor(t, deps, admin))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if body := decodeBody(t, w); body["online"] != float64(0) {
		t.Errorf("expected 0 online without presence tracking, got %v", body["online"])
	}
}

func TestOnlineUserCountHandler_RedisDown(t *testing.T) {
	r, deps, conn := newTestRouter(t)
	// Nothing listens on port 1, so every Redis call fails fast.
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond, MaxRetries: -1})
	defer rdb.Close()
	deps.Presence = auth.NewPresence(rdb, time.Minute)
	admin := seedUser(t, conn, "admin1", true)

	w := doRequest(r, "GET", "/user/online", nil, tokenFor(t, deps, admin))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 while Redis is down, got %d: %s", w.Code, w.Body.String())
	}
	if body := decodeBody(t, w); body["online"] != float64(0) {
		t.Errorf("expected 0 online while Redis is down, got %v", body["online"])
	}
}

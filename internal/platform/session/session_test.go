package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"lendit-admin/internal/platform/apiclient"
)

type fakeBackend struct {
	verifyStatus atomic.Int32
	listStatus   atomic.Int32
	refreshes    atomic.Int32
	refreshToken string
}

func (f *fakeBackend) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /usuario/login", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in["nombre"] != "admin" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"detail":"Usuario no encontrado"}`)
			return
		}
		if in["password"] != "secreto" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"Contraseña incorrecta"}`)
			return
		}
		_, _ = io.WriteString(w, `{"detail":"Inicio de sesión exitoso","success":true,"token":"tok-1","user":{"nombre":"admin","rol":"administrador","cc":"123"}}`)
	})
	mux.HandleFunc("GET /usuario/verify-token", func(w http.ResponseWriter, r *http.Request) {
		if st := f.verifyStatus.Load(); st != 0 {
			w.WriteHeader(int(st))
			return
		}
		_, _ = io.WriteString(w, `{"valid":true}`)
	})
	mux.HandleFunc("POST /usuario/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		f.refreshes.Add(1)
		if f.refreshToken == "" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = io.WriteString(w, `{"token":"`+f.refreshToken+`"}`)
	})
	mux.HandleFunc("GET /solicitantes/obtener", func(w http.ResponseWriter, r *http.Request) {
		if st := f.listStatus.Load(); st != 0 {
			w.WriteHeader(int(st))
			return
		}
		if r.Header.Get("Authorization") == "" {
			t.Errorf("missing Authorization header")
		}
		_, _ = io.WriteString(w, `[]`)
	})
	return mux
}

type fakeTimer struct {
	mu      sync.Mutex
	fn      func()
	stopped bool
}

func (ft *fakeTimer) Stop() bool {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	was := !ft.stopped
	ft.stopped = true
	return was
}

func (ft *fakeTimer) fire() {
	ft.mu.Lock()
	stopped := ft.stopped
	ft.mu.Unlock()
	if !stopped {
		ft.fn()
	}
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func setup(t *testing.T, fb *fakeBackend) (*Manager, *Session, *clock, *[]*fakeTimer, Storage) {
	t.Helper()
	ts := httptest.NewServer(fb.handler(t))
	t.Cleanup(ts.Close)
	api, err := apiclient.New(ts.URL, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	store := NewMemoryStorage()
	m := NewManager(api, store, Options{InactivityTimeout: 30 * time.Minute, RefreshWindow: 5 * time.Minute})
	clk := &clock{t: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)}
	m.now = clk.now

	var timers []*fakeTimer
	s := m.Create()
	s.afterFunc = func(_ time.Duration, fn func()) timer {
		ft := &fakeTimer{fn: fn}
		timers = append(timers, ft)
		return ft
	}
	return m, s, clk, &timers, store
}

func TestLoginLogout(t *testing.T) {
	fb := &fakeBackend{}
	m, s, _, _, store := setup(t, fb)
	ctx := context.Background()

	res, err := s.Login(ctx, "admin", "secreto")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !res.Success || res.Token != "tok-1" || res.User == nil {
		t.Fatalf("res = %+v", res)
	}
	if !s.IsAuthenticated(ctx) {
		t.Fatal("expected authenticated")
	}
	u, err := s.CurrentUser(ctx)
	if err != nil || u == nil || u.Rol != "administrador" {
		t.Fatalf("CurrentUser = %+v, %v", u, err)
	}

	// 以降の呼び出しは自動でヘッダが付く
	api := s.api.(*apiclient.Client)
	if err := api.DoJSON(apiclient.WithCredentials(ctx, s), http.MethodGet, "/solicitantes/obtener", nil, nil); err != nil {
		t.Fatalf("authenticated call: %v", err)
	}

	var dropped []string
	m.OnTeardown(func(id string) { dropped = append(dropped, id) })

	s.Logout(ctx)
	if s.IsAuthenticated(ctx) {
		t.Fatal("still authenticated after logout")
	}
	if len(dropped) != 1 || dropped[0] != s.ID() {
		t.Fatalf("teardown listeners = %v", dropped)
	}
	for _, k := range []string{KeyToken, KeyUser} {
		if v, _ := store.Get(ctx, s.ID(), k); v != "" {
			t.Fatalf("%s not cleared", k)
		}
	}
	if m.Len() != 0 {
		t.Fatalf("manager still holds %d sessions", m.Len())
	}
}

func TestLogin_ServerMessage(t *testing.T) {
	_, s, _, _, _ := setup(t, &fakeBackend{})
	ctx := context.Background()

	_, err := s.Login(ctx, "admin", "mal")
	if err == nil || err.Error() != "Contraseña incorrecta" {
		t.Fatalf("err = %v", err)
	}
	if errors.Is(err, apiclient.ErrSessionExpired) {
		t.Fatal("login failure must not be a session error")
	}
	if s.IsAuthenticated(ctx) {
		t.Fatal("authenticated after failed login")
	}

	if _, err := s.Login(ctx, "  ", "x"); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("want ErrMissingCredentials, got %v", err)
	}
}

func TestAuthFailureClearsSession(t *testing.T) {
	fb := &fakeBackend{}
	_, s, _, _, _ := setup(t, fb)
	ctx := context.Background()
	if _, err := s.Login(ctx, "admin", "secreto"); err != nil {
		t.Fatal(err)
	}

	fb.listStatus.Store(http.StatusForbidden)
	api := s.api.(*apiclient.Client)
	err := api.DoJSON(apiclient.WithCredentials(ctx, s), http.MethodGet, "/solicitantes/obtener", nil, nil)
	if !errors.Is(err, apiclient.ErrSessionExpired) {
		t.Fatalf("want ErrSessionExpired, got %v", err)
	}
	if s.IsAuthenticated(ctx) {
		t.Fatal("session not cleared")
	}
}

func TestVerifyToken(t *testing.T) {
	fb := &fakeBackend{}
	_, s, _, _, _ := setup(t, fb)
	ctx := context.Background()

	if ok, err := s.VerifyToken(ctx); ok || err != nil {
		t.Fatalf("no token: ok=%v err=%v", ok, err)
	}
	if _, err := s.Login(ctx, "admin", "secreto"); err != nil {
		t.Fatal(err)
	}
	if ok, err := s.VerifyToken(ctx); !ok || err != nil {
		t.Fatalf("valid: ok=%v err=%v", ok, err)
	}

	fb.verifyStatus.Store(http.StatusInternalServerError)
	if ok, err := s.VerifyToken(ctx); ok || err != nil {
		t.Fatalf("500: ok=%v err=%v", ok, err)
	}
	if s.IsAuthenticated(ctx) {
		t.Fatal("non-OK verify must log out")
	}
}

func TestVerifyToken_ExpiredJWTSkipsNetwork(t *testing.T) {
	fb := &fakeBackend{}
	_, s, clk, _, store := setup(t, fb)
	ctx := context.Background()

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "admin",
		"exp": clk.t.Add(-time.Minute).Unix(),
	}).SignedString([]byte("k"))
	if err != nil {
		t.Fatal(err)
	}
	_ = store.Set(ctx, s.ID(), KeyToken, tok)
	// 到達すれば 200 になるが、期限切れなので呼ばれない
	if ok, _ := s.VerifyToken(ctx); ok {
		t.Fatal("expired token accepted")
	}
	if s.IsAuthenticated(ctx) {
		t.Fatal("expired token not cleared")
	}
}

func TestTouch_RefreshThrottled(t *testing.T) {
	fb := &fakeBackend{refreshToken: "tok-2"}
	_, s, clk, _, _ := setup(t, fb)
	ctx := context.Background()
	if _, err := s.Login(ctx, "admin", "secreto"); err != nil {
		t.Fatal(err)
	}

	clk.advance(time.Minute)
	s.Touch(ctx)
	if n := fb.refreshes.Load(); n != 0 {
		t.Fatalf("refreshed inside window: %d", n)
	}

	clk.advance(4*time.Minute + time.Second)
	s.Touch(ctx)
	if n := fb.refreshes.Load(); n != 1 {
		t.Fatalf("refreshes = %d, want 1", n)
	}
	if got := s.Token(ctx); got != "tok-2" {
		t.Fatalf("token = %q", got)
	}

	clk.advance(time.Minute)
	s.Touch(ctx)
	if n := fb.refreshes.Load(); n != 1 {
		t.Fatalf("refreshes = %d, want still 1", n)
	}

	// 長い無操作の直後は更新しない
	clk.advance(20 * time.Minute)
	s.Touch(ctx)
	if n := fb.refreshes.Load(); n != 1 {
		t.Fatalf("refreshed after idle gap: %d", n)
	}
}

func TestTouch_RefreshFailureIsSilent(t *testing.T) {
	fb := &fakeBackend{}
	_, s, clk, _, _ := setup(t, fb)
	ctx := context.Background()
	if _, err := s.Login(ctx, "admin", "secreto"); err != nil {
		t.Fatal(err)
	}
	clk.advance(4 * time.Minute)
	s.Touch(ctx)
	clk.advance(2 * time.Minute)
	s.Touch(ctx)
	if fb.refreshes.Load() != 1 {
		t.Fatalf("refreshes = %d", fb.refreshes.Load())
	}
	if s.Token(ctx) != "tok-1" || !s.IsAuthenticated(ctx) {
		t.Fatal("failed refresh must keep the session")
	}
}

func TestWatchdog_InactivityLogsOut(t *testing.T) {
	_, s, _, timers, _ := setup(t, &fakeBackend{})
	ctx := context.Background()
	if _, err := s.Login(ctx, "admin", "secreto"); err != nil {
		t.Fatal(err)
	}
	s.Touch(ctx)
	if len(*timers) != 2 {
		t.Fatalf("timers = %d, want 2", len(*timers))
	}

	// 古いタイマーは無効
	(*timers)[0].fire()
	if !s.IsAuthenticated(ctx) {
		t.Fatal("stale timer logged out")
	}
	(*timers)[1].fire()
	if s.IsAuthenticated(ctx) {
		t.Fatal("watchdog did not log out")
	}
}

func TestManager_GetRehydrates(t *testing.T) {
	fb := &fakeBackend{}
	m, s, _, _, store := setup(t, fb)
	ctx := context.Background()

	if _, ok := m.Get(ctx, "not-a-ulid"); ok {
		t.Fatal("invalid id accepted")
	}
	if got, ok := m.Get(ctx, s.ID()); !ok || got != s {
		t.Fatal("existing session not found")
	}

	id := m.id.NewULID(m.now())
	if _, ok := m.Get(ctx, id); ok {
		t.Fatal("unknown id without token accepted")
	}
	_ = store.Set(ctx, id, KeyToken, "persisted")
	got, ok := m.Get(ctx, id)
	if !ok || got.Token(ctx) != "persisted" {
		t.Fatal("session not rehydrated from storage")
	}
	got.stop()
}

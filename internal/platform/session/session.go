package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"lendit-admin/internal/platform/apiclient"
)

var ErrMissingCredentials = errors.New("nombre y contraseña son obligatorios")

// Backend は apiclient.Client のうちセッションが使う部分
type Backend interface {
	DoJSON(ctx context.Context, method, path string, in, out any) error
}

type User struct {
	Nombre string `json:"nombre"`
	Rol    string `json:"rol"`
	CC     string `json:"cc,omitempty"`
}

type LoginResult struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	User    *User  `json:"user,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

type Options struct {
	InactivityTimeout time.Duration
	RefreshWindow     time.Duration
}

func (o Options) withDefaults() Options {
	if o.InactivityTimeout <= 0 {
		o.InactivityTimeout = 30 * time.Minute
	}
	if o.RefreshWindow <= 0 {
		o.RefreshWindow = 5 * time.Minute
	}
	return o
}

type timer interface{ Stop() bool }

func realAfterFunc(d time.Duration, f func()) timer { return time.AfterFunc(d, f) }

// Session は 1 ユーザー分のログイン状態。apiclient.Credentials を満たす
type Session struct {
	id    string
	api   Backend
	store Storage
	opts  Options

	now        func() time.Time
	afterFunc  func(time.Duration, func()) timer
	onTeardown func(id string)

	mu           sync.Mutex
	watchdog     timer
	generation   uint64
	lastActivity time.Time
	lastRefresh  time.Time
}

func New(id string, api Backend, store Storage, opts Options) *Session {
	return &Session{
		id:        id,
		api:       api,
		store:     store,
		opts:      opts.withDefaults(),
		now:       time.Now,
		afterFunc: realAfterFunc,
	}
}

func (s *Session) ID() string { return s.id }

// Init: 保存済みトークンがあれば監視を開始する
func (s *Session) Init(ctx context.Context) {
	if !s.IsAuthenticated(ctx) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = s.now()
	s.lastRefresh = s.lastActivity
	s.armLocked()
}

func (s *Session) Login(ctx context.Context, nombre, password string) (LoginResult, error) {
	if strings.TrimSpace(nombre) == "" || password == "" {
		return LoginResult{}, ErrMissingCredentials
	}

	// ログインは匿名で送る
	anon := apiclient.WithCredentials(ctx, nil)
	var res LoginResult
	err := s.api.DoJSON(anon, http.MethodPost, "/usuario/login",
		map[string]string{"nombre": nombre, "password": password}, &res)
	if err != nil {
		var he *apiclient.HTTPError
		if errors.As(err, &he) && he.Message == apiclient.GenericMessage {
			he.Message = "Error en el inicio de sesión"
		}
		return LoginResult{}, err
	}
	if !res.Success {
		return res, nil
	}

	if err := s.store.Set(ctx, s.id, KeyToken, res.Token); err != nil {
		return LoginResult{}, err
	}
	if res.User != nil {
		b, err := json.Marshal(res.User)
		if err != nil {
			return LoginResult{}, fmt.Errorf("session: encode user: %w", err)
		}
		if err := s.store.Set(ctx, s.id, KeyUser, string(b)); err != nil {
			return LoginResult{}, err
		}
	}

	s.mu.Lock()
	s.lastActivity = s.now()
	s.lastRefresh = s.lastActivity
	s.armLocked()
	s.mu.Unlock()

	log.Printf("[INFO] login: user=%s session=%s", nombre, s.id)
	return res, nil
}

// IsAuthenticated はトークンの有無だけを見る
func (s *Session) IsAuthenticated(ctx context.Context) bool {
	return s.Token(ctx) != ""
}

func (s *Session) Token(ctx context.Context) string {
	tok, err := s.store.Get(ctx, s.id, KeyToken)
	if err != nil {
		log.Printf("[ERROR] session %s: read token: %v", s.id, err)
		return ""
	}
	return tok
}

// Expire: apiclient が 401/403 を受けたとき
func (s *Session) Expire(ctx context.Context) {
	log.Printf("[WARN] session %s: rejected by backend, logging out", s.id)
	s.Logout(ctx)
}

func (s *Session) CurrentUser(ctx context.Context) (*User, error) {
	raw, err := s.store.Get(ctx, s.id, KeyUser)
	if err != nil || raw == "" {
		return nil, err
	}
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, fmt.Errorf("session: decode user: %w", err)
	}
	return &u, nil
}

// VerifyToken: バックエンドで検証し、失敗（非 2xx）ならログアウトする。
// 通信エラーはログアウトせずにエラーを返す
func (s *Session) VerifyToken(ctx context.Context) (bool, error) {
	tok := s.Token(ctx)
	if tok == "" {
		return false, nil
	}
	if exp, ok := tokenExpiry(tok); ok && !s.now().Before(exp) {
		log.Printf("[INFO] session %s: token expired at %s", s.id, exp.Format(time.RFC3339))
		s.Logout(ctx)
		return false, nil
	}

	err := s.api.DoJSON(apiclient.WithCredentials(ctx, s), http.MethodGet, "/usuario/verify-token", nil, nil)
	if err == nil {
		return true, nil
	}
	var he *apiclient.HTTPError
	if errors.As(err, &he) {
		s.Logout(ctx)
		return false, nil
	}
	return false, err
}

// RefreshToken: 新しいトークンを取得して保存し、監視をリセットする
func (s *Session) RefreshToken(ctx context.Context) (bool, error) {
	if !s.IsAuthenticated(ctx) {
		return false, nil
	}
	var res struct {
		Token string `json:"token"`
	}
	if err := s.api.DoJSON(apiclient.WithCredentials(ctx, s), http.MethodPost, "/usuario/refresh-token", nil, &res); err != nil {
		return false, err
	}
	if res.Token == "" {
		return false, nil
	}
	if err := s.store.Set(ctx, s.id, KeyToken, res.Token); err != nil {
		return false, err
	}

	s.mu.Lock()
	s.lastRefresh = s.now()
	s.armLocked()
	s.mu.Unlock()
	return true, nil
}

// Touch: ユーザー操作があったとき。監視をリセットし、直前の操作が
// RefreshWindow 内で、かつ同じ窓の中でまだ更新していなければトークンを更新する
func (s *Session) Touch(ctx context.Context) {
	if !s.IsAuthenticated(ctx) {
		return
	}

	s.mu.Lock()
	now := s.now()
	prev := s.lastActivity
	s.lastActivity = now
	s.armLocked()
	due := !prev.IsZero() &&
		now.Sub(prev) < s.opts.RefreshWindow &&
		now.Sub(s.lastRefresh) >= s.opts.RefreshWindow
	if due {
		// 同時リクエストで二重に更新しないよう先に印を付ける
		s.lastRefresh = now
	}
	s.mu.Unlock()

	if !due {
		return
	}
	ok, err := s.RefreshToken(ctx)
	switch {
	case err != nil:
		log.Printf("[WARN] session %s: token refresh failed: %v", s.id, err)
	case !ok:
		log.Printf("[WARN] session %s: token refresh returned no token", s.id)
	}
}

func (s *Session) Logout(ctx context.Context) {
	s.Teardown(ctx)
}

// Teardown: タイマー停止 + 保存値の削除
func (s *Session) Teardown(ctx context.Context) {
	s.mu.Lock()
	s.stopLocked()
	s.lastActivity = time.Time{}
	s.lastRefresh = time.Time{}
	cb := s.onTeardown
	s.mu.Unlock()

	if err := s.store.Delete(ctx, s.id, KeyToken, KeyUser); err != nil {
		log.Printf("[ERROR] session %s: clear storage: %v", s.id, err)
	}
	if cb != nil {
		cb(s.id)
	}
}

// stop: 保存値は残してタイマーだけ止める（シャットダウン用）
func (s *Session) stop() {
	s.mu.Lock()
	s.stopLocked()
	s.mu.Unlock()
}

func (s *Session) armLocked() {
	s.stopLocked()
	s.generation++
	gen := s.generation
	s.watchdog = s.afterFunc(s.opts.InactivityTimeout, func() {
		s.mu.Lock()
		stale := gen != s.generation
		s.mu.Unlock()
		if stale {
			return
		}
		log.Printf("[INFO] session %s: inactive for %s, logging out", s.id, s.opts.InactivityTimeout)
		s.Teardown(context.Background())
	})
}

func (s *Session) stopLocked() {
	if s.watchdog != nil {
		s.watchdog.Stop()
		s.watchdog = nil
	}
	s.generation++
}

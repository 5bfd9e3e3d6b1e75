package session

import (
	"context"
	"crypto/rand"
	"log"
	"sync"
	"time"

	ulid "github.com/oklog/ulid/v2"
)

type IDGen interface{ NewULID(t time.Time) string }
type ulidGen struct{}

func (ulidGen) NewULID(t time.Time) string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// 再起動後に復元できるストア
type lister interface {
	SessionIDs(ctx context.Context) ([]string, error)
}

// Manager はセッション ID（Cookie）→ Session の対応を持つ
type Manager struct {
	api   Backend
	store Storage
	opts  Options
	id    IDGen
	now   func() time.Time

	mu        sync.Mutex
	sessions  map[string]*Session
	listeners []func(id string)
}

func NewManager(api Backend, store Storage, opts Options) *Manager {
	return &Manager{
		api:      api,
		store:    store,
		opts:     opts.withDefaults(),
		id:       ulidGen{},
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Create() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.newSessionLocked(m.id.NewULID(m.now()))
	return s
}

// Get: メモリに無ければ Storage にトークンが残っているか確認して復元する
func (m *Manager) Get(ctx context.Context, id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	if _, err := ulid.ParseStrict(id); err != nil {
		return nil, false
	}

	m.mu.Lock()
	if s, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		return s, true
	}
	m.mu.Unlock()

	tok, err := m.store.Get(ctx, id, KeyToken)
	if err != nil || tok == "" {
		return nil, false
	}

	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		s = m.newSessionLocked(id)
	}
	m.mu.Unlock()
	if !ok {
		s.Init(ctx)
	}
	return s, true
}

// Restore: 永続ストアに残るセッションの監視を再開する
func (m *Manager) Restore(ctx context.Context) (int, error) {
	l, ok := m.store.(lister)
	if !ok {
		return 0, nil
	}
	ids, err := l.SessionIDs(ctx)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		m.Get(ctx, id)
	}
	return len(ids), nil
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close: タイマーだけ止める。保存値は残す
func (m *Manager) Close() {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.Unlock()
	for _, s := range all {
		s.stop()
	}
	log.Printf("[INFO] session manager closed (%d sessions)", len(all))
}

func (m *Manager) newSessionLocked(id string) *Session {
	s := New(id, m.api, m.store, m.opts)
	s.now = m.now
	s.onTeardown = m.remove
	m.sessions[id] = s
	return s
}

// OnTeardown: セッション終了時（ログアウト・失効）に呼ばれる
func (m *Manager) OnTeardown(fn func(id string)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

func (m *Manager) remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	ls := append([]func(string){}, m.listeners...)
	m.mu.Unlock()
	for _, fn := range ls {
		fn(id)
	}
}

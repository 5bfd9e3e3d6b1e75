package listing

import (
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

// Registry: セッションごとに View を持つ
type Registry[T any] struct {
	opts Options[T]

	mu    sync.Mutex
	views map[string]*View[T]
}

func NewRegistry[T any](opts Options[T]) *Registry[T] {
	return &Registry[T]{opts: opts, views: make(map[string]*View[T])}
}

func (r *Registry[T]) For(sessionID string) *View[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.views[sessionID]
	if !ok {
		v = NewView(r.opts)
		r.views[sessionID] = v
	}
	return v
}

// Drop: ログアウト時
func (r *Registry[T]) Drop(sessionID string) {
	r.mu.Lock()
	delete(r.views, sessionID)
	r.mu.Unlock()
}

// QueryFrom: ?page=&page_size= と指定フィルタキーを読む。未指定は「変更なし」
func QueryFrom(c *gin.Context, filterKeys ...string) Query {
	q := Query{Filters: Filters{}}
	for _, k := range filterKeys {
		if v, ok := c.GetQuery(k); ok {
			// 入力欄の前後の空白はここで落とす
			q.Filters[k] = strings.TrimSpace(v)
		}
	}
	if v, ok := c.GetQuery("page"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			q.Page = &n
		}
	}
	if v, ok := c.GetQuery("page_size"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			q.PageSize = &n
		}
	}
	return q
}

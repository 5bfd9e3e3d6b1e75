package listing

import (
	"errors"
	"slices"
	"sync"
)

var PageSizes = []int{5, 10, 25, 50, 100}

const DefaultPageSize = 10

var ErrNotListed = errors.New("elemento no encontrado en la lista")

type Filters map[string]string

// Matcher: 現在のフィルタに item が合うか
type Matcher[T any] func(item T, f Filters) bool

type Query struct {
	Filters  Filters // 指定されたキーだけ更新する
	Page     *int
	PageSize *int
}

type Page[T any] struct {
	Items      []T      `json:"items"`
	Total      int      `json:"total"`
	Page       int      `json:"page"`
	PageSize   int      `json:"page_size"`
	TotalPages int      `json:"total_pages"`
	NextOffset *int     `json:"next_offset"`
	Filters    Filters  `json:"filters"`
	Selected   []string `json:"selected"`
}

type Options[T any] struct {
	Key   func(T) string
	Match Matcher[T]
	Less  func(a, b T) bool // nil なら取得順
	Multi bool              // 複数選択
}

// View は 1 画面分の一覧状態（フィルタ・ページ・選択）
type View[T any] struct {
	opts Options[T]

	mu       sync.Mutex
	items    []T
	filters  Filters
	page     int
	size     int
	selected []string
}

func NewView[T any](opts Options[T]) *View[T] {
	return &View[T]{
		opts:    opts,
		filters: Filters{},
		page:    1,
		size:    DefaultPageSize,
	}
}

// SetItems: 再取得した一覧に差し替える。選択は存在するものだけ残す
func (v *View[T]) SetItems(items []T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.items = append(v.items[:0:0], items...)
	if v.opts.Less != nil {
		slices.SortStableFunc(v.items, func(a, b T) int {
			switch {
			case v.opts.Less(a, b):
				return -1
			case v.opts.Less(b, a):
				return 1
			}
			return 0
		})
	}
	v.selected = slices.DeleteFunc(v.selected, func(k string) bool {
		return !slices.ContainsFunc(v.items, func(it T) bool { return v.opts.Key(it) == k })
	})
	v.clampLocked(len(v.filteredLocked()))
}

// SetFilter: 値が変わったら選択を解除し、ページが範囲外なら 1 に戻す
func (v *View[T]) SetFilter(name, value string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.setFilterLocked(name, value)
}

func (v *View[T]) SetPageSize(size int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.setPageSizeLocked(size)
}

func (v *View[T]) SetPage(page int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.setPageLocked(page)
}

// Apply: フィルタ → ページサイズ → ページの順で反映して現在ページを返す
func (v *View[T]) Apply(q Query) Page[T] {
	v.mu.Lock()
	defer v.mu.Unlock()
	for k, val := range q.Filters {
		v.setFilterLocked(k, val)
	}
	if q.PageSize != nil {
		v.setPageSizeLocked(*q.PageSize)
	}
	if q.Page != nil {
		v.setPageLocked(*q.Page)
	}
	return v.snapshotLocked()
}

func (v *View[T]) Snapshot() Page[T] {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

// Select: 単一選択なら置き換え、複数選択なら追加
func (v *View[T]) Select(key string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !slices.ContainsFunc(v.filteredLocked(), func(it T) bool { return v.opts.Key(it) == key }) {
		return ErrNotListed
	}
	if !v.opts.Multi {
		v.selected = []string{key}
		return nil
	}
	if !slices.Contains(v.selected, key) {
		v.selected = append(v.selected, key)
	}
	return nil
}

func (v *View[T]) Deselect(key string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.selected = slices.DeleteFunc(v.selected, func(k string) bool { return k == key })
}

func (v *View[T]) ClearSelection() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.selected = nil
}

func (v *View[T]) Selected() []T {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]T, 0, len(v.selected))
	for _, k := range v.selected {
		if i := slices.IndexFunc(v.items, func(it T) bool { return v.opts.Key(it) == k }); i >= 0 {
			out = append(out, v.items[i])
		}
	}
	return out
}

func (v *View[T]) setFilterLocked(name, value string) {
	if v.filters[name] == value {
		return
	}
	if value == "" {
		delete(v.filters, name)
	} else {
		v.filters[name] = value
	}
	v.selected = nil
	v.clampLocked(len(v.filteredLocked()))
}

// 一覧にないサイズは既定値に戻す
func (v *View[T]) setPageSizeLocked(size int) {
	if !slices.Contains(PageSizes, size) {
		size = DefaultPageSize
	}
	v.size = size
	v.page = 1
	v.selected = nil
}

func (v *View[T]) setPageLocked(page int) {
	if page == v.page {
		return
	}
	v.page = page
	v.selected = nil
	v.clampLocked(len(v.filteredLocked()))
}

func (v *View[T]) clampLocked(total int) {
	if v.page < 1 || v.page > totalPages(total, v.size) {
		v.page = 1
	}
}

func (v *View[T]) filteredLocked() []T {
	if v.opts.Match == nil || len(v.filters) == 0 {
		return v.items
	}
	out := make([]T, 0, len(v.items))
	for _, it := range v.items {
		if v.opts.Match(it, v.filters) {
			out = append(out, it)
		}
	}
	return out
}

func (v *View[T]) snapshotLocked() Page[T] {
	all := v.filteredLocked()
	total := len(all)
	start := (v.page - 1) * v.size
	end := min(start+v.size, total)
	if start > total {
		start = total
	}

	p := Page[T]{
		Items:      append([]T{}, all[start:end]...),
		Total:      total,
		Page:       v.page,
		PageSize:   v.size,
		TotalPages: totalPages(total, v.size),
		Filters:    Filters{},
		Selected:   append([]string{}, v.selected...),
	}
	for k, val := range v.filters {
		p.Filters[k] = val
	}
	if end < total {
		next := end
		p.NextOffset = &next
	}
	return p
}

// 0 件でも 1 ページとして扱う
func totalPages(total, size int) int {
	if total == 0 {
		return 1
	}
	return (total + size - 1) / size
}

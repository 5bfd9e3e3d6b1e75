package listing

import (
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

type rec struct {
	ID     string
	Nombre string
}

func recs(n int) []rec {
	out := make([]rec, n)
	for i := range out {
		out[i] = rec{ID: fmt.Sprintf("CC%03d", i+1), Nombre: fmt.Sprintf("Persona %d", i+1)}
	}
	return out
}

func newRecView(multi bool) *View[rec] {
	return NewView(Options[rec]{
		Key: func(r rec) string { return r.ID },
		Match: func(r rec, f Filters) bool {
			return Contains(r.ID, f["identificacion"]) && ContainsAny(f["q"], r.ID, r.Nombre)
		},
		Multi: multi,
	})
}

func intp(n int) *int { return &n }

func TestFold(t *testing.T) {
	cases := map[string]string{
		"Equipo de Cómputo": "equipo de computo",
		"  ÁÉÍÓÚ ñ ":        "  aeiou n ",
		"PRÉSTAMO":          "prestamo",
	}
	for in, want := range cases {
		if got := Fold(in); got != want {
			t.Errorf("Fold(%q) = %q, want %q", in, got, want)
		}
	}
	if !Contains("José Pérez", "jose pe") || Contains("José", "x") || !Contains("x", "") {
		t.Fatal("Contains")
	}
}

func TestContains_TrailingSpaceIsLiteral(t *testing.T) {
	if Contains("Anabel", "ana ") {
		t.Fatal(`"ana " matched "Anabel"`)
	}
	if !Contains("Ana Gil", "ana ") {
		t.Fatal(`"ana " did not match "Ana Gil"`)
	}
	if ContainsAny("ana ", "Anabel", "Anastasia") {
		t.Fatal("ContainsAny matched without the space")
	}
	if !Equal(" Equipo de Cómputo", "equipo de computo ") {
		t.Fatal("Equal should ignore surrounding space")
	}
}

func TestQueryFrom_TrimsFilterValues(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?q=%20ana%20&identificacion=&page=2", nil)

	q := QueryFrom(c, "q", "identificacion", "estado")
	if q.Filters["q"] != "ana" {
		t.Fatalf("q = %q", q.Filters["q"])
	}
	if v, ok := q.Filters["identificacion"]; !ok || v != "" {
		t.Fatalf("identificacion = %q, %v", v, ok)
	}
	if _, ok := q.Filters["estado"]; ok {
		t.Fatal("absent key was set")
	}
	if q.Page == nil || *q.Page != 2 || q.PageSize != nil {
		t.Fatalf("page = %v size = %v", q.Page, q.PageSize)
	}

	v := newRecView(false)
	v.SetItems([]rec{{ID: "1", Nombre: "Anabel"}, {ID: "2", Nombre: "Ana Gil"}})
	v.SetFilter("q", q.Filters["q"])
	if p := v.Snapshot(); p.Total != 2 {
		t.Fatalf("trimmed needle total = %d", p.Total)
	}
}

func TestIdentificationFilter(t *testing.T) {
	v := newRecView(false)
	v.SetItems(append(recs(30), rec{ID: "cc999", Nombre: "lower"}))
	v.SetPageSize(100)

	v.SetFilter("identificacion", "cC0")
	p := v.Snapshot()
	if p.Total != 30 {
		t.Fatalf("total = %d", p.Total)
	}
	for _, r := range p.Items {
		if !strings.Contains(strings.ToLower(r.ID), "cc0") {
			t.Fatalf("unexpected %s", r.ID)
		}
	}

	v.SetFilter("identificacion", "999")
	if p := v.Snapshot(); p.Total != 1 || p.Items[0].ID != "cc999" {
		t.Fatalf("snapshot = %+v", p)
	}
}

func TestPageSizeResetsPage(t *testing.T) {
	v := newRecView(false)
	v.SetItems(recs(47))
	for _, size := range PageSizes {
		v.SetPage(2)
		v.SetPageSize(size)
		p := v.Snapshot()
		if p.Page != 1 {
			t.Fatalf("size %d: page = %d", size, p.Page)
		}
		if len(p.Items) > size {
			t.Fatalf("size %d: %d items", size, len(p.Items))
		}
	}
	v.SetPageSize(7)
	if p := v.Snapshot(); p.PageSize != DefaultPageSize || p.Page != 1 {
		t.Fatalf("invalid size: %+v", p)
	}
}

func TestPaginationSlices(t *testing.T) {
	v := newRecView(false)
	v.SetItems(recs(23))
	p := v.Apply(Query{PageSize: intp(5), Page: intp(5)})
	if p.Page != 5 || len(p.Items) != 3 || p.Items[0].ID != "CC021" || p.TotalPages != 5 {
		t.Fatalf("page = %+v", p)
	}
	if p.NextOffset != nil {
		t.Fatalf("next offset on last page: %d", *p.NextOffset)
	}
	p = v.Apply(Query{Page: intp(2)})
	if p.NextOffset == nil || *p.NextOffset != 10 {
		t.Fatalf("next offset = %v", p.NextOffset)
	}
}

func TestFilterClampsPage(t *testing.T) {
	v := newRecView(false)
	v.SetItems(recs(30))
	v.SetPage(3)

	// 3 ページ目が残る程度の絞り込みならそのまま
	v.SetFilter("q", "persona")
	if p := v.Snapshot(); p.Page != 3 {
		t.Fatalf("page = %d, want 3", p.Page)
	}
	v.SetFilter("q", "Persona 1")
	if p := v.Snapshot(); p.Page != 1 {
		t.Fatalf("page = %d, want 1", p.Page)
	}
	v.SetPage(9)
	if p := v.Snapshot(); p.Page != 1 {
		t.Fatalf("out of range page kept: %d", p.Page)
	}
}

func TestSelectionClearedOnChange(t *testing.T) {
	v := newRecView(true)
	v.SetItems(recs(30))

	mustSelect := func(ids ...string) {
		t.Helper()
		for _, id := range ids {
			if err := v.Select(id); err != nil {
				t.Fatalf("Select(%s): %v", id, err)
			}
		}
	}

	mustSelect("CC001", "CC002", "CC001")
	if got := len(v.Selected()); got != 2 {
		t.Fatalf("selected = %d", got)
	}
	v.SetFilter("q", "persona")
	if len(v.Selected()) != 0 {
		t.Fatal("filter change kept selection")
	}

	mustSelect("CC003")
	v.SetFilter("q", "persona")
	if len(v.Selected()) != 1 {
		t.Fatal("unchanged filter cleared selection")
	}
	v.SetPage(2)
	if len(v.Selected()) != 0 {
		t.Fatal("page change kept selection")
	}

	mustSelect("CC004")
	v.SetPageSize(25)
	if len(v.Selected()) != 0 {
		t.Fatal("page size change kept selection")
	}

	if err := v.Select("nope"); err != ErrNotListed {
		t.Fatalf("err = %v", err)
	}
}

func TestSingleSelectReplaces(t *testing.T) {
	v := newRecView(false)
	v.SetItems(recs(3))
	_ = v.Select("CC001")
	_ = v.Select("CC002")
	sel := v.Selected()
	if len(sel) != 1 || sel[0].ID != "CC002" {
		t.Fatalf("selected = %+v", sel)
	}
	v.SetItems(recs(1))
	if len(v.Selected()) != 0 {
		t.Fatal("selection of removed item kept after refetch")
	}
}

func TestSortedView(t *testing.T) {
	v := NewView(Options[rec]{
		Key:  func(r rec) string { return r.ID },
		Less: func(a, b rec) bool { return a.ID > b.ID },
	})
	v.SetItems(recs(3))
	p := v.Snapshot()
	if p.Items[0].ID != "CC003" || p.Items[2].ID != "CC001" {
		t.Fatalf("order = %+v", p.Items)
	}
}

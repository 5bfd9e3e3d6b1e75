package requesters

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"lendit-admin/internal/listing"
	"lendit-admin/internal/platform/apierr"
)

type call struct {
	method, path string
	body         []byte
}

type fakeBackend struct {
	calls []call
	list  []Requester
	err   error
}

func (f *fakeBackend) DoJSON(_ context.Context, method, path string, in, out any) error {
	var b []byte
	if in != nil {
		b, _ = json.Marshal(in)
	}
	f.calls = append(f.calls, call{method, path, b})
	if f.err != nil {
		return f.err
	}
	switch out := out.(type) {
	case *[]Requester:
		*out = append([]Requester(nil), f.list...)
	case *detailResponse:
		out.Detail = "ok"
	}
	return nil
}

func TestPayload_OmitsCohortFieldsUnlessAprendiz(t *testing.T) {
	f := NewForm()
	f.Identificacion = "1001"
	f.PrimerNombre = "Ana"
	f.PrimerApellido = "Gómez"
	f.Telefono = "3001112233"
	f.Ficha = "2675859"
	f.Programa = "ADSO"

	p, err := f.Payload()
	if err != nil {
		t.Fatal(err)
	}
	b, _ := json.Marshal(p)
	if !strings.Contains(string(b), `"ficha":"2675859"`) {
		t.Fatalf("aprendiz payload = %s", b)
	}

	// 役割を変えても入力済みの値は送らない
	f.Rol = RoleInstructor
	p, err = f.Payload()
	if err != nil {
		t.Fatal(err)
	}
	b, _ = json.Marshal(p)
	if strings.Contains(string(b), "ficha") || strings.Contains(string(b), "programa") {
		t.Fatalf("instructor payload = %s", b)
	}
	if f.ShowsCohortFields() {
		t.Fatal("cohort fields shown for instructor")
	}
}

func TestPayload_Validation(t *testing.T) {
	base := Form{Identificacion: "1", PrimerNombre: "a", PrimerApellido: "b", Telefono: "3", Rol: RoleFuncionario}
	cases := []struct {
		name string
		mut  func(*Form)
	}{
		{"no id", func(f *Form) { f.Identificacion = " " }},
		{"no name", func(f *Form) { f.PrimerNombre = "" }},
		{"no phone", func(f *Form) { f.Telefono = "" }},
		{"bad role", func(f *Form) { f.Rol = "admin" }},
		{"aprendiz without ficha", func(f *Form) { f.Rol = RoleAprendiz; f.Programa = "ADSO" }},
	}
	for _, tc := range cases {
		f := base
		tc.mut(&f)
		_, err := f.Payload()
		var ae *apierr.APIError
		if !errors.As(err, &ae) || ae.Code != apierr.CodeInvalidArgument {
			t.Errorf("%s: err = %v", tc.name, err)
		}
	}
	if _, err := base.Payload(); err != nil {
		t.Fatalf("valid form rejected: %v", err)
	}
}

func TestCreate_InvalidFormMakesNoCall(t *testing.T) {
	fb := &fakeBackend{}
	svc := NewService(fb)
	if _, err := svc.Create(context.Background(), NewForm()); err == nil {
		t.Fatal("expected validation error")
	}
	if len(fb.calls) != 0 {
		t.Fatalf("calls = %d", len(fb.calls))
	}
}

func TestUpdate_KeepsIdentification(t *testing.T) {
	fb := &fakeBackend{}
	svc := NewService(fb)
	f := FormFrom(Requester{Identificacion: "1001", PrimerNombre: "Ana", PrimerApellido: "G", Telefono: "3", Rol: RoleContratista})
	f.Identificacion = "9999"

	if _, err := svc.Update(context.Background(), "1001", f); err != nil {
		t.Fatal(err)
	}
	c := fb.calls[0]
	if c.method != http.MethodPut || c.path != "/solicitantes/actualizar" {
		t.Fatalf("call = %+v", c)
	}
	var p Payload
	_ = json.Unmarshal(c.body, &p)
	if p.Identificacion != "1001" {
		t.Fatalf("identificacion = %q", p.Identificacion)
	}
}

func TestDelete_SendsIdentification(t *testing.T) {
	fb := &fakeBackend{}
	if _, err := NewService(fb).Delete(context.Background(), "1001"); err != nil {
		t.Fatal(err)
	}
	c := fb.calls[0]
	if c.method != http.MethodDelete || string(c.body) != `{"identificacion":"1001"}` {
		t.Fatalf("call = %s %s %s", c.method, c.path, c.body)
	}
}

func TestBrowse_Filters(t *testing.T) {
	fb := &fakeBackend{list: []Requester{
		{Identificacion: "CC1001", PrimerNombre: "José", PrimerApellido: "Pérez", Rol: RoleAprendiz, Ficha: "2675859"},
		{Identificacion: "cc2002", PrimerNombre: "Ana", PrimerApellido: "Ruiz", Rol: RoleInstructor},
		{Identificacion: "TI3003", PrimerNombre: "Luis", PrimerApellido: "Díaz", Rol: RoleFuncionario},
	}}
	svc := NewService(fb)
	ctx := context.Background()

	p, err := svc.Browse(ctx, "s1", listing.Query{Filters: listing.Filters{FilterIdentificacion: "cc"}})
	if err != nil {
		t.Fatal(err)
	}
	if p.Total != 2 {
		t.Fatalf("identificacion filter total = %d", p.Total)
	}

	p, _ = svc.Browse(ctx, "s1", listing.Query{Filters: listing.Filters{FilterIdentificacion: "", FilterQuery: "jose perez"}})
	if p.Total != 1 || p.Items[0].Identificacion != "CC1001" {
		t.Fatalf("q filter = %+v", p.Items)
	}

	// 別セッションの状態は独立
	p, _ = svc.Browse(ctx, "s2", listing.Query{})
	if p.Total != 3 {
		t.Fatalf("other session total = %d", p.Total)
	}

	size := 7
	if _, err := svc.Browse(ctx, "s2", listing.Query{PageSize: &size}); apierr.ToHTTPStatus(err) != http.StatusBadRequest {
		t.Fatalf("bad page size err = %v", err)
	}
}

func TestSelect(t *testing.T) {
	fb := &fakeBackend{list: []Requester{{Identificacion: "1"}, {Identificacion: "2"}}}
	svc := NewService(fb)
	if _, err := svc.Browse(context.Background(), "s", listing.Query{}); err != nil {
		t.Fatal(err)
	}
	if err := svc.Select("s", "2"); err != nil {
		t.Fatal(err)
	}
	if sel := svc.Selected("s"); len(sel) != 1 || sel[0].Identificacion != "2" {
		t.Fatalf("selected = %+v", sel)
	}
	if err := svc.Select("s", "9"); apierr.ToHTTPStatus(err) != http.StatusNotFound {
		t.Fatalf("err = %v", err)
	}
}

package requesters

import (
	"context"
	"net/http"

	"lendit-admin/internal/listing"
	"lendit-admin/internal/platform/apierr"
)

type Backend interface {
	DoJSON(ctx context.Context, method, path string, in, out any) error
}

// 一覧のフィルタキー
const (
	FilterQuery          = "q"
	FilterIdentificacion = "identificacion"
	FilterRol            = "rol"
)

type Service struct {
	api   Backend
	views *listing.Registry[Requester]
}

func NewService(api Backend) *Service {
	return &Service{
		api: api,
		views: listing.NewRegistry(listing.Options[Requester]{
			Key:   func(r Requester) string { return r.Identificacion },
			Match: match,
		}),
	}
}

func match(r Requester, f listing.Filters) bool {
	if rol := f[FilterRol]; rol != "" && !listing.Equal(string(r.Rol), rol) {
		return false
	}
	return listing.Contains(r.Identificacion, f[FilterIdentificacion]) &&
		listing.ContainsAny(f[FilterQuery],
			r.Identificacion, r.PrimerNombre, r.SegundoNombre, r.PrimerApellido, r.SegundoApellido,
			r.FullName(), r.Correo, r.Telefono, string(r.Rol), r.Ficha, r.Programa)
}

func (s *Service) List(ctx context.Context) ([]Requester, error) {
	var out []Requester
	if err := s.api.DoJSON(ctx, http.MethodGet, "/solicitantes/obtener", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get: 一覧から探す（単体取得 API はない）
func (s *Service) Get(ctx context.Context, id string) (Requester, error) {
	all, err := s.List(ctx)
	if err != nil {
		return Requester{}, err
	}
	for _, r := range all {
		if r.Identificacion == id {
			return r, nil
		}
	}
	return Requester{}, apierr.ErrNotFound("Solicitante no encontrado: " + id)
}

type detailResponse struct {
	Detail  string `json:"detail"`
	Message string `json:"message"`
}

func (d detailResponse) text(fallback string) string {
	switch {
	case d.Detail != "":
		return d.Detail
	case d.Message != "":
		return d.Message
	}
	return fallback
}

func (s *Service) Create(ctx context.Context, f Form) (string, error) {
	p, err := f.Payload()
	if err != nil {
		return "", err
	}
	var res detailResponse
	if err := s.api.DoJSON(ctx, http.MethodPost, "/solicitantes/registrar", p, &res); err != nil {
		return "", err
	}
	return res.text("Solicitante registrado"), nil
}

// Update: identificacion は編集不可。id を常に使う
func (s *Service) Update(ctx context.Context, id string, f Form) (string, error) {
	if id == "" {
		return "", apierr.ErrInvalid("La identificación es obligatoria")
	}
	f.Identificacion = id
	p, err := f.Payload()
	if err != nil {
		return "", err
	}
	var res detailResponse
	if err := s.api.DoJSON(ctx, http.MethodPut, "/solicitantes/actualizar", p, &res); err != nil {
		return "", err
	}
	return res.text("Solicitante actualizado"), nil
}

func (s *Service) Delete(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", apierr.ErrInvalid("La identificación es obligatoria")
	}
	var res detailResponse
	body := map[string]string{"identificacion": id}
	if err := s.api.DoJSON(ctx, http.MethodDelete, "/solicitantes/eliminar", body, &res); err != nil {
		return "", err
	}
	return res.text("Solicitante eliminado"), nil
}

// Browse: 取得し直してからセッションの一覧状態に反映する
func (s *Service) Browse(ctx context.Context, sessionID string, q listing.Query) (listing.Page[Requester], error) {
	all, err := s.List(ctx)
	if err != nil {
		return listing.Page[Requester]{}, err
	}
	v := s.views.For(sessionID)
	v.SetItems(all)
	return v.Apply(q), nil
}

func (s *Service) Select(sessionID, id string) error {
	if err := s.views.For(sessionID).Select(id); err != nil {
		return apierr.ErrNotFound(err.Error())
	}
	return nil
}

func (s *Service) Selected(sessionID string) []Requester {
	return s.views.For(sessionID).Selected()
}

func (s *Service) Drop(sessionID string) { s.views.Drop(sessionID) }

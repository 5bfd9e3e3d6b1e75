package products

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"lendit-admin/internal/listing"
	"lendit-admin/internal/platform/apierr"
)

type Backend interface {
	DoJSON(ctx context.Context, method, path string, in, out any) error
}

const (
	FilterCode  = "codigo" // CODIGO_INTERNO / PLACA_SENA / SERIAL
	FilterType  = "tipo"   // IDTIPOPRODUCTO
	FilterQuery = "q"

	pageLimit = 100 // バックエンド側の既定上限
)

type Service struct {
	api   Backend
	views *listing.Registry[Product]
}

func NewService(api Backend) *Service {
	return &Service{
		api: api,
		views: listing.NewRegistry(listing.Options[Product]{
			Key:   func(p Product) string { return p.CodigoInterno },
			Match: match,
			Multi: true,
		}),
	}
}

func match(p Product, f listing.Filters) bool {
	if t := f[FilterType]; t != "" && t != strconv.FormatInt(p.IDTipoProducto, 10) {
		return false
	}
	return listing.ContainsAny(f[FilterCode], p.CodigoInterno, p.PlacaSena, p.Serial) &&
		listing.ContainsAny(f[FilterQuery], p.CodigoInterno, p.Nombre, p.PlacaSena, p.Serial, p.Marca, string(p.Estado))
}

// List: skip/limit で全件たどる
func (s *Service) List(ctx context.Context) ([]Product, error) {
	var all []Product
	for skip := 0; ; skip += pageLimit {
		q := url.Values{}
		q.Set("skip", strconv.Itoa(skip))
		q.Set("limit", strconv.Itoa(pageLimit))
		var page []Product
		if err := s.api.DoJSON(ctx, http.MethodGet, "/productos/?"+q.Encode(), nil, &page); err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < pageLimit {
			return all, nil
		}
	}
}

func (s *Service) Get(ctx context.Context, code string) (Product, error) {
	var p Product
	if err := s.api.DoJSON(ctx, http.MethodGet, "/productos/"+url.PathEscape(code), nil, &p); err != nil {
		return Product{}, err
	}
	return p, nil
}

func (s *Service) Types(ctx context.Context) ([]Type, error) {
	var out []Type
	if err := s.api.DoJSON(ctx, http.MethodGet, "/tipos-producto/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) Counters(ctx context.Context) (Counters, error) {
	out := Counters{}
	if err := s.api.DoJSON(ctx, http.MethodGet, "/productos/contadores", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) Create(ctx context.Context, f Form) (Product, error) {
	types, err := s.Types(ctx)
	if err != nil {
		return Product{}, err
	}
	p, err := f.Payload(types)
	if err != nil {
		return Product{}, err
	}
	var out Product
	if err := s.api.DoJSON(ctx, http.MethodPost, "/productos/", p, &out); err != nil {
		return Product{}, err
	}
	return out, nil
}

// Update: CODIGO_INTERNO は編集不可
func (s *Service) Update(ctx context.Context, code string, f Form) (Product, error) {
	if code == "" {
		return Product{}, apierr.ErrInvalid("El código interno es obligatorio")
	}
	types, err := s.Types(ctx)
	if err != nil {
		return Product{}, err
	}
	f.CodigoInterno = code
	p, err := f.Payload(types)
	if err != nil {
		return Product{}, err
	}
	var out Product
	if err := s.api.DoJSON(ctx, http.MethodPut, "/productos/"+url.PathEscape(code), p, &out); err != nil {
		return Product{}, err
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, code string) error {
	if code == "" {
		return apierr.ErrInvalid("El código interno es obligatorio")
	}
	return s.api.DoJSON(ctx, http.MethodDelete, "/productos/"+url.PathEscape(code), nil, nil)
}

func (s *Service) Browse(ctx context.Context, sessionID string, q listing.Query) (listing.Page[Product], error) {
	if t := q.Filters[FilterType]; t != "" {
		if _, err := strconv.ParseInt(t, 10, 64); err != nil {
			return listing.Page[Product]{}, apierr.ErrInvalid(fmt.Sprintf("tipo inválido: %q", t))
		}
	}
	all, err := s.List(ctx)
	if err != nil {
		return listing.Page[Product]{}, err
	}
	v := s.views.For(sessionID)
	v.SetItems(all)
	return v.Apply(q), nil
}

func (s *Service) Select(sessionID, code string) error {
	if err := s.views.For(sessionID).Select(code); err != nil {
		return apierr.ErrNotFound(err.Error())
	}
	return nil
}

func (s *Service) Deselect(sessionID, code string) { s.views.For(sessionID).Deselect(code) }

func (s *Service) Selected(sessionID string) []Product { return s.views.For(sessionID).Selected() }

func (s *Service) Drop(sessionID string) { s.views.Drop(sessionID) }
func (s *Service) ClearSelection(sessionID string) { s.views.For(sessionID).ClearSelection() }

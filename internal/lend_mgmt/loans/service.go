package loans

import (
	"cmp"
	"context"
	"fmt"
	"net/http"
	"strconv"

	"golang.org/x/sync/errgroup"

	"lendit-admin/internal/lend_mgmt/requesters"
	"lendit-admin/internal/listing"
	"lendit-admin/internal/platform/apierr"
)

type Backend interface {
	DoJSON(ctx context.Context, method, path string, in, out any) error
}

// RequesterLister: 申請者名の解決に使う
type RequesterLister interface {
	List(ctx context.Context) ([]requesters.Requester, error)
}

const (
	FilterRequester = "solicitante" // 氏名または identificación
	FilterStatus    = "estado"
)

type Service struct {
	api   Backend
	reqs  RequesterLister
	views *listing.Registry[Row]
}

func NewService(api Backend, reqs RequesterLister) *Service {
	return &Service{
		api:  api,
		reqs: reqs,
		views: listing.NewRegistry(listing.Options[Row]{
			Key:   func(r Row) string { return strconv.FormatInt(r.IDPrestamo, 10) },
			Match: match,
			Less:  newerFirst,
		}),
	}
}

func match(r Row, f listing.Filters) bool {
	if st := f[FilterStatus]; st != "" && !listing.Equal(string(r.Solicitud.Estado), st) {
		return false
	}
	return listing.ContainsAny(f[FilterRequester], r.Solicitante, r.Solicitud.Identificacion)
}

// 登録日の新しい順、同日は ID の大きい順
func newerFirst(a, b Row) bool {
	if c := cmp.Compare(a.FechaRegistro, b.FechaRegistro); c != 0 {
		return c > 0
	}
	return a.IDPrestamo > b.IDPrestamo
}

func (s *Service) List(ctx context.Context) ([]Loan, error) {
	var out []Loan
	if err := s.api.DoJSON(ctx, http.MethodGet, "/prestamo/obtener", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Rows: 貸出と申請者を並行に取得して結合する
func (s *Service) Rows(ctx context.Context) ([]Row, error) {
	var (
		loans []Loan
		reqs  []requesters.Requester
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		loans, err = s.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		reqs, err = s.reqs.List(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return Join(loans, reqs), nil
}

// Join: 申請者が見つからなければ名前は identificación のまま
func Join(loans []Loan, reqs []requesters.Requester) []Row {
	byID := make(map[string]requesters.Requester, len(reqs))
	for _, r := range reqs {
		byID[r.Identificacion] = r
	}
	rows := make([]Row, 0, len(loans))
	for _, l := range loans {
		row := Row{Loan: l, Solicitante: l.Solicitud.Identificacion, Extendable: l.CanExtend(), Returnable: l.CanReturn()}
		if r, ok := byID[l.Solicitud.Identificacion]; ok {
			row.Solicitante = r.FullName()
			row.Rol = r.Rol
		}
		rows = append(rows, row)
	}
	return rows
}

func (s *Service) Browse(ctx context.Context, sessionID string, q listing.Query) (listing.Page[Row], []Status, error) {
	rows, err := s.Rows(ctx)
	if err != nil {
		return listing.Page[Row]{}, nil, err
	}
	v := s.views.For(sessionID)
	v.SetItems(rows)
	return v.Apply(q), Statuses(rows), nil
}

func (s *Service) Select(sessionID string, id int64) error {
	if err := s.views.For(sessionID).Select(strconv.FormatInt(id, 10)); err != nil {
		return apierr.ErrNotFound(err.Error())
	}
	return nil
}

func (s *Service) Selected(sessionID string) []Row { return s.views.For(sessionID).Selected() }

func (s *Service) Drop(sessionID string) { s.views.Drop(sessionID) }

func (s *Service) find(ctx context.Context, id int64) (Row, error) {
	rows, err := s.Rows(ctx)
	if err != nil {
		return Row{}, err
	}
	for _, r := range rows {
		if r.IDPrestamo == id {
			return r, nil
		}
	}
	return Row{}, apierr.ErrNotFound(fmt.Sprintf("Préstamo %d no encontrado", id))
}

type ReturnResult struct {
	Detail      string `json:"detail"`
	PrestamoID  int64  `json:"prestamo_id"`
	SolicitudID int64  `json:"solicitud_id"`
	NuevoEstado Status `json:"nuevo_estado"`
}

func (s *Service) Return(ctx context.Context, id int64) (ReturnResult, error) {
	row, err := s.find(ctx, id)
	if err != nil {
		return ReturnResult{}, err
	}
	if !row.CanReturn() {
		return ReturnResult{}, apierr.ErrConflict("El préstamo no está activo y no puede ser devuelto")
	}

	var out ReturnResult
	path := fmt.Sprintf("/prestamo/%d/devolver", id)
	if err := s.api.DoJSON(ctx, http.MethodPut, path, nil, &out); err != nil {
		return ReturnResult{}, err
	}
	return out, nil
}

type ExtendResult struct {
	Detail           string `json:"detail"`
	PrestamoID       int64  `json:"prestamo_id"`
	NuevaFechaLimite string `json:"nueva_fecha_limite"`
}

// Extend: 延長可否と日数を確認してから送る。days が 0 なら役割の既定値
func (s *Service) Extend(ctx context.Context, id int64, days int) (ExtendResult, error) {
	row, err := s.find(ctx, id)
	if err != nil {
		return ExtendResult{}, err
	}
	if !row.CanExtend() {
		if row.FechaProlongacion != nil {
			return ExtendResult{}, apierr.ErrConflict("El préstamo ya ha sido prolongado")
		}
		return ExtendResult{}, apierr.ErrConflict("El préstamo no está activo y no puede ser prolongado")
	}
	if days == 0 {
		_, _, days = ExtensionLimits(row.Rol)
	}
	if err := validateDays(row.Rol, days); err != nil {
		return ExtendResult{}, err
	}

	var out ExtendResult
	path := fmt.Sprintf("/prestamo/%d/prolongar", id)
	if err := s.api.DoJSON(ctx, http.MethodPut, path, map[string]int{"dias": days}, &out); err != nil {
		return ExtendResult{}, err
	}
	return out, nil
}

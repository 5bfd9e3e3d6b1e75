package loans

import (
	"slices"

	"lendit-admin/internal/lend_mgmt/requesters"
)

// Status: 紐づく solicitud の ESTADO
type Status string

const (
	StatusPendiente  Status = "pendiente"
	StatusAprobado   Status = "aprobado"
	StatusRechazado  Status = "rechazado"
	StatusFinalizado Status = "finalizado"
)

// Active: 返却・延長できる状態
func (s Status) Active() bool { return s == StatusPendiente || s == StatusAprobado }

type RequestProduct struct {
	ProductoID  int64 `json:"PRODUCTO_ID"`
	SolicitudID int64 `json:"SOLICITUD_ID"`
}

type Request struct {
	IDSolicitud    int64            `json:"IDSOLICITUD"`
	Identificacion string           `json:"IDENTIFICACION"`
	FechaRegistro  string           `json:"FECHA_REGISTRO"`
	Estado         Status           `json:"ESTADO"`
	Productos      []RequestProduct `json:"productos_solicitud"`
}

// Loan: GET /prestamo/obtener の 1 件。日付は ISO 文字列のまま
type Loan struct {
	IDPrestamo        int64   `json:"IDPRESTAMO"`
	IDSolicitud       int64   `json:"IDSOLICITUD"`
	FechaRegistro     string  `json:"FECHA_REGISTRO"`
	FechaLimite       string  `json:"FECHA_LIMITE"`
	FechaProlongacion *string `json:"FECHA_PROLONGACION"`
	Solicitud         Request `json:"solicitud"`
}

// CanExtend: 延長は 1 回だけ、有効な貸出のみ
func (l Loan) CanExtend() bool {
	return l.FechaProlongacion == nil && l.Solicitud.Estado.Active()
}

func (l Loan) CanReturn() bool { return l.Solicitud.Estado.Active() }

// Row: 一覧表示用に申請者名を解決したもの
type Row struct {
	Loan
	Solicitante string          `json:"solicitante"`
	Rol         requesters.Role `json:"rol"`
	Extendable  bool            `json:"extendable"`
	Returnable  bool            `json:"returnable"`
}

// Statuses: 一覧に現れる状態（出現順、重複なし）
func Statuses(rows []Row) []Status {
	var out []Status
	for _, r := range rows {
		if s := r.Solicitud.Estado; s != "" && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

package workflow

import (
	"slices"
	"strings"
	"time"

	"lendit-admin/internal/platform/apierr"
)

type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// Step: 失敗した段階
type Step string

const (
	StepRequest Step = "crear_solicitud"
	StepAttach  Step = "agregar_productos"
	StepLoan    Step = "crear_prestamo"
)

// ProductRef: 一覧から選んだ製品（ID で重複排除）
type ProductRef struct {
	ID            int64  `json:"IDPRODUCTO"`
	CodigoInterno string `json:"CODIGO_INTERNO,omitempty"`
	Nombre        string `json:"NOMBRE,omitempty"`
}

type Kind string

const (
	KindCompleted Kind = "completed"
	KindFailed    Kind = "failed"
)

// Outcome: 確定処理の結果。Kind で成功・失敗を区別する
type Outcome struct {
	Kind              Kind   `json:"kind"`
	Message           string `json:"message"`
	RequestID         int64  `json:"request_id,omitempty"`
	LoanID            int64  `json:"loan_id,omitempty"`
	Step              Step   `json:"step,omitempty"`
	StrandedRequestID *int64 `json:"stranded_request_id,omitempty"`
}

// Draft: セッションごとの入力中の貸出
type Draft struct {
	State     State        `json:"state"`
	Requester string       `json:"identificacion"`
	Products  []ProductRef `json:"productos"`
	DueDate   string       `json:"fecha_limite"`
	Last      *Outcome     `json:"last,omitempty"`
}

func (d *Draft) addProduct(p ProductRef) {
	if slices.ContainsFunc(d.Products, func(x ProductRef) bool { return x.ID == p.ID }) {
		return
	}
	d.Products = append(d.Products, p)
}

func (d *Draft) removeProduct(id int64) {
	d.Products = slices.DeleteFunc(d.Products, func(x ProductRef) bool { return x.ID == id })
}

func (d *Draft) clear() {
	d.Requester = ""
	d.Products = nil
	d.DueDate = ""
}

func (d Draft) clone() Draft {
	d.Products = slices.Clone(d.Products)
	if d.Last != nil {
		o := *d.Last
		d.Last = &o
	}
	return d
}

// validate: 送信前の入力チェック（ネットワークに出る前）
func (d Draft) validate(today time.Time) error {
	switch {
	case strings.TrimSpace(d.Requester) == "":
		return apierr.ErrInvalid("Seleccione un solicitante")
	case len(d.Products) == 0:
		return apierr.ErrInvalid("Seleccione al menos un producto")
	case d.DueDate == "":
		return apierr.ErrInvalid("Seleccione la fecha límite")
	}
	if _, err := time.Parse(time.DateOnly, d.DueDate); err != nil {
		return apierr.ErrInvalid("Fecha límite inválida: " + d.DueDate)
	}
	if d.DueDate < today.Format(time.DateOnly) {
		return apierr.ErrInvalid("La fecha límite no puede ser anterior a hoy")
	}
	return nil
}

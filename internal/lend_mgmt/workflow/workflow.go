package workflow

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"lendit-admin/internal/platform/apierr"
)

const FailurePrefix = "Error al registrar los préstamos: "

var ErrBusy = apierr.ErrConflict("Hay un registro de préstamo en curso")

type Backend interface {
	DoJSON(ctx context.Context, method, path string, in, out any) error
}

// Failure: どの段階で失敗したか。solicitud 作成後の失敗は取り消さない
type Failure struct {
	Step      Step
	RequestID int64 // 0 なら未作成
	Cause     error
}

func (f *Failure) Error() string { return FailurePrefix + causeMessage(f.Cause) }
func (f *Failure) Unwrap() error { return f.Cause }

// Outcome: 失敗を画面向けの結果にする
func (f *Failure) Outcome() Outcome {
	o := Outcome{Kind: KindFailed, Message: f.Error(), Step: f.Step}
	if f.RequestID != 0 {
		id := f.RequestID
		o.StrandedRequestID = &id
	}
	return o
}

// APIError: 原因のステータスを保ったまま応答用に変換する
func (f *Failure) APIError() *apierr.APIError {
	return &apierr.APIError{
		Code:    apierr.From(f.Cause).Error.Code,
		Message: f.Error(),
		Status:  apierr.ToHTTPStatus(f.Cause),
		Details: f.Outcome(),
	}
}

func causeMessage(err error) string {
	if err == nil {
		return ""
	}
	return apierr.From(err).Error.Message
}

type requestPayload struct {
	Identificacion string `json:"IDENTIFICACION"`
	FechaRegistro  string `json:"FECHA_REGISTRO"`
	Estado         string `json:"ESTADO"`
}

type attachPayload struct {
	ProductoID  int64 `json:"PRODUCTO_ID"`
	SolicitudID int64 `json:"SOLICITUD_ID"`
}

type loanPayload struct {
	IDSolicitud   int64  `json:"IDSOLICITUD"`
	FechaRegistro string `json:"FECHA_REGISTRO"`
	FechaLimite   string `json:"FECHA_LIMITE"`
}

type createdRequest struct {
	IDSolicitud int64 `json:"IDSOLICITUD"`
	ID          int64 `json:"id"`
}

func (r createdRequest) id() int64 {
	if r.IDSolicitud != 0 {
		return r.IDSolicitud
	}
	return r.ID
}

type createdLoan struct {
	IDPrestamo int64 `json:"IDPRESTAMO"`
}

// Orchestrator は solicitud → 製品の紐づけ → préstamo の順で登録する
type Orchestrator struct {
	api Backend
	now func() time.Time

	mu          sync.Mutex
	drafts      map[string]*entry
	onCompleted []func(sessionID string, o Outcome)
}

type entry struct {
	mu sync.Mutex
	d  Draft
}

func New(api Backend) *Orchestrator {
	return &Orchestrator{api: api, now: time.Now, drafts: make(map[string]*entry)}
}

// OnCompleted: 登録成功後に呼ばれる（一覧の再取得など）
func (o *Orchestrator) OnCompleted(fn func(sessionID string, o Outcome)) {
	o.mu.Lock()
	o.onCompleted = append(o.onCompleted, fn)
	o.mu.Unlock()
}

func (o *Orchestrator) entry(sessionID string) *entry {
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.drafts[sessionID]
	if !ok {
		e = &entry{d: Draft{State: StateIdle}}
		o.drafts[sessionID] = e
	}
	return e
}

func (o *Orchestrator) Drop(sessionID string) {
	o.mu.Lock()
	delete(o.drafts, sessionID)
	o.mu.Unlock()
}

func (o *Orchestrator) Draft(sessionID string) Draft {
	e := o.entry(sessionID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.d.clone()
}

// edit: 送信中は変更できない。変更すると前回の結果は消える
func (o *Orchestrator) edit(sessionID string, fn func(d *Draft)) (Draft, error) {
	e := o.entry(sessionID)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.d.State == StateSubmitting {
		return e.d.clone(), ErrBusy
	}
	fn(&e.d)
	e.d.State = StateIdle
	e.d.Last = nil
	return e.d.clone(), nil
}

func (o *Orchestrator) SetRequester(sessionID, id string) (Draft, error) {
	return o.edit(sessionID, func(d *Draft) { d.Requester = id })
}

func (o *Orchestrator) AddProduct(sessionID string, p ProductRef) (Draft, error) {
	if p.ID <= 0 {
		return Draft{}, apierr.ErrInvalid("IDPRODUCTO inválido")
	}
	return o.edit(sessionID, func(d *Draft) { d.addProduct(p) })
}

func (o *Orchestrator) RemoveProduct(sessionID string, id int64) (Draft, error) {
	return o.edit(sessionID, func(d *Draft) { d.removeProduct(id) })
}

func (o *Orchestrator) SetDueDate(sessionID, date string) (Draft, error) {
	return o.edit(sessionID, func(d *Draft) { d.DueDate = date })
}

func (o *Orchestrator) Reset(sessionID string) (Draft, error) {
	return o.edit(sessionID, func(d *Draft) { d.clear() })
}

// Confirm: 入力を検証して登録する。失敗時は *Failure を返す
func (o *Orchestrator) Confirm(ctx context.Context, sessionID string) (Outcome, error) {
	e := o.entry(sessionID)

	e.mu.Lock()
	if e.d.State == StateSubmitting {
		e.mu.Unlock()
		return Outcome{}, ErrBusy
	}
	if err := e.d.validate(o.now()); err != nil {
		e.mu.Unlock()
		return Outcome{}, err
	}
	in := e.d.clone()
	e.d.State = StateSubmitting
	e.d.Last = nil
	e.mu.Unlock()

	out, err := o.submit(ctx, in)

	var f *Failure
	e.mu.Lock()
	if errors.As(err, &f) {
		e.d.State = StateFailed
		out = f.Outcome()
	} else {
		e.d.State = StateCompleted
		e.d.clear()
	}
	e.d.Last = &out
	e.mu.Unlock()

	if err != nil {
		log.Printf("[WARN] loan registration failed: session=%s err=%v", sessionID, err)
		return out, err
	}
	log.Printf("[INFO] loan registered: request=%d loan=%d products=%d", out.RequestID, out.LoanID, len(in.Products))

	o.mu.Lock()
	hooks := append([]func(string, Outcome){}, o.onCompleted...)
	o.mu.Unlock()
	for _, fn := range hooks {
		fn(sessionID, out)
	}
	return out, nil
}

func (o *Orchestrator) submit(ctx context.Context, in Draft) (Outcome, error) {
	today := o.now().Format(time.DateOnly)

	var req createdRequest
	body := requestPayload{Identificacion: in.Requester, FechaRegistro: today, Estado: "pendiente"}
	if err := o.api.DoJSON(ctx, http.MethodPost, "/solicitudes/crear", body, &req); err != nil {
		return Outcome{}, &Failure{Step: StepRequest, Cause: err}
	}
	rid := req.id()
	if rid == 0 {
		return Outcome{}, &Failure{Step: StepRequest, Cause: errors.New("respuesta sin IDSOLICITUD")}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range in.Products {
		g.Go(func() error {
			return o.api.DoJSON(gctx, http.MethodPost, "/solicitudes/agregar-producto",
				attachPayload{ProductoID: p.ID, SolicitudID: rid}, nil)
		})
	}
	if err := g.Wait(); err != nil {
		return Outcome{}, &Failure{Step: StepAttach, RequestID: rid, Cause: err}
	}

	var loan createdLoan
	lp := loanPayload{IDSolicitud: rid, FechaRegistro: today, FechaLimite: in.DueDate}
	if err := o.api.DoJSON(ctx, http.MethodPost, "/prestamo/crear", lp, &loan); err != nil {
		return Outcome{}, &Failure{Step: StepLoan, RequestID: rid, Cause: err}
	}
	return Outcome{
		Kind:      KindCompleted,
		Message:   "Préstamo registrado",
		RequestID: rid,
		LoanID:    loan.IDPrestamo,
	}, nil
}

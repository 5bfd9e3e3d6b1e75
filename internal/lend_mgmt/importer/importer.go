package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"lendit-admin/internal/platform/apiclient"
	"lendit-admin/internal/platform/apierr"
)

const (
	MaxBytes       = 10 << 20
	DefaultTimeout = 30 * time.Second
	formField      = "file"
)

// Target: 取込先のエンドポイント
type Target struct {
	Name string
	Path string
}

var (
	Requesters = Target{Name: "solicitantes", Path: "/solicitantes/importar-excel"}
	Products   = Target{Name: "productos", Path: "/productos/importar-excel"}
)

var (
	ErrExtension = apierr.ErrInvalid("El archivo debe ser un Excel (.xlsx)")
	ErrEmpty     = apierr.ErrInvalid("El archivo está vacío")
	ErrTooLarge  = apierr.ErrInvalid("El archivo supera el tamaño máximo de 10 MB")
	ErrTimeout   = &apierr.APIError{Code: apierr.CodeTimeout, Message: "La importación excedió el tiempo límite"}
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindPartial Kind = "partial"
	KindFailed  Kind = "failed"
)

type Result struct {
	Kind      Kind     `json:"kind"`
	Message   string   `json:"message"`
	Total     int      `json:"total"`
	Successes int      `json:"exitosos"`
	Errors    []string `json:"errores"`
	Partial   bool     `json:"parcial"`
}

// ImportError: 非 2xx だが errores を含む応答。Result で行ごとの詳細を返す
type ImportError struct {
	StatusCode int
	Result     Result
}

func (e *ImportError) Error() string { return e.Result.Message }

func (e *ImportError) Unwrap() error {
	st := e.StatusCode
	if st < 400 || st >= 500 {
		st = http.StatusBadGateway
	}
	return &apierr.APIError{Code: apierr.CodeUpstream, Status: st, Message: e.Result.Message, Details: e.Result}
}

// Uploader は apiclient.Client が満たす
type Uploader interface {
	Upload(ctx context.Context, path, field, filename string, content io.Reader, out any) error
}

type File struct {
	Name    string
	Size    int64
	Content io.Reader
}

type Pipeline struct {
	up       Uploader
	timeout  time.Duration
	maxBytes int64
}

func New(up Uploader, timeout time.Duration, maxBytes int64) *Pipeline {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxBytes <= 0 {
		maxBytes = MaxBytes
	}
	return &Pipeline{up: up, timeout: timeout, maxBytes: maxBytes}
}

// Validate: 通信前のチェック
func (p *Pipeline) Validate(f File) error {
	if !strings.EqualFold(filepath.Ext(f.Name), ".xlsx") {
		return ErrExtension
	}
	if f.Size <= 0 {
		return ErrEmpty
	}
	if f.Size > p.maxBytes {
		return ErrTooLarge
	}
	return nil
}

// Import: 呼び出し側の ctx と内部タイムアウトの早い方で中断する。
// 利用者のキャンセルは ctx.Err() をそのまま、タイムアウトは ErrTimeout を返す
func (p *Pipeline) Import(ctx context.Context, target Target, f File) (Result, error) {
	if err := p.Validate(f); err != nil {
		return Result{}, err
	}

	upCtx, cancel := context.WithTimeoutCause(ctx, p.timeout, ErrTimeout)
	defer cancel()

	start := time.Now()
	var raw response
	err := p.up.Upload(upCtx, target.Path, formField, f.Name, f.Content, &raw)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			log.Printf("[INFO] import %s: cancelled by caller", target.Name)
			return Result{}, ctxErr
		}
		if errors.Is(context.Cause(upCtx), ErrTimeout) {
			log.Printf("[WARN] import %s: timed out after %s", target.Name, p.timeout)
			return Result{}, ErrTimeout
		}
		return Result{}, p.upstreamError(target, err)
	}

	res := raw.result()
	log.Printf("[INFO] import %s: file=%s kind=%s ok=%d ng=%d (%s)",
		target.Name, f.Name, res.Kind, res.Successes, len(res.Errors), time.Since(start).Round(time.Millisecond))
	return res, nil
}

func (p *Pipeline) upstreamError(target Target, err error) error {
	var he *apiclient.HTTPError
	if !errors.As(err, &he) || errors.Is(err, apiclient.ErrSessionExpired) {
		return err
	}
	var raw response
	if he.Decode(&raw) == nil && raw.Errores != nil {
		return &ImportError{StatusCode: he.StatusCode, Result: raw.result()}
	}
	msg := he.Message
	if msg == apiclient.GenericMessage {
		msg = fmt.Sprintf("Error al importar %s", target.Name)
	}
	return &apierr.APIError{Code: apierr.CodeUpstream, Message: msg, Status: statusOf(he.StatusCode)}
}

func statusOf(upstream int) int {
	if upstream >= 400 && upstream < 500 {
		return upstream
	}
	return http.StatusBadGateway
}

type response struct {
	Message  string   `json:"message"`
	Detail   string   `json:"detail"`
	Total    *int     `json:"total"`
	Exitosos *int     `json:"exitosos"`
	Errores  []string `json:"errores"`
	Parcial  *bool    `json:"parcial"`
}

var countRe = regexp.MustCompile(`(?i)se importaron\s+(\d+)`)

func (r response) result() Result {
	msg := r.Message
	if msg == "" {
		msg = r.Detail
	}
	res := Result{Message: msg, Errors: r.Errores}
	if res.Errors == nil {
		res.Errors = []string{}
	}

	switch {
	case r.Exitosos != nil:
		res.Successes = *r.Exitosos
	case len(res.Errors) == 0:
		if m := countRe.FindStringSubmatch(msg); m != nil {
			res.Successes, _ = strconv.Atoi(m[1])
		}
	}
	if r.Total != nil {
		res.Total = *r.Total
	} else {
		res.Total = res.Successes + len(res.Errors)
	}

	if r.Parcial != nil {
		res.Partial = *r.Parcial
	} else {
		res.Partial = res.Successes > 0 && len(res.Errors) > 0
	}

	switch {
	case res.Partial:
		res.Kind = KindPartial
	case len(res.Errors) > 0:
		res.Kind = KindFailed
	default:
		res.Kind = KindSuccess
	}
	return res
}

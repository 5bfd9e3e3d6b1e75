// Package dashboard はトップ画面用の参照データをまとめて取得する
package dashboard

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"lendit-admin/internal/lend_mgmt/loans"
	"lendit-admin/internal/lend_mgmt/products"
	"lendit-admin/internal/lend_mgmt/requesters"
	"lendit-admin/internal/platform/apiclient"
	"lendit-admin/internal/platform/apierr"
)

const LoadFailedMessage = "Error al cargar los datos necesarios"

type LoanSource interface {
	List(ctx context.Context) ([]loans.Loan, error)
}

type RequesterSource interface {
	List(ctx context.Context) ([]requesters.Requester, error)
}

type ProductSource interface {
	List(ctx context.Context) ([]products.Product, error)
	Types(ctx context.Context) ([]products.Type, error)
	Counters(ctx context.Context) (products.Counters, error)
}

type Summary struct {
	Loans        int `json:"prestamos"`
	ActiveLoans  int `json:"prestamos_activos"`
	OverdueLoans int `json:"prestamos_vencidos"`
	Requesters   int `json:"solicitantes"`
	Products     int `json:"productos"`
}

type Data struct {
	Loans      []loans.Row            `json:"prestamos"`
	Requesters []requesters.Requester `json:"solicitantes"`
	Products   []products.Product     `json:"productos"`
	Types      []products.Type        `json:"tipos_producto"`
	Counters   products.Counters      `json:"contadores"`
	Summary    Summary                `json:"resumen"`
}

type Service struct {
	loans LoanSource
	reqs  RequesterSource
	prods ProductSource
	now   func() time.Time
}

func NewService(l LoanSource, r RequesterSource, p ProductSource) *Service {
	return &Service{loans: l, reqs: r, prods: p, now: time.Now}
}

// Load: 5 つを並行に取得し、1 つでも失敗したら全体を失敗にする
func (s *Service) Load(ctx context.Context) (Data, error) {
	var (
		d  Data
		ls []loans.Loan
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { ls, err = s.loans.List(gctx); return })
	g.Go(func() (err error) { d.Requesters, err = s.reqs.List(gctx); return })
	g.Go(func() (err error) { d.Products, err = s.prods.List(gctx); return })
	g.Go(func() (err error) { d.Types, err = s.prods.Types(gctx); return })
	g.Go(func() (err error) { d.Counters, err = s.prods.Counters(gctx); return })
	if err := g.Wait(); err != nil {
		log.Printf("[WARN] dashboard load failed: %v", err)
		return Data{}, loadError(err)
	}

	d.Loans = loans.Join(ls, d.Requesters)
	d.Summary = summarize(d, s.now())
	return d, nil
}

// セッション切れはそのまま返してログイン画面へ戻す
func loadError(err error) error {
	if errors.Is(err, apiclient.ErrSessionExpired) {
		return err
	}
	return &apierr.APIError{
		Code:    apierr.From(err).Error.Code,
		Message: LoadFailedMessage,
		Status:  apierr.ToHTTPStatus(err),
		Details: apierr.From(err).Error.Message,
	}
}

func summarize(d Data, now time.Time) Summary {
	today := now.Format(time.DateOnly)
	sum := Summary{Loans: len(d.Loans), Requesters: len(d.Requesters), Products: len(d.Products)}
	for _, l := range d.Loans {
		if !l.Solicitud.Estado.Active() {
			continue
		}
		sum.ActiveLoans++
		if l.FechaLimite != "" && l.FechaLimite < today {
			sum.OverdueLoans++
		}
	}
	return sum
}

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	r.GET("/dashboard", func(c *gin.Context) {
		d, err := svc.Load(c.Request.Context())
		if err != nil {
			apierr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, d)
	})
}

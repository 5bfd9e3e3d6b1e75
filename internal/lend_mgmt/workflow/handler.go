package workflow

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"lendit-admin/internal/platform/apierr"
	"lendit-admin/internal/platform/auth"
)

type Handler struct{ wf *Orchestrator }

func RegisterRoutes(r gin.IRoutes, wf *Orchestrator) {
	h := &Handler{wf: wf}
	r.GET("/nuevo-prestamo", h.Get)
	r.DELETE("/nuevo-prestamo", h.Reset)
	r.PUT("/nuevo-prestamo/solicitante", h.SetRequester)
	r.POST("/nuevo-prestamo/productos", h.AddProduct)
	r.DELETE("/nuevo-prestamo/productos/:id", h.RemoveProduct)
	r.PUT("/nuevo-prestamo/fecha-limite", h.SetDueDate)
	r.POST("/nuevo-prestamo/confirmar", h.Confirm)
}

func sid(c *gin.Context) string { return auth.SessionFrom(c).ID() }

func reply(c *gin.Context, d Draft, err error) {
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) Get(c *gin.Context) { c.JSON(http.StatusOK, h.wf.Draft(sid(c))) }

func (h *Handler) Reset(c *gin.Context) {
	d, err := h.wf.Reset(sid(c))
	reply(c, d, err)
}

type requesterRequest struct {
	Identificacion string `json:"identificacion"`
}

func (h *Handler) SetRequester(c *gin.Context) {
	var req requesterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid json"))
		return
	}
	d, err := h.wf.SetRequester(sid(c), req.Identificacion)
	reply(c, d, err)
}

func (h *Handler) AddProduct(c *gin.Context) {
	var p ProductRef
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid json"))
		return
	}
	d, err := h.wf.AddProduct(sid(c), p)
	reply(c, d, err)
}

func (h *Handler) RemoveProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid id"))
		return
	}
	d, err := h.wf.RemoveProduct(sid(c), id)
	reply(c, d, err)
}

type dueDateRequest struct {
	FechaLimite string `json:"fecha_limite"`
}

func (h *Handler) SetDueDate(c *gin.Context) {
	var req dueDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid json"))
		return
	}
	d, err := h.wf.SetDueDate(sid(c), req.FechaLimite)
	reply(c, d, err)
}

// Confirm godoc
// @Summary  préstamo を登録（solicitud → productos → préstamo）
// @Tags     prestamos
// @Produce  json
// @Success  201 {object} Outcome
// @Failure  400 {object} apierr.ErrorDTO
// @Failure  502 {object} apierr.ErrorDTO
// @Router   /nuevo-prestamo/confirmar [post]
func (h *Handler) Confirm(c *gin.Context) {
	out, err := h.wf.Confirm(c.Request.Context(), sid(c))
	var f *Failure
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, out)
	case errors.As(err, &f):
		ae := f.APIError()
		c.JSON(apierr.ToHTTPStatus(ae), apierr.From(ae))
	default:
		apierr.Respond(c, err)
	}
}

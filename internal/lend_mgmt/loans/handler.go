package loans

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"lendit-admin/internal/lend_mgmt/requesters"
	"lendit-admin/internal/listing"
	"lendit-admin/internal/platform/apierr"
	"lendit-admin/internal/platform/auth"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.GET("/prestamos", h.Browse)
	r.POST("/prestamos/:id/seleccionar", h.Select)
	r.PUT("/prestamos/:id/devolver", h.Return)
	r.PUT("/prestamos/:id/prolongar", h.Extend)
	r.GET("/prestamos/limites-prolongacion", h.Limits)
}

type browseResponse struct {
	listing.Page[Row]
	Statuses []Status `json:"statuses"`
}

// Browse godoc
// @Summary  préstamos（登録日の新しい順）
// @Tags     prestamos
// @Produce  json
// @Param    solicitante query string false "nombre o identificación"
// @Param    estado      query string false "estado de la solicitud"
// @Param    page        query int    false "página"
// @Param    page_size   query int    false "5/10/25/50/100"
// @Success  200 {object} browseResponse
// @Router   /prestamos [get]
func (h *Handler) Browse(c *gin.Context) {
	q := listing.QueryFrom(c, FilterRequester, FilterStatus)
	p, st, err := h.svc.Browse(c.Request.Context(), auth.SessionFrom(c).ID(), q)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, browseResponse{Page: p, Statuses: st})
}

func (h *Handler) Select(c *gin.Context) {
	id, ok := loanID(c)
	if !ok {
		return
	}
	sid := auth.SessionFrom(c).ID()
	if err := h.svc.Select(sid, id); err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"selected": h.svc.Selected(sid)})
}

func (h *Handler) Return(c *gin.Context) {
	id, ok := loanID(c)
	if !ok {
		return
	}
	res, err := h.svc.Return(c.Request.Context(), id)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	log.Printf("[INFO] loan returned: id=%d", id)
	c.JSON(http.StatusOK, res)
}

type extendRequest struct {
	Dias int `json:"dias"`
}

func (h *Handler) Extend(c *gin.Context) {
	id, ok := loanID(c)
	if !ok {
		return
	}
	var req extendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid json"))
		return
	}
	res, err := h.svc.Extend(c.Request.Context(), id, req.Dias)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	log.Printf("[INFO] loan extended: id=%d days=%d", id, req.Dias)
	c.JSON(http.StatusOK, res)
}

// GET /prestamos/limites-prolongacion?rol=
func (h *Handler) Limits(c *gin.Context) {
	lo, hi, def := ExtensionLimits(requesters.Role(c.Query("rol")))
	c.JSON(http.StatusOK, gin.H{"min": lo, "max": hi, "default": def})
}

func loanID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid id"))
		return 0, false
	}
	return id, true
}

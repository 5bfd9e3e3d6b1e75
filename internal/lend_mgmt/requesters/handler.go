package requesters

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lendit-admin/internal/listing"
	"lendit-admin/internal/platform/apierr"
	"lendit-admin/internal/platform/auth"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.GET("/solicitantes", h.Browse)
	r.GET("/solicitantes/formulario", h.Form)
	r.POST("/solicitantes", h.Create)
	r.PUT("/solicitantes/:identificacion", h.Update)
	r.DELETE("/solicitantes/:identificacion", h.Delete)
	r.POST("/solicitantes/:identificacion/seleccionar", h.Select)
}

// Browse godoc
// @Summary  solicitantes（フィルタ・ページング）
// @Tags     solicitantes
// @Produce  json
// @Param    q              query string false "cualquier campo"
// @Param    identificacion query string false "identificación"
// @Param    rol            query string false "rol"
// @Param    page           query int    false "página"
// @Param    page_size      query int    false "5/10/25/50/100"
// @Success  200 {object} listing.Page[Requester]
// @Router   /solicitantes [get]
func (h *Handler) Browse(c *gin.Context) {
	q := listing.QueryFrom(c, FilterQuery, FilterIdentificacion, FilterRol)
	p, err := h.svc.Browse(c.Request.Context(), auth.SessionFrom(c).ID(), q)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type formResponse struct {
	Form             Form     `json:"form"`
	ReadOnly         []string `json:"read_only"`
	ShowCohortFields bool     `json:"show_cohort_fields"`
	Roles            []Role   `json:"roles"`
}

// GET /solicitantes/formulario[?identificacion=]
func (h *Handler) Form(c *gin.Context) {
	res := formResponse{Form: NewForm(), ReadOnly: []string{}, Roles: Roles}
	if id := c.Query("identificacion"); id != "" {
		r, err := h.svc.Get(c.Request.Context(), id)
		if err != nil {
			apierr.Respond(c, err)
			return
		}
		res.Form = FormFrom(r)
		res.ReadOnly = []string{"identificacion"}
	}
	res.ShowCohortFields = res.Form.ShowsCohortFields()
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Create(c *gin.Context) {
	var f Form
	if err := c.ShouldBindJSON(&f); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid json"))
		return
	}
	msg, err := h.svc.Create(c.Request.Context(), f)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"detail": msg})
}

func (h *Handler) Update(c *gin.Context) {
	var f Form
	if err := c.ShouldBindJSON(&f); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid json"))
		return
	}
	msg, err := h.svc.Update(c.Request.Context(), c.Param("identificacion"), f)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": msg})
}

func (h *Handler) Delete(c *gin.Context) {
	msg, err := h.svc.Delete(c.Request.Context(), c.Param("identificacion"))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": msg})
}

func (h *Handler) Select(c *gin.Context) {
	if err := h.svc.Select(auth.SessionFrom(c).ID(), c.Param("identificacion")); err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"selected": h.svc.Selected(auth.SessionFrom(c).ID())})
}

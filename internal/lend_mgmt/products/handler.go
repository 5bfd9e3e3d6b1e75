package products

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
	r.GET("/productos", h.Browse)
	r.GET("/productos/formulario", h.Form)
	r.GET("/productos/contadores", h.Counters)
	r.GET("/tipos-producto", h.Types)
	r.POST("/productos", h.Create)
	r.PUT("/productos/:codigo", h.Update)
	r.DELETE("/productos/:codigo", h.Delete)
	r.POST("/productos/:codigo/seleccionar", h.Select)
	r.DELETE("/productos/:codigo/seleccionar", h.Deselect)
}

// Browse godoc
// @Summary  productos（フィルタ・ページング）
// @Tags     productos
// @Produce  json
// @Param    q         query string false "cualquier campo"
// @Param    codigo    query string false "código interno / placa / serial"
// @Param    tipo      query int    false "IDTIPOPRODUCTO"
// @Param    page      query int    false "página"
// @Param    page_size query int    false "5/10/25/50/100"
// @Success  200 {object} listing.Page[Product]
// @Router   /productos [get]
func (h *Handler) Browse(c *gin.Context) {
	q := listing.QueryFrom(c, FilterQuery, FilterCode, FilterType)
	p, err := h.svc.Browse(c.Request.Context(), auth.SessionFrom(c).ID(), q)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type formResponse struct {
	Form            Form     `json:"form"`
	ReadOnly        []string `json:"read_only"`
	ShowAssetFields bool     `json:"show_asset_fields"`
	Types           []Type   `json:"types"`
	Statuses        []Status `json:"statuses"`
}

// GET /productos/formulario[?codigo=&tipo=]
func (h *Handler) Form(c *gin.Context) {
	ctx := c.Request.Context()
	types, err := h.svc.Types(ctx)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	res := formResponse{Form: NewForm(), ReadOnly: []string{}, Types: types, Statuses: Statuses}
	if code := c.Query("codigo"); code != "" {
		p, err := h.svc.Get(ctx, code)
		if err != nil {
			apierr.Respond(c, err)
			return
		}
		res.Form = FormFrom(p)
		res.ReadOnly = []string{"CODIGO_INTERNO"}
	} else if len(types) > 0 {
		res.Form.IDTipoProducto = types[0].ID
	}
	res.ShowAssetFields = res.Form.ShowsAssetFields(types)
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Types(c *gin.Context) {
	types, err := h.svc.Types(c.Request.Context())
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": types})
}

func (h *Handler) Counters(c *gin.Context) {
	cnt, err := h.svc.Counters(c.Request.Context())
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, cnt)
}

func (h *Handler) Create(c *gin.Context) {
	var f Form
	if err := c.ShouldBindJSON(&f); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid json"))
		return
	}
	p, err := h.svc.Create(c.Request.Context(), f)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) Update(c *gin.Context) {
	var f Form
	if err := c.ShouldBindJSON(&f); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid json"))
		return
	}
	p, err := h.svc.Update(c.Request.Context(), c.Param("codigo"), f)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("codigo")); err != nil {
		apierr.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Select(c *gin.Context) {
	sid := auth.SessionFrom(c).ID()
	if err := h.svc.Select(sid, c.Param("codigo")); err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"selected": h.svc.Selected(sid)})
}

func (h *Handler) Deselect(c *gin.Context) {
	sid := auth.SessionFrom(c).ID()
	h.svc.Deselect(sid, c.Param("codigo"))
	c.JSON(http.StatusOK, gin.H{"selected": h.svc.Selected(sid)})
}

package importer

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lendit-admin/internal/platform/apierr"
)

type Handler struct{ p *Pipeline }

func RegisterRoutes(r gin.IRoutes, p *Pipeline) {
	h := &Handler{p: p}
	r.POST("/solicitantes/importar", h.importTo(Requesters))
	r.POST("/productos/importar", h.importTo(Products))
	r.GET("/"+TemplateName, ServeTemplate)
}

// POST /solicitantes/importar, /productos/importar (multipart: file)
func (h *Handler) importTo(t Target) gin.HandlerFunc {
	return func(c *gin.Context) {
		fh, err := c.FormFile(formField)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "Por favor seleccione un archivo Excel"))
			return
		}
		f := File{Name: fh.Filename, Size: fh.Size}
		if err := h.p.Validate(f); err != nil {
			apierr.Respond(c, err)
			return
		}
		rd, err := fh.Open()
		if err != nil {
			apierr.Respond(c, apierr.ErrInternal(err.Error()))
			return
		}
		defer rd.Close()
		f.Content = rd

		// ブラウザ側の中断は Request.Context のキャンセルとして届く
		res, err := h.p.Import(c.Request.Context(), t, f)
		if err != nil {
			apierr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// ServeTemplate: GET /plantilla-solicitantes.xlsx
func ServeTemplate(c *gin.Context) {
	b, err := RequesterTemplate()
	if err != nil {
		apierr.Respond(c, apierr.ErrInternal(err.Error()))
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+TemplateName+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", b)
}

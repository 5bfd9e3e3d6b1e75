package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"lendit-admin/internal/platform/apierr"
	"lendit-admin/internal/platform/session"
)

type Handler struct {
	mgr   *session.Manager
	guard *Guard
}

// RegisterRoutes: /auth/login 以外は Guard の後ろ
func RegisterRoutes(r *gin.RouterGroup, mgr *session.Manager, guard *Guard) {
	h := &Handler{mgr: mgr, guard: guard}

	a := r.Group("/auth")
	a.POST("/login", h.Login)

	p := a.Group("", guard.RequireSession())
	p.POST("/logout", h.Logout)
	p.GET("/verify", h.Verify)
	p.POST("/refresh", h.Refresh)
	p.POST("/activity", h.Activity)
	p.GET("/me", h.Me)
}

type LoginRequest struct {
	Nombre   string `json:"nombre" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login godoc
// @Summary  ログイン（トークンはサーバー側セッションに保持）
// @Tags     auth
// @Accept   json
// @Produce  json
// @Param    body body LoginRequest true "credenciales"
// @Success  200 {object} session.LoginResult
// @Failure  401 {object} apierr.ErrorDTO
// @Router   /auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, session.ErrMissingCredentials.Error()))
		return
	}

	ctx := c.Request.Context()
	s := h.mgr.Create()
	res, err := s.Login(ctx, req.Nombre, req.Password)
	if err != nil {
		s.Teardown(ctx)
		if errors.Is(err, session.ErrMissingCredentials) {
			err = apierr.ErrInvalid(err.Error())
		}
		apierr.Respond(c, err)
		return
	}
	if !res.Success {
		s.Teardown(ctx)
		msg := res.Detail
		if msg == "" {
			msg = "Error en el inicio de sesión"
		}
		c.JSON(http.StatusUnauthorized, apierr.Body(apierr.CodeInvalidArgument, msg))
		return
	}

	h.guard.setCookie(c, s.ID())
	h.guard.markVerified(s.ID())
	res.Token = "" // ブラウザには渡さない
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Logout(c *gin.Context) {
	s := SessionFrom(c)
	h.guard.forget(s.ID())
	s.Logout(c.Request.Context())
	h.guard.clearCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "Sesión cerrada"})
}

// Verify: キャッシュを使わずにバックエンドで再検証する
func (h *Handler) Verify(c *gin.Context) {
	s := SessionFrom(c)
	ok, err := s.VerifyToken(c.Request.Context())
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	if !ok {
		h.guard.forget(s.ID())
		h.guard.deny(c)
		return
	}
	h.guard.markVerified(s.ID())
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

func (h *Handler) Refresh(c *gin.Context) {
	ok, err := SessionFrom(c).RefreshToken(c.Request.Context())
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"refreshed": ok})
}

// Activity: 画面側の操作（クリック・キー入力など）の通知。Touch は Guard 内で済んでいる
func (h *Handler) Activity(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func (h *Handler) Me(c *gin.Context) {
	u, err := SessionFrom(c).CurrentUser(c.Request.Context())
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

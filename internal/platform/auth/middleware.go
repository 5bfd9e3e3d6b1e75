package auth

import (
	"context"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"lendit-admin/internal/platform/apiclient"
	"lendit-admin/internal/platform/apierr"
	"lendit-admin/internal/platform/session"
)

const CtxSessionKey = "session"

// Guard: Cookie のセッションを検証してから保護ルートを通す
type Guard struct {
	mgr      *session.Manager
	cookie   string
	secure   bool
	interval time.Duration
	now      func() time.Time

	mu       sync.Mutex
	verified map[string]time.Time
}

type GuardOptions struct {
	CookieName     string
	Secure         bool
	VerifyInterval time.Duration // この間隔内は verify-token を省略する
}

func NewGuard(mgr *session.Manager, opts GuardOptions) *Guard {
	if opts.CookieName == "" {
		opts.CookieName = "lendit_sid"
	}
	return &Guard{
		mgr:      mgr,
		cookie:   opts.CookieName,
		secure:   opts.Secure,
		interval: opts.VerifyInterval,
		now:      time.Now,
		verified: make(map[string]time.Time),
	}
}

// RequireSession: 未認証なら API は 401、画面は /login へリダイレクト
func (g *Guard) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := g.Authenticate(c); !ok {
			return
		}
		c.Next()
	}
}

// Authenticate: 成功時はセッションを gin/context に載せる。失敗時は応答済みで false
func (g *Guard) Authenticate(c *gin.Context) (*session.Session, bool) {
	ctx := c.Request.Context()
	sid, _ := c.Cookie(g.cookie)
	s, ok := g.mgr.Get(ctx, sid)
	if !ok {
		g.deny(c)
		return nil, false
	}

	valid, err := g.verify(ctx, s)
	if err != nil {
		log.Printf("[ERROR] verify session %s: %v", s.ID(), err)
		c.Abort()
		apierr.Respond(c, err)
		return nil, false
	}
	if !valid {
		g.forget(s.ID())
		g.deny(c)
		return nil, false
	}

	s.Touch(ctx)
	if !s.IsAuthenticated(ctx) {
		// Touch 中の更新で 401 を受けた
		g.forget(s.ID())
		g.deny(c)
		return nil, false
	}

	c.Set(CtxSessionKey, s)
	c.Request = c.Request.WithContext(apiclient.WithCredentials(ctx, s))
	return s, true
}

func SessionFrom(c *gin.Context) *session.Session {
	v, ok := c.Get(CtxSessionKey)
	if !ok {
		return nil
	}
	s, _ := v.(*session.Session)
	return s
}

func (g *Guard) verify(ctx context.Context, s *session.Session) (bool, error) {
	now := g.now()
	g.mu.Lock()
	last, ok := g.verified[s.ID()]
	g.mu.Unlock()
	if ok && g.interval > 0 && now.Sub(last) < g.interval && s.IsAuthenticated(ctx) {
		return true, nil
	}

	valid, err := s.VerifyToken(ctx)
	if err != nil || !valid {
		return valid, err
	}
	g.markVerified(s.ID())
	return true, nil
}

func (g *Guard) markVerified(id string) {
	now := g.now()
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verified[id] = now
	// 放置されたセッション分を掃除
	if len(g.verified) > 1024 {
		for k, t := range g.verified {
			if now.Sub(t) >= g.interval {
				delete(g.verified, k)
			}
		}
	}
}

func (g *Guard) forget(id string) {
	g.mu.Lock()
	delete(g.verified, id)
	g.mu.Unlock()
}

func (g *Guard) setCookie(c *gin.Context, id string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(g.cookie, id, 0, "/", "", g.secure, true)
}

func (g *Guard) clearCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(g.cookie, "", -1, "/", "", g.secure, true)
}

func (g *Guard) deny(c *gin.Context) {
	g.clearCookie(c)
	if isAPIRequest(c.Request) {
		c.AbortWithStatusJSON(http.StatusUnauthorized,
			apierr.Body(apierr.CodeUnauthenticated, apiclient.ErrSessionExpired.Error()))
		return
	}
	c.Redirect(http.StatusFound, apierr.LoginPath)
	c.Abort()
}

func isAPIRequest(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

package main

import (
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"lendit-admin/internal/platform/apierr"
	"lendit-admin/internal/platform/auth"
)

// 認証なしで返すファイル
var publicPages = map[string]bool{
	"login.html": true,
}

// mountUI: 埋め込んだ画面を返す。ログイン画面と静的アセット以外はセッション必須
func mountUI(r *gin.Engine, embedded fs.FS, guard *auth.Guard) error {
	sub, err := fs.Sub(embedded, "public")
	if err != nil {
		return err
	}
	fileFS := http.FS(sub)

	r.GET(apierr.LoginPath, func(c *gin.Context) { serveFile(c, fileFS, "login.html") })

	r.NoRoute(func(c *gin.Context) {
		// API は対象外
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, apierr.Body(apierr.CodeNotFound, "not found"))
			return
		}

		reqPath := strings.TrimPrefix(c.Request.URL.Path, "/")
		if reqPath == "" {
			reqPath = "index.html"
		}

		// アセットはそのまま、画面はセッションを確認してから
		if !isAsset(reqPath) && !publicPages[reqPath] {
			if _, ok := guard.Authenticate(c); !ok {
				return
			}
		}

		if serveFile(c, fileFS, reqPath) {
			return
		}
		// なければ index.html にフォールバック
		if !isAsset(reqPath) && serveFile(c, fileFS, "index.html") {
			return
		}
		c.Status(http.StatusNotFound)
	})
	return nil
}

func isAsset(p string) bool {
	ext := path.Ext(p)
	return ext != "" && ext != ".html"
}

// serveFile: 実ファイルがあれば Content-Type を推測して返す
func serveFile(c *gin.Context, fileFS http.FileSystem, name string) bool {
	f, err := fileFS.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		return false
	}
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		c.Header("Content-Type", ct)
	}
	// html 以外はキャッシュ
	if isAsset(name) {
		c.Header("Cache-Control", "public, max-age=86400, immutable")
	} else {
		c.Header("Cache-Control", "no-store")
	}
	http.ServeContent(c.Writer, c.Request, name, info.ModTime(), f)
	return true
}

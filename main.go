package main

import (
	"context"
	"embed"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"lendit-admin/docs"
	"lendit-admin/internal/lend_mgmt/dashboard"
	"lendit-admin/internal/lend_mgmt/importer"
	"lendit-admin/internal/lend_mgmt/loans"
	"lendit-admin/internal/lend_mgmt/products"
	"lendit-admin/internal/lend_mgmt/requesters"
	"lendit-admin/internal/lend_mgmt/workflow"
	"lendit-admin/internal/platform/apiclient"
	"lendit-admin/internal/platform/auth"
	"lendit-admin/internal/platform/config"
	"lendit-admin/internal/platform/session"
)

// 画面の静的ファイルを埋め込む

//go:embed public
var embedded embed.FS

func main() {
	cfgPath := flag.String("config", config.DefaultPath, "config file")
	flag.Parse()

	// 設定読み込み
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("[ERROR] config: %v", err)
	}
	log.Printf("[INFO] mode:%s backend:%s session:%s", cfg.Mode, cfg.Backend.BaseURL, cfg.Session.Driver)

	ctx := context.Background()

	api, err := apiclient.New(cfg.Backend.BaseURL, cfg.Backend.Timeout)
	if err != nil {
		log.Fatalf("[ERROR] backend client: %v", err)
	}

	store, closeStore, err := openStorage(ctx, cfg)
	if err != nil {
		log.Fatalf("[ERROR] session storage: %v", err)
	}
	defer closeStore()

	mgr := session.NewManager(api, store, session.Options{
		InactivityTimeout: cfg.Session.InactivityTimeout,
		RefreshWindow:     cfg.Session.RefreshWindow,
	})
	if n, err := mgr.Restore(ctx); err != nil {
		log.Printf("[WARN] restore sessions: %v", err)
	} else if n > 0 {
		log.Printf("[INFO] restored %d sessions", n)
	}
	defer mgr.Close()

	guard := auth.NewGuard(mgr, auth.GuardOptions{
		CookieName:     cfg.Session.CookieName,
		Secure:         cfg.Mode == "release",
		VerifyInterval: cfg.Session.VerifyInterval,
	})

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	_ = r.SetTrustedProxies(nil)

	if cfg.Mode == "dev" {
		// CORS（開発中のみ必要）
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Requested-With"},
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowCredentials: true,
		}))
	}

	// ヘルス
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": mgr.Len()})
	})

	// API ドキュメント
	docs.SwaggerInfo.Version = cfg.Version
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	reqSvc := requesters.NewService(api)
	prodSvc := products.NewService(api)
	loanSvc := loans.NewService(api, reqSvc)
	wf := workflow.New(api)
	pipe := importer.New(api, cfg.Import.Timeout, cfg.Import.MaxBytes)

	// ログアウト・失効でセッションごとの画面状態を捨てる
	mgr.OnTeardown(func(id string) {
		reqSvc.Drop(id)
		prodSvc.Drop(id)
		loanSvc.Drop(id)
		wf.Drop(id)
	})
	wf.OnCompleted(func(id string, o workflow.Outcome) {
		prodSvc.ClearSelection(id)
		loanSvc.Drop(id)
	})

	// /api/v1
	v1 := r.Group("/api/v1")
	auth.RegisterRoutes(v1, mgr, guard)

	private := v1.Group("", guard.RequireSession())
	requesters.RegisterRoutes(private, reqSvc)
	products.RegisterRoutes(private, prodSvc)
	loans.RegisterRoutes(private, loanSvc)
	workflow.RegisterRoutes(private, wf)
	importer.RegisterRoutes(private, pipe)
	dashboard.RegisterRoutes(private, dashboard.NewService(loanSvc, reqSvc, prodSvc))

	// テンプレートは画面からも直接リンクされる
	r.GET("/"+importer.TemplateName, guard.RequireSession(), importer.ServeTemplate)

	if err := mountUI(r, embedded, guard); err != nil {
		log.Fatal(err)
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	certFile, keyFile, useTLS := tlsFiles(cfg)
	go func() {
		var err error
		if useTLS {
			log.Printf("[INFO] listening on https://%s", cfg.Listen)
			err = srv.ListenAndServeTLS(certFile, keyFile)
		} else {
			log.Printf("[WARN] certificate not found, listening on http://%s", cfg.Listen)
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("[INFO] shutting down...")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Printf("[ERROR] shutdown: %v", err)
	}
}

// tlsFiles: config/tls/<mode>/ に証明書があれば TLS で起動する
func tlsFiles(cfg *config.Config) (string, string, bool) {
	if cfg.Certificate.Cert == "" || cfg.Certificate.Key == "" {
		return "", "", false
	}
	certFile := fmt.Sprintf("config/tls/%s/%s", cfg.Mode, cfg.Certificate.Cert)
	keyFile := fmt.Sprintf("config/tls/%s/%s", cfg.Mode, cfg.Certificate.Key)
	for _, f := range []string{certFile, keyFile} {
		if _, err := os.Stat(f); err != nil {
			return "", "", false
		}
	}
	return certFile, keyFile, true
}

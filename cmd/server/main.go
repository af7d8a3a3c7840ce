package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"chatwire/internal/config"
	"chatwire/internal/database"
	"chatwire/internal/handlers"
	"chatwire/internal/history"
	"chatwire/internal/signaling"
	"chatwire/internal/turn"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/acme/autocert"
)

const AppVersion = "1.0.0"

func main() {
	httpOnly := flag.Bool("http-only", false, "Serve plain HTTP (development, or behind a TLS-terminating proxy)")
	flag.Parse()

	cfg := config.Load(*httpOnly)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	logger.Info("chatwire server starting", "version", AppVersion)

	db, err := database.Initialize(cfg.DBPath)
	if err != nil {
		logger.Error("failed to initialize database", "path", cfg.DBPath, "error", err)
		return
	}

	turnServer, err := turn.Initialize(cfg.TURNPort, cfg.TURNRealm, logger)
	if err != nil {
		logger.Error("failed to initialize TURN server", "error", err)
		return
	}
	defer turnServer.Close()
	logger.Info("turn server started", "port", cfg.TURNPort, "realm", cfg.TURNRealm)

	recorder := history.NewRecorder(db, logger)
	hub := signaling.NewHub(recorder, cfg.RingTimeout, logger)

	h := handlers.New(db, cfg, hub, turnServer, logger)
	hub.SetNotifier(h)

	router := setupRouter(h, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.HTTPOnly {
		serveHTTP(ctx, router, cfg, logger)
		return
	}
	serveHTTPS(ctx, router, cfg, logger)
}

func setupRouter(h *handlers.Handlers, logger *slog.Logger) *gin.Engine {
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(slogGinLogger(logger))

	// CORS middleware (for web app)
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	api := router.Group("/api")
	{
		api.POST("/register", h.Register)
		api.POST("/login", h.Login)
		api.GET("/ws", h.HandleWebSocket)
		api.GET("/push/key", h.GetVAPIDPublicKey)

		authed := api.Group("", h.AuthMiddleware())
		{
			authed.GET("/me", h.GetMe)
			authed.GET("/users", h.ListUsers)
			authed.GET("/users/search", h.SearchUsers)
			authed.PUT("/user/profile", h.UpdateProfile)
			authed.GET("/chats", h.ListChats)
			authed.POST("/chat", h.CreateChat)
			authed.POST("/message", h.SendMessage)
			authed.GET("/chat/:chat_id/messages", h.GetMessages)
			authed.PUT("/messages/:id", h.EditMessage)
			authed.GET("/calls", h.ListCallHistory)
			authed.GET("/turn-config", h.GetTURNConfig)
			authed.POST("/push/subscribe", h.SubscribePush)
			authed.POST("/push/unsubscribe", h.UnsubscribePush)
		}
	}

	return router
}

func serveHTTP(ctx context.Context, router *gin.Engine, cfg *config.Config, logger *slog.Logger) {
	srv := &http.Server{
		Addr:        ":" + cfg.HTTPPort,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	shutdown(srv, logger)
}

func serveHTTPS(ctx context.Context, router *gin.Engine, cfg *config.Config, logger *slog.Logger) {
	certsDir := "certs"
	if err := os.MkdirAll(certsDir, 0700); err != nil {
		logger.Error("failed to create certs directory", "error", err)
		return
	}

	domain := normalizeDomain(cfg.Domain)
	logger.Info("configured domain", "domain", domain)
	if domain == "localhost" || domain == "127.0.0.1" {
		logger.Warn("Let's Encrypt will not work for localhost; use --http-only for local development")
	}

	m := &autocert.Manager{
		Prompt: autocert.AcceptTOS,
		HostPolicy: func(ctx context.Context, host string) error {
			if normalizeDomain(host) != domain {
				// Rejected quietly; bots and scanners probe constantly.
				return fmt.Errorf("host %q not configured (expected %q)", host, domain)
			}
			return nil
		},
		Cache: autocert.DirCache(certsDir),
	}

	errorLog := log.New(newServerErrorWriter(logger), "", 0)

	// Port 80 answers ACME challenges and redirects everything else.
	httpSrv := &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/.well-known/acme-challenge/") {
				m.HTTPHandler(nil).ServeHTTP(w, r)
				return
			}
			http.Redirect(w, r, "https://"+r.Host+r.RequestURI, http.StatusMovedPermanently)
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorLog:     errorLog,
	}

	httpsSrv := &http.Server{
		Addr:        ":" + cfg.HTTPSPort,
		Handler:     router,
		TLSConfig:   m.TLSConfig(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
		ErrorLog:    errorLog,
	}

	go func() {
		logger.Info("http server starting (ACME challenges and redirects)", "port", cfg.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	go func() {
		logger.Info("https server starting", "port", cfg.HTTPSPort, "domain", domain)
		if err := httpsSrv.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("https server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	shutdown(httpSrv, logger)
	shutdown(httpsSrv, logger)
}

func shutdown(srv *http.Server, logger *slog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shut down", "addr", srv.Addr, "error", err)
		return
	}
	logger.Info("server exited gracefully", "addr", srv.Addr)
}

// normalizeDomain lowercases and strips the www. prefix so certificate
// host checks compare like with like.
func normalizeDomain(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	return strings.TrimPrefix(domain, "www.")
}

package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"library-lending/config"
)

// NewRouter wires the handlers onto a gin engine. Forwarded client
// addresses are only honoured from cfg.HTTP.TrustedProxies.
func NewRouter(h *Handler, cfg *config.Config) (*gin.Engine, error) {
	router := gin.New()
	if err := router.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	router.Use(RequestID(), RequestLogger(h.logger), gin.Recovery(), Session(h.tokens))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/register", h.Register)
	auth.POST("/login", newLoginLimiter(cfg.Auth.LoginRatePerMinute, cfg.Auth.LoginRateBurst).middleware(), h.Login)

	api.GET("/books", h.SearchBooks)
	api.GET("/books/:id", h.GetBook)
	api.GET("/categories", h.ListCategories)

	member := api.Group("", RequireSession())
	member.POST("/books/:id/borrow", h.Borrow)
	member.GET("/loans", h.ListLoans)
	member.POST("/loans/:id/return", h.Return)

	admin := api.Group("/admin", RequireSession())
	admin.POST("/books", h.AddBook)
	admin.PUT("/books/:id", h.UpdateBook)
	admin.DELETE("/books/:id", h.DeleteBook)
	admin.POST("/categories", h.AddCategory)
	admin.PUT("/books/:id/categories/:category_id", h.AssignCategory)

	return router, nil
}

// Serve runs the HTTP server until ctx is cancelled, then drains in-flight
// requests for at most cfg.HTTP.ShutdownTimeout.
func Serve(ctx context.Context, router http.Handler, cfg *config.Config, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.HTTP.Host, strconv.Itoa(cfg.HTTP.Port)),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down http server", "timeout", cfg.HTTP.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"shopBackend/internal/logger"
)

// RouterConfig carries the handlers and middleware wired into the engine.
type RouterConfig struct {
	ServiceName    string
	CORSOrigins    []string
	Log            *logger.Logger
	AuthMiddleware *AuthMiddleware
	AuthHandler    *AuthHandler
	ItemHandler    *ItemHandler
	OrderHandler   *OrderHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(Recovery(cfg.Log))
	r.Use(AttachTraceContext())
	r.Use(RequestLogger(cfg.Log))
	r.Use(CORS(cfg.CORSOrigins))

	// Health
	r.GET("/healthcheck", healthCheck)

	api := r.Group("/api")

	// Auth (public)
	if cfg.AuthHandler != nil {
		authGroup := api.Group("/auth")
		authGroup.POST("/register/admin", cfg.AuthHandler.RegisterAdmin)
		authGroup.POST("/register/customer", cfg.AuthHandler.RegisterCustomer)
		authGroup.POST("/register", cfg.AuthHandler.Register)
		authGroup.POST("/login", cfg.AuthHandler.Login)
	}

	am := cfg.AuthMiddleware

	// Items: reads are public, writes are admin-only.
	if cfg.ItemHandler != nil {
		items := api.Group("/items")
		items.GET("", cfg.ItemHandler.List)
		items.GET("/:id", cfg.ItemHandler.Get)
		admin := items.Group("", am.RequireAuth(), am.RequireAdmin())
		admin.POST("", cfg.ItemHandler.Create)
		admin.PUT("/:id", cfg.ItemHandler.Update)
		admin.DELETE("/:id", cfg.ItemHandler.Delete)
	}

	// Orders
	if cfg.OrderHandler != nil {
		orders := api.Group("/orders", am.RequireAuth())
		orders.POST("/place", am.RequireCustomer(), cfg.OrderHandler.Place)
		orders.GET("/my-orders", am.RequireCustomer(), cfg.OrderHandler.MyOrders)
		orders.GET("/all", am.RequireAdmin(), cfg.OrderHandler.All)
		orders.GET("/:id", cfg.OrderHandler.Get)
	}

	return r
}

// Server runs the gin engine on a net/http server so it can be shut down gracefully.
type Server struct {
	srv *http.Server
}

func NewServer(address string, engine *gin.Engine) *Server {
	return &Server{srv: &http.Server{
		Addr:              address,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}}
}

// Run blocks until the server stops. A graceful shutdown is not an error.
func (s *Server) Run() error {
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

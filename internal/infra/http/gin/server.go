package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"stayledger/internal/infra/config"
	"stayledger/internal/infra/obs"
)

type BookingHTTP interface {
	Create(c *gin.Context)
	Cancel(c *gin.Context)
}

type HostHTTP interface {
	Approve(c *gin.Context)
	Decline(c *gin.Context)
	ListBookings(c *gin.Context)
}

type AvailabilityHTTP interface {
	Check(c *gin.Context)
}

type QuoteHTTP interface {
	Get(c *gin.Context)
}

type WalletHTTP interface {
	Get(c *gin.Context)
	CashIn(c *gin.Context)
	Transactions(c *gin.Context)
}

type MeHTTP interface {
	ListBookings(c *gin.Context)
}

type AuthHTTP interface {
	Register(c *gin.Context)
	Login(c *gin.Context)
	Logout(c *gin.Context)
	Me(c *gin.Context)
}

type Handlers struct {
	Booking        BookingHTTP
	Host           HostHTTP
	Availability   AvailabilityHTTP
	Quote          QuoteHTTP
	Wallet         WalletHTTP
	Me             MeHTTP
	Auth           AuthHTTP
	AuthMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Auth != nil {
		api.POST("/auth/register", h.Auth.Register)
		api.POST("/auth/login", h.Auth.Login)
		api.POST("/auth/logout", h.Auth.Logout)
		api.GET("/auth/me", h.Auth.Me)
	}
	if h.Booking != nil {
		api.POST("/bookings", h.Booking.Create)
		api.POST("/bookings/:id/cancel", h.Booking.Cancel)
	}
	if h.Host != nil {
		api.POST("/bookings/:id/approve", h.Host.Approve)
		api.POST("/bookings/:id/decline", h.Host.Decline)
		api.GET("/host/bookings", h.Host.ListBookings)
	}
	if h.Availability != nil {
		api.GET("/listings/:id/availability", h.Availability.Check)
	}
	if h.Quote != nil {
		api.GET("/quote", h.Quote.Get)
	}
	if h.Wallet != nil {
		walletGroup := api.Group("/wallet")
		walletGroup.GET("", h.Wallet.Get)
		walletGroup.POST("/cash-in", h.Wallet.CashIn)
		walletGroup.GET("/transactions", h.Wallet.Transactions)
	}
	if h.Me != nil {
		api.GET("/me/bookings", h.Me.ListBookings)
	}

	return &http.Server{Addr: cfg.HTTPAddr, Handler: router}
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}

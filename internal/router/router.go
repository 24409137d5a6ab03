package router

import (
	"context"
	"time"

	"epay/config"
	"epay/internal/handler"
	"epay/internal/middleware"
	"epay/internal/registry"
	"epay/internal/repository"
	"epay/internal/service"
	"epay/pkg/gateway"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Setup(ctx context.Context, cfg *config.Config, db *gorm.DB) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RateLimit(middleware.NewRateLimiter(ctx, 100, 60*time.Second)))

	// Repositories
	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	orderRepo := repository.NewOrderRepository(db)

	// Payment plumbing
	reg := registry.NewGorm(db)
	esewa := gateway.NewEsewa(cfg.Esewa, cfg.App.BaseURL)
	khalti := gateway.NewKhalti(cfg.Khalti, cfg.App.BaseURL)

	// Services
	mailSvc := service.NewMailService(cfg.SMTP)
	authSvc := service.NewAuthService(cfg, userRepo, tokenRepo, mailSvc)
	checkoutSvc := service.NewCheckoutService(cfg, sessionRepo, orderRepo, reg, esewa, khalti)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc)
	checkoutHandler := handler.NewCheckoutHandler(checkoutSvc)
	paymentHandler := handler.NewPaymentHandler(checkoutSvc)
	verifyHandler := handler.NewVerifyHandler(checkoutSvc, cfg.App.BaseURL)
	orderHandler := handler.NewOrderHandler(orderRepo)

	authMw := middleware.AuthRequired(&cfg.JWT)

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/signup", authHandler.Signup)
			authGroup.POST("/verify-otp", authHandler.VerifyOTP)
			authGroup.POST("/resend-otp", authHandler.ResendOTP)
			authGroup.POST("/login", authHandler.Login)
		}

		checkout := api.Group("/checkout")
		{
			checkout.GET("/session", authMw, checkoutHandler.GetSession)
			checkout.POST("/delivery", authMw, checkoutHandler.SubmitDelivery)
			checkout.POST("/initiate", authMw, paymentHandler.Initiate)
			// Gateway redirects land here without a bearer token.
			checkout.GET("/verify", verifyHandler.Verify)
		}

		api.GET("/me", authMw, authHandler.Me)
		api.GET("/me/orders", authMw, orderHandler.ListMine)
		api.GET("/me/orders/:txn", authMw, orderHandler.GetByTransaction)
	}
	return r
}

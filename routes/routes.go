package routes

import (
	"net/http"
	"time"

	"github.com/adithyan-km/PaySphere/config"
	"github.com/adithyan-km/PaySphere/controllers"
	"github.com/adithyan-km/PaySphere/middleware"
	"github.com/adithyan-km/PaySphere/services"
	"github.com/gin-gonic/gin"
)

// SetupRouter initializes and returns the Gin router with all routes
func SetupRouter(limiter *services.RateLimiter) *gin.Engine {
	router := gin.Default()

	cfg := config.App
	window := time.Duration(cfg.RateLimitWindowSecs) * time.Second

	router.GET("/v1/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/v1")
	{
		checkout := api.Group("/checkout", middleware.OptionalAuthMiddleware())
		{
			checkout.POST("/coupon/verify",
				middleware.RateLimitMiddleware(limiter, "coupon_verify", cfg.RateLimitCouponVerify, window),
				controllers.VerifyCoupon)
			checkout.POST("/quote", controllers.QuoteCharge)
			checkout.POST("/session", controllers.CreateCheckoutSession)
		}

		payments := api.Group("/payments", middleware.OptionalAuthMiddleware())
		{
			payments.POST("/confirm",
				middleware.RateLimitMiddleware(limiter, "settle", cfg.RateLimitSettle, window),
				controllers.ConfirmPayment)
		}

		api.POST("/oto/:settlementID/accept",
			middleware.OptionalAuthMiddleware(),
			middleware.RateLimitMiddleware(limiter, "settle", cfg.RateLimitSettle, window),
			controllers.AcceptOTO)

		access := api.Group("/access", middleware.AuthMiddleware())
		{
			access.GET("/:productID", controllers.CheckAccess)
			access.POST("/claim", controllers.ClaimGuestPurchases)
		}
	}

	return router
}

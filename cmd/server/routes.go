package main

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"stablepay.backend/internal/interfaces/http/handlers"
	"stablepay.backend/internal/interfaces/http/middleware"
	"stablepay.backend/pkg/redis"
)

type routeDeps struct {
	jobHandler          *handlers.PaymentJobHandler
	merchantHandler     *handlers.MerchantHandler
	productHandler      *handlers.ProductHandler
	subscriptionHandler *handlers.SubscriptionHandler
	linkHandler         *handlers.PaymentLinkHandler
}

func registerAPIV1Routes(r *gin.Engine, d routeDeps) {
	v1 := r.Group("/api/v1")
	{
		// Payment job routes
		jobs := v1.Group("/jobs")
		{
			jobs.POST("", middleware.IdempotencyMiddleware(), d.jobHandler.CreateJob)
			jobs.GET("", d.jobHandler.ListJobs)
			jobs.GET("/:id", d.jobHandler.GetJob)
			jobs.POST("/:id/confirm", d.jobHandler.Confirm)
			jobs.POST("/:id/retry", d.jobHandler.Retry)
		}

		// Quote preview (no persistence)
		v1.POST("/quotes", d.jobHandler.PreviewQuote)

		// Merchant routes
		merchants := v1.Group("/merchants")
		{
			merchants.POST("", d.merchantHandler.Register)
			merchants.GET("/slug/:slug", d.merchantHandler.GetBySlug)
			merchants.GET("/:address", d.merchantHandler.Get)
			merchants.PUT("/:address", d.merchantHandler.UpdateProfile)
			merchants.POST("/:address/slug", d.merchantHandler.ClaimSlug)

			merchants.POST("/:address/products", d.productHandler.Create)
			merchants.GET("/:address/products", d.productHandler.List)
			merchants.DELETE("/:address/products/:id", d.productHandler.Deactivate)
		}

		// Product routes (public read)
		v1.GET("/products/:id", d.productHandler.Get)

		// Subscription routes
		subscriptions := v1.Group("/subscriptions")
		{
			subscriptions.POST("", d.subscriptionHandler.Create)
			subscriptions.GET("", d.subscriptionHandler.List)
			subscriptions.GET("/:id", d.subscriptionHandler.Get)
			subscriptions.POST("/:id/authorize", d.subscriptionHandler.Authorize)
			subscriptions.POST("/:id/cancel", d.subscriptionHandler.Cancel)
		}

		// Payment link routes
		links := v1.Group("/links")
		{
			links.POST("", d.linkHandler.Create)
			links.GET("/:token", d.linkHandler.Resolve)
		}
	}
}

func registerHealthRoute(r *gin.Engine, db *sql.DB) {
	r.GET("/health", func(c *gin.Context) {
		status := gin.H{
			"status":   "ok",
			"database": "ok",
			"redis":    "ok",
		}
		code := http.StatusOK

		if err := db.Ping(); err != nil {
			status["database"] = "unavailable"
			status["status"] = "degraded"
			code = http.StatusServiceUnavailable
		}
		if client := redis.GetClient(); client != nil {
			if err := client.Ping(c.Request.Context()).Err(); err != nil {
				status["redis"] = "unavailable"
				status["status"] = "degraded"
				code = http.StatusServiceUnavailable
			}
		}

		c.JSON(code, status)
	})
}

func registerMetricsRoute(r *gin.Engine) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

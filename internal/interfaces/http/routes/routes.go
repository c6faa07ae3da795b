// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/interfaces/http/handlers"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// SetupRoutes wires every route group under the API prefix
func SetupRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	SetupProductRoutes(rg, db, cfg)
	SetupCartRoutes(rg, redisClient, cfg)
	SetupCheckoutRoutes(rg, db, cfg)
	SetupCouponRoutes(rg, db, cfg)
	SetupOrderRoutes(rg, db, cfg)
	SetupPaymentRoutes(rg, db, cfg)
	SetupAdminRoutes(rg, db, cfg)
}

// SetupProductRoutes sets up public catalog routes
func SetupProductRoutes(rg *gin.RouterGroup, db *gorm.DB, cfg *config.Config) {
	productHandler := handlers.NewProductHandler(db, cfg)

	products := rg.Group("/products")
	{
		products.GET("", productHandler.GetProducts)
		products.GET("/:id", productHandler.GetProduct)
		products.GET("/slug/:slug", productHandler.GetProductBySlug)
	}
}

// SetupCartRoutes sets up guest cart routes keyed by X-Session-ID
func SetupCartRoutes(rg *gin.RouterGroup, redisClient *redis.Client, cfg *config.Config) {
	cartHandler := handlers.NewCartHandler(redisClient, cfg)

	cart := rg.Group("/cart")
	{
		cart.GET("", cartHandler.GetCart)
		cart.DELETE("", cartHandler.ClearCart)
		cart.POST("/items", cartHandler.AddItem)
		cart.PUT("/items/:itemId", cartHandler.UpdateItem)
		cart.DELETE("/items/:itemId", cartHandler.RemoveItem)
	}
}

// SetupCheckoutRoutes sets up the pricing quote endpoint
func SetupCheckoutRoutes(rg *gin.RouterGroup, db *gorm.DB, cfg *config.Config) {
	checkoutHandler := handlers.NewCheckoutHandler(db, cfg)

	checkout := rg.Group("/checkout")
	{
		checkout.POST("/price", checkoutHandler.PriceCart)
	}
}

// SetupCouponRoutes sets up the public coupon pre-check
func SetupCouponRoutes(rg *gin.RouterGroup, db *gorm.DB, cfg *config.Config) {
	couponHandler := handlers.NewCouponHandler(db, cfg)

	coupons := rg.Group("/coupons")
	{
		coupons.POST("/validate", couponHandler.ValidateCoupon)
	}
}

// SetupOrderRoutes sets up customer order routes. Auth is optional so guests
// can check out and look up their orders by id or number.
func SetupOrderRoutes(rg *gin.RouterGroup, db *gorm.DB, cfg *config.Config) {
	orderHandler := handlers.NewOrderHandler(db, cfg)
	invoiceHandler := handlers.NewInvoiceHandler(db, cfg)

	orders := rg.Group("/orders")
	orders.Use(middleware.OptionalAuthMiddleware(cfg))
	{
		orders.POST("", orderHandler.CreateOrder)
		orders.GET("/:id", orderHandler.GetOrder)
		orders.GET("/:id/invoice", invoiceHandler.GetInvoice)
		orders.GET("/number/:orderNumber", orderHandler.GetOrderByNumber)
	}

	mine := rg.Group("/my/orders")
	mine.Use(middleware.AuthMiddleware(cfg))
	{
		mine.GET("", orderHandler.GetMyOrders)
	}
}

// SetupPaymentRoutes sets up prepaid checkout and reconciliation routes. The
// webhook endpoint authenticates with its own HMAC, never with a session.
func SetupPaymentRoutes(rg *gin.RouterGroup, db *gorm.DB, cfg *config.Config) {
	paymentHandler := handlers.NewPaymentHandler(db, cfg)

	payments := rg.Group("/payments")
	{
		payments.POST("/webhook", paymentHandler.Webhook)

		checkout := payments.Group("")
		checkout.Use(middleware.OptionalAuthMiddleware(cfg))
		{
			checkout.POST("/initiate", paymentHandler.InitiatePayment)
			checkout.POST("/verify", paymentHandler.VerifyPayment)
			checkout.POST("/failure", paymentHandler.PaymentFailure)
		}
	}
}

// SetupAdminRoutes sets up the back-office routes
func SetupAdminRoutes(rg *gin.RouterGroup, db *gorm.DB, cfg *config.Config) {
	authHandler := handlers.NewAuthHandler(cfg)
	couponHandler := handlers.NewCouponHandler(db, cfg)
	orderHandler := handlers.NewOrderHandler(db, cfg)

	admin := rg.Group("/admin")
	{
		admin.POST("/login", authHandler.Login)

		protected := admin.Group("")
		protected.Use(middleware.AuthMiddleware(cfg))
		protected.Use(middleware.AdminMiddleware())
		{
			protected.GET("/orders", orderHandler.AdminGetOrders)
			protected.PUT("/orders/:id/status", orderHandler.UpdateOrderStatus)

			protected.POST("/coupons", couponHandler.CreateCoupon)
			protected.GET("/coupons", couponHandler.GetCoupons)
			protected.GET("/coupons/:id", couponHandler.GetCoupon)
			protected.PUT("/coupons/:id", couponHandler.UpdateCoupon)
			protected.DELETE("/coupons/:id", couponHandler.DeleteCoupon)
		}
	}
}

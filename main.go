// main.go

package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type app struct {
	cfg       config
	infoLog   *log.Logger
	errorLog  *log.Logger
	store     Store
	otp       *otpService
	mailer    Mailer
	adminAuth adminAuthenticator
}

func main() {
	cfg := loadConfig()

	infoLog := log.New(os.Stdout, "INFO\t", log.Ldate|log.Ltime)
	errorLog := log.New(os.Stderr, "ERROR\t", log.Ldate|log.Ltime|log.Lshortfile)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		errorLog.Fatal(err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		errorLog.Fatal(err)
	}
	infoLog.Println("Connected to MongoDB")

	db := client.Database(cfg.DBName)
	store := newMongoStore(db)
	if err := store.ensureIndexes(ctx); err != nil {
		errorLog.Fatal(err)
	}

	var mailer Mailer
	if cfg.BrevoAPIKey != "" {
		mailer = newBrevoMailer(cfg.BrevoAPIKey, cfg.EmailFrom)
	} else {
		infoLog.Println("BREVO_API_KEY not set, logging OTP codes instead")
		mailer = &logMailer{log: infoLog}
	}

	a := &app{
		cfg:       cfg,
		infoLog:   infoLog,
		errorLog:  errorLog,
		store:     store,
		otp:       newOTPService(&mongoChallengeStore{col: store.challenges}),
		mailer:    mailer,
		adminAuth: staticAdminCredentials{email: cfg.AdminEmail, password: cfg.AdminPassword},
	}

	infoLog.Printf("Starting EYES backend on %s", cfg.Addr)
	if err := a.router().Run(cfg.Addr); err != nil {
		errorLog.Fatal(err)
	}
}

func (a *app) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), a.requestLogger())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     a.cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	api := r.Group("/api")

	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK", "timestamp": time.Now().Format(time.RFC3339)})
	})

	// Auth handshake
	api.POST("/signup", a.signup)
	api.POST("/login", a.login)
	api.POST("/resend-otp", a.resendOTP)
	api.POST("/verify-otp", a.verifyOTP)
	api.POST("/admin/login", a.adminLogin)

	// Public catalog
	api.GET("/products", a.listProducts)
	api.GET("/products/:id", a.getProduct)
	api.GET("/reviews/:productId", a.getReviews)

	auth := api.Group("", a.authRequired)
	{
		auth.GET("/user/profile", a.getProfile)
		auth.PUT("/user/profile", a.updateProfile)

		auth.GET("/cart", a.getCart)
		auth.POST("/cart", a.addToCart)
		auth.PUT("/cart/:productId", a.updateCartItem)
		auth.DELETE("/cart/:productId", a.removeCartItem)
		auth.DELETE("/cart", a.clearCart)

		auth.POST("/checkout", a.checkout)
		auth.GET("/orders", a.getOrders)
		auth.GET("/orders/:id", a.getOrder)

		auth.POST("/reviews", a.submitReview)
	}

	admin := api.Group("/admin", a.authRequired, a.adminRequired)
	{
		admin.POST("/products", a.createProduct)
		admin.PUT("/products/:id", a.updateProduct)
		admin.DELETE("/products/:id", a.deleteProduct)
		admin.GET("/orders", a.listAllOrders)
		admin.PUT("/orders/:id/status", a.updateOrderStatus)
		admin.GET("/users", a.listUsers)
	}

	return r
}

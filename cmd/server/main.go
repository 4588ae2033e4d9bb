package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"recordbook_app_echo/internal/handlers"
	appMiddleware "recordbook_app_echo/internal/middleware"
	"recordbook_app_echo/internal/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	// Initialize Firebase
	credPath := os.Getenv("FIREBASE_CREDENTIALS_PATH")
	if credPath == "" {
		credPath = "./firebase-service-account.json"
	}

	authClient, err := services.InitFirebase(context.Background(), credPath)
	if err != nil {
		log.Printf("Warning: Firebase initialization failed: %v", err)
		log.Println("Auth features will not work until valid credentials are provided")
	}

	// Initialize Database
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := services.InitDB(databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run auto-migration
	if err := services.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	// Initialize Redis cache
	cache, err := services.NewRedisCache(os.Getenv("REDIS_URL"))
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer cache.Close()

	// Payment stack
	midtransClient := services.NewMidtransService()
	paymentService := services.NewPaymentService(db, midtransClient)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = appMiddleware.CustomErrorHandler

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authClient, db)
	dashboardHandler := handlers.NewDashboardHandler(db, cache)
	customerHandler := handlers.NewCustomerHandler(db, cache)
	recordHandler := handlers.NewRecordHandler(db, cache)
	financeHandler := handlers.NewFinanceHandler(db, cache)
	publicHandler := handlers.NewPublicHandler(db, cache, midtransClient, paymentService)

	// Public routes
	e.GET("/auth/config", authHandler.AuthConfig)
	e.POST("/auth/login", authHandler.HandleLogin)
	e.POST("/auth/logout", authHandler.HandleLogout)

	// Customer-facing share links and payment callbacks
	e.GET("/p/records/:token", publicHandler.ShowRecord)
	e.POST("/p/records/:token/pay", publicHandler.InitiatePayment)
	e.GET("/p/records/:token/session", publicHandler.CheckActiveSession)
	e.POST("/p/payments/midtrans/notification", publicHandler.HandlePaymentNotification)

	// Protected API routes
	api := e.Group("/api")
	api.Use(appMiddleware.RequireAuth(authClient))

	api.GET("/profile", authHandler.Profile)
	api.GET("/dashboard", dashboardHandler.Dashboard)

	// Customer routes
	api.GET("/customers", customerHandler.ListCustomers)
	api.POST("/customers", customerHandler.CreateCustomer)
	api.GET("/customers/:id", customerHandler.GetCustomer)
	api.PUT("/customers/:id", customerHandler.UpdateCustomer)
	api.DELETE("/customers/:id", customerHandler.DeleteCustomer)

	// Record routes
	api.GET("/records", recordHandler.ListRecords)
	api.POST("/records", recordHandler.CreateRecord)
	api.GET("/records/:id", recordHandler.GetRecord)
	api.PUT("/records/:id", recordHandler.UpdateRecord)
	api.DELETE("/records/:id", recordHandler.DeleteRecord)
	api.POST("/records/:id/activate", recordHandler.ActivateRecord)
	api.POST("/records/:id/pay", recordHandler.PayInstallment)
	api.POST("/records/:id/settle", recordHandler.SettleRecord)
	api.POST("/records/:id/undo-settlement", recordHandler.UndoSettlement)
	api.POST("/records/:id/adjust", recordHandler.AdjustRecord)

	// Finance routes
	api.GET("/finance/ledger", financeHandler.GetLedger)
	api.PUT("/finance/opening-balance", financeHandler.UpdateOpeningBalance)
	api.GET("/finance/partner-transactions", financeHandler.ListPartnerTransactions)
	api.POST("/finance/partner-transactions", financeHandler.CreatePartnerTransaction)
	api.DELETE("/finance/partner-transactions/:id", financeHandler.DeletePartnerTransaction)
	api.GET("/finance/expenses", financeHandler.ListExpenses)
	api.POST("/finance/expenses", financeHandler.CreateExpense)
	api.DELETE("/finance/expenses/:id", financeHandler.DeleteExpense)
	api.GET("/finance/journal-entries", financeHandler.ListJournalEntries)
	api.POST("/finance/journal-entries", financeHandler.CreateJournalEntry)
	api.DELETE("/finance/journal-entries/:id", financeHandler.DeleteJournalEntry)

	// Start server with graceful shutdown
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	go func() {
		log.Printf("Server starting on port %s", port)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("Shutdown error: %v", err)
	}
}

package main

import (
	"context"
	"time"

	_ "crm-backend/api/swagger" // swagger docs
	"crm-backend/internal/config"
	"crm-backend/internal/database"
	"crm-backend/internal/handler"
	"crm-backend/internal/middleware"
	"crm-backend/internal/repository"
	"crm-backend/internal/service"
	"crm-backend/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Sales CRM API
// @version         1.0
// @description     REST API for clients, quotations, discount approvals and payments.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		logrus.Info("no configs/.env file found, using environment")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	db, err := database.NewConnection(cfg.PostgresDSN())
	if err != nil {
		logrus.WithError(err).Fatal("database connection failed")
	}
	logrus.Info("connected to PostgreSQL")

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})

	// WebSocket hub for approval event pushes
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Permission cache backed by the roles tables
	middleware.InitPermissionMiddleware(db)

	// Repositories
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	clientRepo := repository.NewClientRepository(db)
	quotationRepo := repository.NewQuotationRepository(db)
	taxRuleRepo := repository.NewTaxRuleRepository(db)
	approvalRepo := repository.NewApprovalRepository(db)
	timelineRepo := repository.NewTimelineRepository(db)
	metricsRepo := repository.NewApprovalMetricsRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	statsRepo := repository.NewSalesStatsRepository(db)
	txManager := repository.NewTransactionManager(db)

	// Services
	userService := service.NewUserService(userRepo)
	roleService := service.NewRoleService(roleRepo, txManager)
	clientService := service.NewClientService(clientRepo, auditRepo, txManager)
	taxService := service.NewTaxService(taxRuleRepo, auditRepo)
	settingsService := service.NewSettingsService(settingsRepo, auditRepo)
	notifier := service.NewApprovalNotifier(notificationRepo, userRepo, wsHub)
	quotationService := service.NewQuotationService(db, quotationRepo, clientRepo, taxRuleRepo, approvalRepo, auditRepo, txManager, settingsService)
	approvalService := service.NewApprovalService(db, approvalRepo, timelineRepo, auditRepo, txManager, settingsService, notifier, quotationService)
	metricsService := service.NewApprovalMetricsService(metricsRepo, timelineRepo)
	paymentService := service.NewPaymentService(paymentRepo, quotationRepo, auditRepo, txManager)
	notificationService := service.NewNotificationService(notificationRepo)
	salesStatsService := service.NewSalesStatsService(statsRepo)
	auditService := service.NewAuditService(auditRepo)

	seedDefaults(roleService, settingsService, cfg)

	// Write endpoints that mutate approval state accept an Idempotency-Key header
	idempotency := middleware.Idempotency(rdb, time.Duration(cfg.IdempTTLSecs)*time.Second)

	// Handlers
	userHandler := handler.NewUserHandler(userService)
	roleHandler := handler.NewRoleHandler(roleService)
	clientHandler := handler.NewClientHandler(clientService)
	quotationHandler := handler.NewQuotationHandler(quotationService, approvalService, idempotency)
	taxHandler := handler.NewTaxHandler(taxService)
	approvalHandler := handler.NewApprovalHandler(approvalService, metricsService, idempotency)
	settingsHandler := handler.NewSettingsHandler(settingsService)
	paymentHandler := handler.NewPaymentHandler(paymentService, idempotency)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	statisticsHandler := handler.NewStatisticsHandler(salesStatsService)
	auditHandler := handler.NewAuditHandler(auditService)

	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:5174"}
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "Idempotency-Key"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	root := router.Group("")
	userHandler.RegisterRoutes(root)
	roleHandler.RegisterRoutes(root)
	clientHandler.RegisterRoutes(root)
	quotationHandler.RegisterRoutes(root)
	taxHandler.RegisterRoutes(root)
	approvalHandler.RegisterRoutes(root)
	settingsHandler.RegisterRoutes(root)
	paymentHandler.RegisterRoutes(root)
	notificationHandler.RegisterRoutes(root)
	statisticsHandler.RegisterRoutes(root)
	auditHandler.RegisterRoutes(root)

	logrus.WithField("port", cfg.AppPort).Info("server listening")
	if err := router.Run(":" + cfg.AppPort); err != nil {
		logrus.WithError(err).Fatal("server failed")
	}
}

// seedDefaults makes sure the roles/permissions catalog and the approval
// thresholds exist before the first request.
func seedDefaults(roleService service.RoleService, settingsService service.SettingsService, cfg *config.Config) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := roleService.SeedDefaultRolesAndPermissions(ctx); err != nil {
		logrus.WithError(err).Warn("failed to seed roles and permissions")
	}

	manager, err := decimal.NewFromString(cfg.DefaultManagerThreshold)
	if err != nil {
		logrus.WithError(err).Warn("invalid APPROVAL_MANAGER_THRESHOLD, using 10")
		manager = decimal.NewFromInt(10)
	}
	admin, err := decimal.NewFromString(cfg.DefaultAdminThreshold)
	if err != nil {
		logrus.WithError(err).Warn("invalid APPROVAL_ADMIN_THRESHOLD, using 25")
		admin = decimal.NewFromInt(25)
	}
	if err := settingsService.Seed(ctx, manager, admin); err != nil {
		logrus.WithError(err).Warn("failed to seed approval settings")
	}
}

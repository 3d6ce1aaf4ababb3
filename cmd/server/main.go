package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"shortlink-platform/internal/cache"
	"shortlink-platform/internal/config"
	"shortlink-platform/internal/handler"
	"shortlink-platform/internal/middleware"
	"shortlink-platform/internal/model"
	"shortlink-platform/internal/service"
	"shortlink-platform/internal/store"
	"shortlink-platform/internal/tracker"
	"shortlink-platform/pkg/database"
	auth "shortlink-platform/pkg/jwt"
	"shortlink-platform/pkg/logger"
	"shortlink-platform/pkg/redis"

	_ "shortlink-platform/docs"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title 短链接平台 API
// @version 1.0
// @description 短链接创建、重定向与点击统计服务
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

func main() {
	logger.InitLogger()
	defer func() {
		if err := logger.Logger.Sync(); err != nil {
			fmt.Println("日志同步失败:", err)
		}
	}()
	sugaredLogger := zap.S()

	// .env 存在时加载，给配置提供环境变量覆盖
	_ = godotenv.Load()

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		sugaredLogger.Fatalf("配置加载失败: %v", err)
	}

	db, err := database.InitMySQL(cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password, cfg.Database.Name)
	if err != nil {
		sugaredLogger.Fatalf("数据库初始化失败: %v", err)
	}
	sugaredLogger.Info("✅ 数据库连接成功")

	err = db.AutoMigrate(&model.User{}, &model.ShortLink{}, &model.ClickEvent{})
	if err != nil {
		sugaredLogger.Fatalf("数据库迁移失败: %v", err)
	}
	sugaredLogger.Info("✅ 数据库迁移成功")

	cacheTTL := time.Duration(cfg.Cache.TTLSeconds) * time.Second
	var linkCache cache.Cache
	rdb, err := redis.NewRedisClient(&redis.Options{
		Host: cfg.Cache.Host, Port: cfg.Cache.Port, Password: cfg.Cache.Password, DB: cfg.Cache.DB,
	})
	if err != nil {
		sugaredLogger.Warnf("缓存连接失败，降级为进程内缓存: %v", err)
	}
	if rdb != nil {
		defer func() {
			if err := rdb.Close(); err != nil {
				sugaredLogger.Errorf("关闭 Redis 连接失败: %v", err)
			}
		}()
		linkCache = cache.NewRedis(rdb, cacheTTL, sugaredLogger)
		sugaredLogger.Info("✅ 缓存连接成功")
	} else {
		linkCache = cache.NewMemory(cacheTTL)
		sugaredLogger.Info("✅ 进程内缓存已启用")
	}

	linkStore := store.New(db, sugaredLogger)

	// 点击追踪在后台 worker 中落库，重定向路径从不等待它
	clickTracker := tracker.New(linkStore, cfg.Tracker.Workers, cfg.Tracker.QueueSize, sugaredLogger)
	clickTracker.Start()
	defer clickTracker.Stop()
	sugaredLogger.Info("✅ 点击追踪器已启动")

	linkService := service.New(linkStore, linkCache, clickTracker, service.Options{
		BaseURL:        cfg.App.BaseURL,
		CodeLength:     cfg.ShortCode.Length,
		CodeMaxRetries: cfg.ShortCode.MaxRetries,
	}, sugaredLogger)

	tokenManager := auth.NewManager(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.ExpirationHours)
	sugaredLogger.Info("✅ 认证管理器初始化成功")

	if cfg.App.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.GinZapRecovery(logger.Logger, true))
	router.Use(middleware.GinZapLogger(logger.Logger))

	router.LoadHTMLGlob("web/templates/*")
	router.Static("/static", "./web/static")

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	authMiddleware := middleware.AuthMiddleware(tokenManager)
	rateLimitMiddleware := middleware.RateLimit(&cfg.RateLimit)
	router.Use(rateLimitMiddleware)

	urlHandler := handler.NewShortLinkHandler(linkService)
	authHandler := handler.NewAuthHandler(db, tokenManager)

	registerRoutes(router, urlHandler, authHandler, authMiddleware)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	sugaredLogger.Infof("🚀 服务启动成功, 访问 http://localhost:%d", cfg.Server.Port)
	sugaredLogger.Infof("📚 Swagger 文档地址: http://localhost:%d/swagger/index.html", cfg.Server.Port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		sugaredLogger.Fatalf("服务启动失败: %v", err)
	}
}

func registerRoutes(
	router *gin.Engine,
	urlHandler *handler.ShortLinkHandler,
	authHandler *handler.AuthHandler,
	authMiddleware gin.HandlerFunc,
) {
	router.GET("/", urlHandler.IndexPage)
	router.GET("/health", urlHandler.HealthCheck)

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	api := router.Group("/api")
	api.Use(authMiddleware)
	{
		api.GET("/me", authHandler.GetCurrentUser)
	}

	url := router.Group("/url")
	{
		// 公开的重定向入口
		url.GET("/:shortCode", urlHandler.RedirectToOriginal)

		authed := url.Group("")
		authed.Use(authMiddleware)
		{
			authed.POST("/shorten", urlHandler.CreateShortLink)
			authed.GET("/urls", urlHandler.GetUserLinks)
			authed.GET("/analytics/:shortCode", urlHandler.GetAnalytics)
			authed.DELETE("/delete/:id", urlHandler.DeleteLink)
		}
	}
}

package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"menufolio/internal/api/middleware"
	"menufolio/internal/auth"
	"menufolio/internal/config"
	"menufolio/internal/storage"
	"menufolio/internal/store"
)

// RegisterRoutes 注册 API 路由，不包含 /api 前缀。
func RegisterRoutes(
	router *gin.Engine,
	cfg *config.Config,
	db *gorm.DB,
	authService *auth.AuthService,
	redisClient *redis.Client,
	logger *slog.Logger,
	storageClient storage.ObjectStore,
) {
	users := store.NewUserStore(db)
	menus := store.NewMenuStore(db)
	resumes := store.NewResumeStore(db)

	authHandler := NewAuthHandler(users, authService, redisClient, logger,
		cfg.Auth.LoginRateLimitPerHour, cfg.Auth.LoginLockThreshold, cfg.Auth.LoginLockTTL)
	menuHandler := NewMenuHandler(menus, logger)
	resumeHandler := NewResumeHandler(resumes, logger)
	assetHandler := NewAssetHandler(storageClient, logger, cfg.Upload.ClamdAddr, cfg.Upload.MaxImageBytes)

	authMiddleware := middleware.AuthMiddleware(authService, users)
	imageToBody := middleware.ImageToBody(cfg.Upload.MaxImageBytes)

	v1 := router.Group("/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/signup", middleware.ValidateRequest(signupSchema()), authHandler.Signup)
			authGroup.POST("/login", middleware.ValidateRequest(loginSchema()), authHandler.Login)
			authGroup.POST("/token", middleware.ValidateRequest(loginSchema()), authHandler.Token)
			authGroup.GET("/me", authMiddleware, authHandler.Me)
		}

		menuGroup := v1.Group("/menus")
		menuGroup.Use(authMiddleware)
		{
			menuGroup.POST("", imageToBody, middleware.ValidateRequest(menuSchema(true, cfg.Upload.MaxImageBytes)), menuHandler.CreateMenu)
			menuGroup.GET("", menuHandler.ListMenus)
			menuGroup.GET("/:id", menuHandler.GetMenu)
			menuGroup.PUT("/:id", imageToBody, middleware.ValidateRequest(menuSchema(false, cfg.Upload.MaxImageBytes)), menuHandler.UpdateMenu)
			menuGroup.DELETE("/:id", menuHandler.DeleteMenu)
		}

		resumeGroup := v1.Group("/resumes")
		resumeGroup.Use(authMiddleware)
		{
			resumeGroup.POST("", middleware.ValidateRequest(resumeSchema()), resumeHandler.CreateResume)
			resumeGroup.GET("", resumeHandler.ListResumes)
			resumeGroup.GET("/:id", resumeHandler.GetResume)
			resumeGroup.PUT("/:id", middleware.ValidateRequest(resumeSchema()), resumeHandler.UpdateResume)
			resumeGroup.DELETE("/:id", resumeHandler.DeleteResume)
		}

		assetGroup := v1.Group("/assets")
		assetGroup.Use(authMiddleware)
		{
			assetGroup.POST("/upload", assetHandler.UploadAsset)
			assetGroup.GET("", assetHandler.ListAssets)
			assetGroup.GET("/view", assetHandler.GetAssetURL)
			assetGroup.DELETE("", assetHandler.DeleteAsset)
		}
	}
}

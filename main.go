package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/TIANLI0/MarkerKit/config"
	"github.com/TIANLI0/MarkerKit/handler"
	"github.com/TIANLI0/MarkerKit/middleware"
	"github.com/TIANLI0/MarkerKit/service"
	"github.com/TIANLI0/MarkerKit/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	BuildID   = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

func main() {
	// 加载配置
	cfg := config.New()

	// 初始化日志
	if err := utils.InitLogger(cfg.Server.Mode); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer utils.Sync()

	utils.Logger.Info("starting MarkerKit server",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
		zap.String("git_branch", GitBranch))

	// 确保产物目录存在
	for _, dir := range []string{cfg.Pipeline.PatternDir, cfg.Pipeline.TargetDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			utils.Logger.Fatal("failed to create artifact directory",
				zap.String("dir", dir), zap.Error(err))
		}
	}

	// 初始化Redis
	redisService := service.NewRedisService(&cfg.Redis)
	ctx := context.Background()
	if err := redisService.Ping(ctx); err != nil {
		utils.Logger.Warn("redis connection failed, cache disabled", zap.Error(err))
	} else {
		utils.Logger.Info("redis connected successfully")
	}
	defer redisService.Close()

	// 初始化管线服务
	pipelineService := service.NewPipelineService(&cfg.Pipeline)

	// 初始化Handler
	uploadHandler := handler.NewUploadHandler(cfg, redisService, pipelineService)

	// 设置Gin模式
	gin.SetMode(cfg.Server.Mode)

	// 创建路由
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS())

	// 静态文件服务：产物按 <请求ID>.<扩展名> 直接回源
	r.Static("/patterns", cfg.Pipeline.PatternDir)
	r.Static("/targets", cfg.Pipeline.TargetDir)
	r.Static("/static", "./static")
	r.StaticFile("/", "./static/index.html")

	// 健康检查和版本信息
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "ok",
			"version":   Version,
			"timestamp": time.Now().Unix(),
		})
	})

	r.GET("/version", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"build_id":   BuildID,
			"git_commit": GitCommit,
			"git_branch": GitBranch,
		})
	})

	// API路由
	api := r.Group("/api/v1")
	{
		api.POST("/upload", uploadHandler.Upload)
		api.GET("/marker/:md5", uploadHandler.GetByMD5)
	}

	// 启动服务器
	utils.Logger.Info("server starting",
		zap.String("port", cfg.Server.Port),
		zap.String("fit_mode", cfg.Pipeline.FitMode),
		zap.String("pattern_backend", cfg.Pipeline.PatternBackend))
	if err := r.Run(cfg.Server.Port); err != nil {
		utils.Logger.Fatal("failed to start server", zap.Error(err))
	}
}

package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/TIANLI0/MarkerKit/config"
	"github.com/TIANLI0/MarkerKit/model"
	"github.com/TIANLI0/MarkerKit/service"
	"github.com/TIANLI0/MarkerKit/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 扩展名与声明的MIME必须同时合法且互相一致
var extContentTypes = map[string][]string{
	".jpg":  {"image/jpeg", "image/jpg"},
	".jpeg": {"image/jpeg", "image/jpg"},
	".png":  {"image/png"},
}

type UploadHandler struct {
	cfg             *config.Config
	redisService    *service.RedisService
	pipelineService *service.PipelineService
}

func NewUploadHandler(cfg *config.Config, redis *service.RedisService, pipeline *service.PipelineService) *UploadHandler {
	return &UploadHandler{
		cfg:             cfg,
		redisService:    redis,
		pipelineService: pipeline,
	}
}

// Upload 处理图片上传并生成标记产物
func (h *UploadHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		utils.Logger.Error("failed to get uploaded file", zap.Error(err))
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "请上传图片文件",
			Error:   err.Error(),
		})
		return
	}

	// 验证文件大小
	if file.Size > h.cfg.Upload.MaxSize {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: fmt.Sprintf("文件大小超过限制 (%d MB)", h.cfg.Upload.MaxSize/(1024*1024)),
		})
		return
	}

	// 验证文件类型（扩展名与MIME需一致，在解码前拒绝）
	ext := strings.ToLower(filepath.Ext(file.Filename))
	contentType := file.Header.Get("Content-Type")
	if !h.isAllowedType(ext, contentType) {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "不支持的文件类型，仅支持 JPEG/PNG",
		})
		return
	}

	// 读入内存，原始上传不落盘
	src, err := file.Open()
	if err != nil {
		utils.Logger.Error("failed to open uploaded file", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Success: false,
			Message: "读取上传文件失败",
			Error:   err.Error(),
		})
		return
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		utils.Logger.Error("failed to read uploaded file", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Success: false,
			Message: "读取上传文件失败",
			Error:   err.Error(),
		})
		return
	}

	md5 := utils.BytesMD5(data)

	utils.Logger.Info("file uploaded",
		zap.String("filename", file.Filename),
		zap.String("md5", md5),
		zap.Int64("size", file.Size))

	// 检查缓存：相同字节重复上传直接复用已有产物
	ctx := context.Background()
	cachedResult, err := h.redisService.GetMarkerResult(ctx, md5)
	if err != nil {
		utils.Logger.Warn("failed to get cache", zap.Error(err))
	}

	if cachedResult != nil {
		utils.Logger.Info("cache hit", zap.String("md5", md5))
		c.JSON(http.StatusOK, model.UploadResponse{
			Success: true,
			Message: "生成成功（来自缓存）",
			Data:    cachedResult,
		})
		return
	}

	// 执行管线
	result, err := h.pipelineService.Process(c.Request.Context(), data, md5)
	if err != nil {
		utils.Logger.Error("failed to process image", zap.Error(err))
		status := http.StatusInternalServerError
		message := "标记生成失败"
		if errors.Is(err, service.ErrInvalidImage) || errors.Is(err, service.ErrImageTooSmall) {
			status = http.StatusBadRequest
			message = "图片无效或尺寸过小"
		}
		c.JSON(status, model.ErrorResponse{
			Success: false,
			Message: message,
			Error:   err.Error(),
		})
		return
	}

	// 保存到缓存
	if err := h.redisService.SetMarkerResult(ctx, md5, result); err != nil {
		utils.Logger.Warn("failed to set cache", zap.Error(err))
	}

	c.JSON(http.StatusOK, model.UploadResponse{
		Success: true,
		Message: "生成成功",
		Data:    result,
	})
}

// GetByMD5 根据MD5获取已生成的标记信息
func (h *UploadHandler) GetByMD5(c *gin.Context) {
	md5 := c.Param("md5")
	if md5 == "" {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "MD5参数缺失",
		})
		return
	}

	ctx := context.Background()
	result, err := h.redisService.GetMarkerResult(ctx, md5)
	if err != nil {
		utils.Logger.Error("failed to get marker result", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Success: false,
			Message: "查询失败",
			Error:   err.Error(),
		})
		return
	}

	if result == nil {
		c.JSON(http.StatusNotFound, model.ErrorResponse{
			Success: false,
			Message: "未找到该图片的标记信息",
		})
		return
	}

	c.JSON(http.StatusOK, model.UploadResponse{
		Success: true,
		Message: "查询成功",
		Data:    result,
	})
}

func (h *UploadHandler) isAllowedType(ext, contentType string) bool {
	allowed := false
	for _, t := range h.cfg.Upload.AllowedTypes {
		if strings.EqualFold(contentType, t) {
			allowed = true
			break
		}
	}
	if !allowed {
		return false
	}

	types, ok := extContentTypes[ext]
	if !ok {
		return false
	}
	for _, t := range types {
		if strings.EqualFold(contentType, t) {
			return true
		}
	}
	return false
}

package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/TIANLI0/MarkerKit/config"
	"github.com/TIANLI0/MarkerKit/model"
	"github.com/TIANLI0/MarkerKit/utils"
	"go.uber.org/zap"
)

// PipelineService 负责完整的标记生成管线：
// 上传字节 → 归一化工作图 → {图案产物, target 图产物}
//
// 每个请求独立执行，缓冲区请求级私有；管线内无共享可变状态，
// 并发仅由信号量限流
type PipelineService struct {
	cfg          *config.PipelineConfig
	resampler    *Resampler
	pattern      *PatternWriter
	compositor   *Compositor
	semaphore    chan struct{}
	queueTimeout time.Duration
}

func NewPipelineService(cfg *config.PipelineConfig) *PipelineService {
	return &PipelineService{
		cfg:          cfg,
		resampler:    NewResampler(cfg),
		pattern:      NewPatternWriter(cfg),
		compositor:   NewCompositor(cfg),
		semaphore:    make(chan struct{}, cfg.MaxConcurrent),
		queueTimeout: time.Duration(cfg.QueueTimeout) * time.Second,
	}
}

// Process 执行管线并返回标记结果
//
// 两个产物共用同一请求ID；若第二个产物写入前请求已取消或失败，
// 第一个产物会被清理，不留孤儿文件
func (s *PipelineService) Process(ctx context.Context, data []byte, md5 string) (*model.MarkerResult, error) {
	// 并发控制
	queueCtx, cancel := context.WithTimeout(ctx, s.queueTimeout)
	defer cancel()

	select {
	case s.semaphore <- struct{}{}:
		defer func() { <-s.semaphore }()
	case <-queueCtx.Done():
		return nil, fmt.Errorf("处理队列已满，请稍后重试")
	}

	startTime := time.Now()

	working, width, height, err := s.resampler.Resample(data)
	if err != nil {
		return nil, err
	}

	utils.Logger.Info("image resampled",
		zap.String("md5", md5),
		zap.Int("width", width),
		zap.Int("height", height),
		zap.String("fit_mode", s.cfg.FitMode),
		zap.Int("working_size", s.cfg.WorkingSize))

	id := utils.NewRequestID()

	patternFile, err := s.pattern.Write(ctx, working, id)
	if err != nil {
		return nil, fmt.Errorf("pattern artifact: %w", err)
	}

	// 两次写入之间检查取消，避免只写出一半产物
	if err := ctx.Err(); err != nil {
		s.discard(patternFile)
		return nil, err
	}

	targetData, targetExt, err := s.compositor.Compose(working)
	if err != nil {
		s.discard(patternFile)
		return nil, fmt.Errorf("target artifact: %w", err)
	}

	targetFile := id + targetExt
	if err := os.WriteFile(filepath.Join(s.cfg.TargetDir, targetFile), targetData, 0644); err != nil {
		s.discard(patternFile)
		return nil, fmt.Errorf("write target artifact: %w", err)
	}

	result := &model.MarkerResult{
		ID:         id,
		MD5:        md5,
		Width:      width,
		Height:     height,
		PatternURL: "/patterns/" + patternFile,
		TargetURL:  "/targets/" + targetFile,
		Timestamp:  time.Now().Unix(),
	}

	utils.Logger.Info("marker generated",
		zap.String("id", id),
		zap.String("md5", md5),
		zap.String("pattern", patternFile),
		zap.String("target", targetFile),
		zap.Duration("duration", time.Since(startTime)))

	return result, nil
}

// discard 清理已写出的图案产物
func (s *PipelineService) discard(patternFile string) {
	path := filepath.Join(s.cfg.PatternDir, patternFile)
	if err := os.Remove(path); err != nil {
		utils.Logger.Warn("failed to remove partial artifact",
			zap.String("file", path),
			zap.Error(err))
	}
}

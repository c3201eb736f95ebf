package service

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/TIANLI0/MarkerKit/config"
	"github.com/disintegration/imaging"
)

var (
	// ErrInvalidImage 图片无法解码（格式错误或数据损坏）
	ErrInvalidImage = errors.New("invalid image data")
	// ErrImageTooSmall 图片尺寸低于最小可用尺寸
	ErrImageTooSmall = errors.New("image below minimum dimension")
)

// Resampler 负责将任意尺寸的上传图片归一化为固定分辨率的方形工作图
type Resampler struct {
	fitMode      string
	workingSize  int
	minDimension int
}

func NewResampler(cfg *config.PipelineConfig) *Resampler {
	return &Resampler{
		fitMode:      cfg.FitMode,
		workingSize:  cfg.WorkingSize,
		minDimension: cfg.MinDimension,
	}
}

// Resample 解码并按 fit_mode 缩放到工作分辨率
//
// 返回工作图（方形 NRGBA，透明通道已压平到白底）及原图宽高。
// 解码失败或尺寸不足直接拒绝，不产生任何产物。
func (r *Resampler) Resample(data []byte) (*image.NRGBA, int, int, error) {
	src, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	bounds := src.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width < r.minDimension || height < r.minDimension {
		return nil, 0, 0, fmt.Errorf("%w: %dx%d, need at least %dpx",
			ErrImageTooSmall, width, height, r.minDimension)
	}

	size := r.workingSize
	canvas := imaging.New(size, size, color.White)

	switch r.fitMode {
	case "cover":
		// 等比缩放后裁剪溢出部分，无形变
		filled := imaging.Fill(src, size, size, imaging.Center, imaging.Lanczos)
		canvas = imaging.Overlay(canvas, filled, image.Pt(0, 0), 1.0)
	case "fill":
		// 拉伸填满，允许形变
		stretched := imaging.Resize(src, size, size, imaging.Lanczos)
		canvas = imaging.Overlay(canvas, stretched, image.Pt(0, 0), 1.0)
	case "inside":
		// 等比缩放不裁剪，小图不放大，居中贴到白底画布
		scaled := src
		if width > size || height > size {
			scaled = imaging.Fit(src, size, size, imaging.Lanczos)
		}
		canvas = imaging.OverlayCenter(canvas, scaled, 1.0)
	default:
		return nil, 0, 0, fmt.Errorf("unknown fit mode: %q", r.fitMode)
	}

	return canvas, width, height, nil
}

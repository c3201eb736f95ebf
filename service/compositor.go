package service

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	"github.com/TIANLI0/MarkerKit/config"
	"github.com/disintegration/imaging"
)

var (
	// 边框与底色为生产方和AR客户端之间的外部约定，需与客户端常量一致
	borderColor = color.NRGBA{R: 0, G: 0, B: 0, A: 255}
	insetColor  = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)

// Compositor 负责生成用户可见的 target 图产物
type Compositor struct {
	bordered    bool
	canvasSize  int
	borderSize  int
	jpegQuality int
}

func NewCompositor(cfg *config.PipelineConfig) *Compositor {
	return &Compositor{
		bordered:    cfg.BorderEnabled,
		canvasSize:  cfg.CanvasSize,
		borderSize:  cfg.BorderSize,
		jpegQuality: cfg.JPEGQuality,
	}
}

// Compose 编码 target 图，返回字节与扩展名
//
// 无边框：工作图按配置质量编码为 JPEG
// 有边框：固定尺寸画布上叠加 背景 → 外框矩形 → 内衬矩形 → 内缩图，
// 编码为无损 PNG，保证边框边缘像素级精确可被识别
func (c *Compositor) Compose(working *image.NRGBA) ([]byte, string, error) {
	if !c.bordered {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, working, &jpeg.Options{Quality: c.jpegQuality}); err != nil {
			return nil, "", fmt.Errorf("encode target jpeg: %w", err)
		}
		return buf.Bytes(), ".jpg", nil
	}

	size := c.canvasSize
	border := c.borderSize
	inner := size - 2*border

	canvas := imaging.New(size, size, insetColor)
	canvas = imaging.Overlay(canvas, imaging.New(size, size, borderColor), image.Pt(0, 0), 1.0)
	canvas = imaging.Overlay(canvas, imaging.New(inner, inner, insetColor), image.Pt(border, border), 1.0)

	inset := imaging.Resize(working, inner, inner, imaging.Lanczos)
	canvas = imaging.Overlay(canvas, inset, image.Pt(border, border), 1.0)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, "", fmt.Errorf("encode target png: %w", err)
	}
	return buf.Bytes(), ".png", nil
}

package service

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/TIANLI0/MarkerKit/config"
)

// 测试用默认管线配置
func testPipelineConfig(t *testing.T) *config.PipelineConfig {
	t.Helper()
	return &config.PipelineConfig{
		FitMode:        "cover",
		WorkingSize:    512,
		MinDimension:   32,
		BorderEnabled:  true,
		BorderSize:     40,
		CanvasSize:     512,
		JPEGQuality:    90,
		PatternBackend: "grid",
		PatternDir:     t.TempDir(),
		TargetDir:      t.TempDir(),
		MaxConcurrent:  2,
		QueueTimeout:   5,
	}
}

func solidImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// rgbaEqual 按8位RGB比较两个颜色（忽略alpha）
func rgbaEqual(a, b color.Color) bool {
	ar, ag, ab, _ := a.RGBA()
	br, bg, bb, _ := b.RGBA()
	return ar>>8 == br>>8 && ag>>8 == bg>>8 && ab>>8 == bb>>8
}

package service

import (
	"bytes"
	"errors"
	"image/color"
	"testing"
)

func TestResampleCover(t *testing.T) {
	cfg := testPipelineConfig(t)
	r := NewResampler(cfg)

	// 1000x800 cover 模式：裁剪填满，无形变
	src := solidImage(1000, 800, color.NRGBA{R: 50, G: 150, B: 250, A: 255})
	working, width, height, err := r.Resample(encodeJPEG(t, src))
	if err != nil {
		t.Fatalf("resample: %v", err)
	}
	if width != 1000 || height != 800 {
		t.Errorf("source dims = %dx%d, want 1000x800", width, height)
	}
	b := working.Bounds()
	if b.Dx() != 512 || b.Dy() != 512 {
		t.Errorf("working image = %dx%d, want 512x512", b.Dx(), b.Dy())
	}
}

func TestResampleFitModes(t *testing.T) {
	for _, mode := range []string{"cover", "inside", "fill"} {
		t.Run(mode, func(t *testing.T) {
			cfg := testPipelineConfig(t)
			cfg.FitMode = mode
			r := NewResampler(cfg)

			src := solidImage(640, 400, color.NRGBA{R: 10, G: 200, B: 30, A: 255})
			working, _, _, err := r.Resample(encodePNG(t, src))
			if err != nil {
				t.Fatalf("resample: %v", err)
			}
			b := working.Bounds()
			if b.Dx() != 512 || b.Dy() != 512 {
				t.Errorf("working image = %dx%d, want square 512x512", b.Dx(), b.Dy())
			}
		})
	}
}

func TestResampleInsideNoUpscale(t *testing.T) {
	cfg := testPipelineConfig(t)
	cfg.FitMode = "inside"
	r := NewResampler(cfg)

	// 小于工作分辨率的图不放大：居中贴到白底画布
	red := color.NRGBA{R: 255, A: 255}
	working, _, _, err := r.Resample(encodePNG(t, solidImage(100, 80, red)))
	if err != nil {
		t.Fatalf("resample: %v", err)
	}

	if !rgbaEqual(working.At(256, 256), red) {
		t.Errorf("center pixel = %v, want source red", working.At(256, 256))
	}
	if !rgbaEqual(working.At(0, 0), color.White) {
		t.Errorf("corner pixel = %v, want white canvas", working.At(0, 0))
	}
}

func TestResampleRejectsTooSmall(t *testing.T) {
	cfg := testPipelineConfig(t)
	r := NewResampler(cfg)

	_, _, _, err := r.Resample(encodePNG(t, solidImage(16, 16, color.NRGBA{A: 255})))
	if !errors.Is(err, ErrImageTooSmall) {
		t.Errorf("err = %v, want ErrImageTooSmall", err)
	}
}

func TestResampleRejectsGarbage(t *testing.T) {
	cfg := testPipelineConfig(t)
	r := NewResampler(cfg)

	_, _, _, err := r.Resample([]byte("definitely not an image"))
	if !errors.Is(err, ErrInvalidImage) {
		t.Errorf("err = %v, want ErrInvalidImage", err)
	}
}

func TestResampleDeterministic(t *testing.T) {
	cfg := testPipelineConfig(t)
	r := NewResampler(cfg)

	src := solidImage(777, 333, color.NRGBA{R: 90, G: 45, B: 180, A: 255})
	src.SetNRGBA(3, 7, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	data := encodeJPEG(t, src)

	a, _, _, err := r.Resample(data)
	if err != nil {
		t.Fatalf("resample: %v", err)
	}
	b, _, _, err := r.Resample(data)
	if err != nil {
		t.Fatalf("resample: %v", err)
	}
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Error("identical input produced different working images")
	}
}

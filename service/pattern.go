package service

import (
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/TIANLI0/MarkerKit/config"
	"github.com/TIANLI0/MarkerKit/utils"
	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

// GridSize 图案网格的边长，与客户端匹配引擎约定，不可更改
const GridSize = 16

// PlaceholderPattern 外部编译器失败时写入的占位产物内容
const PlaceholderPattern = "MARKERKIT PLACEHOLDER v1\n"

// PatternWriter 负责从工作图生成跟踪图案产物
//
// grid 后端：内置像素网格序列化，输出 .patt 文本
// compiler 后端：调用外部跟踪编译器输出 .mind，失败时降级为占位产物
type PatternWriter struct {
	backend     string
	compilerCmd string
	dir         string
}

func NewPatternWriter(cfg *config.PipelineConfig) *PatternWriter {
	return &PatternWriter{
		backend:     cfg.PatternBackend,
		compilerCmd: cfg.CompilerCmd,
		dir:         cfg.PatternDir,
	}
}

// Write 生成图案产物文件，返回文件名
func (w *PatternWriter) Write(ctx context.Context, working *image.NRGBA, id string) (string, error) {
	switch w.backend {
	case "compiler":
		filename := id + ".mind"
		outPath := filepath.Join(w.dir, filename)
		if err := w.compile(ctx, working, outPath); err != nil {
			// 编译器失败不影响请求成功，降级为占位产物，仅记录日志
			utils.Logger.Warn("tracking compiler failed, writing placeholder",
				zap.String("id", id),
				zap.Error(err))
			if werr := os.WriteFile(outPath, []byte(PlaceholderPattern), 0644); werr != nil {
				return "", fmt.Errorf("write placeholder artifact: %w", werr)
			}
		}
		return filename, nil
	default:
		filename := id + ".patt"
		text := EncodePattern(QuantizeGrid(working))
		if err := os.WriteFile(filepath.Join(w.dir, filename), []byte(text), 0644); err != nil {
			return "", fmt.Errorf("write pattern artifact: %w", err)
		}
		return filename, nil
	}
}

// compile 调用外部跟踪编译器：<cmd> <输入图片> <输出路径>
func (w *PatternWriter) compile(ctx context.Context, working *image.NRGBA, outPath string) error {
	if w.compilerCmd == "" {
		return fmt.Errorf("tracking compiler not configured")
	}

	tmp, err := os.CreateTemp("", "markerkit-*.png")
	if err != nil {
		return fmt.Errorf("create temp image: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := imaging.Save(working, tmpPath); err != nil {
		return fmt.Errorf("save temp image: %w", err)
	}

	parts := strings.Fields(w.compilerCmd)
	args := append(parts[1:], tmpPath, outPath)
	cmd := exec.CommandContext(ctx, parts[0], args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("compiler exited: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// QuantizeGrid 将工作图降采样为 16x16x3 的强度矩阵
//
// 最近邻直接取样（不做均值滤波），保留锐利过渡，
// 采样坐标为网格坐标乘以 工作尺寸/16 的步长
func QuantizeGrid(working *image.NRGBA) []uint8 {
	bounds := working.Bounds()
	scaleX := float64(bounds.Dx()) / GridSize
	scaleY := float64(bounds.Dy()) / GridSize

	values := make([]uint8, 0, 3*GridSize*GridSize)
	for ch := 0; ch < 3; ch++ {
		for y := 0; y < GridSize; y++ {
			sy := bounds.Min.Y + int(float64(y)*scaleY)
			for x := 0; x < GridSize; x++ {
				sx := bounds.Min.X + int(float64(x)*scaleX)
				px := working.NRGBAAt(sx, sy)
				switch ch {
				case 0:
					values = append(values, px.R)
				case 1:
					values = append(values, px.G)
				case 2:
					values = append(values, px.B)
				}
			}
		}
	}
	return values
}

// EncodePattern 将强度矩阵序列化为图案文本
//
// 三个通道块依次为 R、G、B，每块16行，每行16个右对齐3位宽字段，
// 单空格分隔；块之间一个空行，末尾无空行
func EncodePattern(values []uint8) string {
	var sb strings.Builder
	fields := make([]string, GridSize)

	for ch := 0; ch < 3; ch++ {
		if ch > 0 {
			sb.WriteByte('\n')
		}
		base := ch * GridSize * GridSize
		for y := 0; y < GridSize; y++ {
			for x := 0; x < GridSize; x++ {
				fields[x] = fmt.Sprintf("%3d", values[base+y*GridSize+x])
			}
			sb.WriteString(strings.Join(fields, " "))
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// ParsePattern 将图案文本解析回强度矩阵，用于校验与回读
func ParsePattern(text string) ([]uint8, error) {
	values := make([]uint8, 0, 3*GridSize*GridSize)
	for i, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != GridSize {
			return nil, fmt.Errorf("line %d: expected %d fields, got %d", i+1, GridSize, len(fields))
		}
		for _, f := range fields {
			n, err := strconv.Atoi(f)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid value %q: %w", i+1, f, err)
			}
			if n < 0 || n > 255 {
				return nil, fmt.Errorf("line %d: value %d out of range", i+1, n)
			}
			values = append(values, uint8(n))
		}
	}
	if len(values) != 3*GridSize*GridSize {
		return nil, fmt.Errorf("expected %d values, got %d", 3*GridSize*GridSize, len(values))
	}
	return values, nil
}

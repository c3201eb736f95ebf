package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type UploadConfig struct {
	MaxSize      int64    `mapstructure:"max_size"`
	AllowedTypes []string `mapstructure:"allowed_types"`
}

// PipelineConfig 图像归一化与图案编码管线配置
//
// fit_mode: cover（裁剪填满）/ inside（等比缩放不裁剪）/ fill（拉伸填满）
// pattern_backend: grid（内置像素网格 .patt）/ compiler（外部编译器 .mind）
// pattern 与 target 共用同一 fit_mode，保证两个产物视觉一致
type PipelineConfig struct {
	FitMode        string `mapstructure:"fit_mode"`
	WorkingSize    int    `mapstructure:"working_size"`
	MinDimension   int    `mapstructure:"min_dimension"`
	BorderEnabled  bool   `mapstructure:"border_enabled"`
	BorderSize     int    `mapstructure:"border_size"`
	CanvasSize     int    `mapstructure:"canvas_size"`
	JPEGQuality    int    `mapstructure:"jpeg_quality"`
	PatternBackend string `mapstructure:"pattern_backend"`
	CompilerCmd    string `mapstructure:"compiler_cmd"`
	PatternDir     string `mapstructure:"pattern_dir"`
	TargetDir      string `mapstructure:"target_dir"`
	MaxConcurrent  int    `mapstructure:"max_concurrent"`
	QueueTimeout   int    `mapstructure:"queue_timeout"`
}

// Load 从 YAML 文件加载配置
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// 设置默认值
	setDefaults(v)

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Pipeline.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// New 使用默认配置路径加载配置
func New() *Config {
	cfg, err := Load("config.yaml")
	if err != nil {
		// 如果加载失败，返回默认配置
		return getDefaultConfig()
	}
	return cfg
}

// Validate 校验管线配置的枚举值与边框几何
func (c *PipelineConfig) Validate() error {
	switch c.FitMode {
	case "cover", "inside", "fill":
	default:
		return fmt.Errorf("invalid pipeline.fit_mode: %q", c.FitMode)
	}
	switch c.PatternBackend {
	case "grid", "compiler":
	default:
		return fmt.Errorf("invalid pipeline.pattern_backend: %q", c.PatternBackend)
	}
	if c.WorkingSize <= 0 {
		return fmt.Errorf("invalid pipeline.working_size: %d", c.WorkingSize)
	}
	if c.BorderEnabled && c.CanvasSize <= 2*c.BorderSize {
		return fmt.Errorf("pipeline.canvas_size %d too small for border %d", c.CanvasSize, c.BorderSize)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 24*time.Hour)

	v.SetDefault("upload.max_size", 10*1024*1024)
	v.SetDefault("upload.allowed_types", []string{"image/jpeg", "image/png", "image/jpg"})

	v.SetDefault("pipeline.fit_mode", "cover")
	v.SetDefault("pipeline.working_size", 512)
	v.SetDefault("pipeline.min_dimension", 32)
	v.SetDefault("pipeline.border_enabled", true)
	v.SetDefault("pipeline.border_size", 40)
	v.SetDefault("pipeline.canvas_size", 512)
	v.SetDefault("pipeline.jpeg_quality", 90)
	v.SetDefault("pipeline.pattern_backend", "grid")
	v.SetDefault("pipeline.compiler_cmd", "")
	v.SetDefault("pipeline.pattern_dir", "./patterns")
	v.SetDefault("pipeline.target_dir", "./targets")
	v.SetDefault("pipeline.max_concurrent", 3)
	v.SetDefault("pipeline.queue_timeout", 30)
}

func getDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         ":8080",
			Mode:         "debug",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			TTL:      24 * time.Hour,
		},
		Upload: UploadConfig{
			MaxSize:      10 * 1024 * 1024,
			AllowedTypes: []string{"image/jpeg", "image/png", "image/jpg"},
		},
		Pipeline: PipelineConfig{
			FitMode:        "cover",
			WorkingSize:    512,
			MinDimension:   32,
			BorderEnabled:  true,
			BorderSize:     40,
			CanvasSize:     512,
			JPEGQuality:    90,
			PatternBackend: "grid",
			CompilerCmd:    "",
			PatternDir:     "./patterns",
			TargetDir:      "./targets",
			MaxConcurrent:  3,
			QueueTimeout:   30,
		},
	}
}

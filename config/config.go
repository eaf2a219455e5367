package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chaos-io/bgremover/util"
)

type Config struct {
	Server   Server   `yaml:"server"`
	Cache    Cache    `yaml:"cache"`
	Pipeline Pipeline `yaml:"pipeline"`
	Preview  Preview  `yaml:"preview"`
	Log      Log      `yaml:"log"`
}

type Server struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxUploadBytes int64    `yaml:"max_upload_bytes"`
	UploadTTL      Duration `yaml:"upload_ttl"`
	SweepInterval  Duration `yaml:"sweep_interval"`
	StatsInterval  Duration `yaml:"stats_interval"`
}

type Cache struct {
	Size int `yaml:"size"`
}

type Pipeline struct {
	// Backend serial | parallel | opencv（opencv 需要 -tags gocv 构建）
	Backend string `yaml:"backend"`
	// Workers 为 0 时使用 GOMAXPROCS
	Workers int `yaml:"workers"`
}

// Preview 预览图的最大尺寸
type Preview struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Duration 以 "30m"、"1m30s" 形式读写的时长
type Duration time.Duration

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(v)
	return nil
}

func Default() *Config {
	return &Config{
		Server: Server{
			Addr:           ":8000",
			AllowedOrigins: []string{"http://localhost:5173"},
			MaxUploadBytes: 32 << 20,
			UploadTTL:      Duration(30 * time.Minute),
			SweepInterval:  Duration(time.Minute),
			StatsInterval:  Duration(5 * time.Minute),
		},
		Cache:    Cache{Size: 100},
		Pipeline: Pipeline{Backend: "parallel"},
		Preview:  Preview{Width: 150, Height: 150},
		Log:      Log{Level: "info", Format: "text"},
	}
}

// Load 读取 YAML 配置，未出现的字段保留默认值。path 为空时返回默认配置。
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := Parse(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse 将 YAML 合并到 cfg 并校验
func Parse(data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return err
	}
	return cfg.Validate()
}

func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is empty"))
	}
	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("server.max_upload_bytes must be positive, got %d", c.Server.MaxUploadBytes))
	}
	if c.Server.UploadTTL <= 0 {
		errs = append(errs, fmt.Errorf("server.upload_ttl must be positive, got %s", c.Server.UploadTTL))
	}
	if c.Server.SweepInterval <= 0 {
		errs = append(errs, fmt.Errorf("server.sweep_interval must be positive, got %s", c.Server.SweepInterval))
	}
	if c.Server.StatsInterval < 0 {
		errs = append(errs, fmt.Errorf("server.stats_interval must not be negative, got %s", c.Server.StatsInterval))
	}
	if c.Cache.Size <= 0 {
		errs = append(errs, fmt.Errorf("cache.size must be positive, got %d", c.Cache.Size))
	}
	switch c.Pipeline.Backend {
	case "serial", "parallel", "opencv":
	default:
		errs = append(errs, fmt.Errorf("pipeline.backend %q, choose serial, parallel or opencv", c.Pipeline.Backend))
	}
	if c.Pipeline.Workers < 0 {
		errs = append(errs, fmt.Errorf("pipeline.workers must not be negative, got %d", c.Pipeline.Workers))
	}
	if c.Preview.Width <= 0 || c.Preview.Height <= 0 {
		errs = append(errs, fmt.Errorf("preview size %dx%d must be positive", c.Preview.Width, c.Preview.Height))
	}
	if _, err := util.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q, choose text or json", c.Log.Format))
	}
	return errors.Join(errs...)
}

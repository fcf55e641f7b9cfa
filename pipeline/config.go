package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vibeylab/trendkit/core"
)

// FileConfig 是管线的配置文件结构（支持 YAML/JSON）。
// pipeline 段对应 core.Config，services 段描述外部服务接入。
type FileConfig struct {
	Pipeline struct {
		MaxPosts          int     `yaml:"max_posts" json:"max_posts"`
		MaxRetries        int     `yaml:"max_retries" json:"max_retries"`
		InitialDelayMS    int     `yaml:"initial_delay_ms" json:"initial_delay_ms"`
		BackoffMultiplier float64 `yaml:"backoff_multiplier" json:"backoff_multiplier"`
		FailFast          bool    `yaml:"fail_fast" json:"fail_fast"`
		WorkerPoolSize    int     `yaml:"worker_pool_size" json:"worker_pool_size"`
		TrendCacheTTLSec  int     `yaml:"trend_cache_ttl_sec" json:"trend_cache_ttl_sec"`
	} `yaml:"pipeline" json:"pipeline"`

	Services struct {
		Predictor struct {
			Endpoint  string `yaml:"endpoint" json:"endpoint"`
			ModelName string `yaml:"model_name" json:"model_name"`
		} `yaml:"predictor" json:"predictor"`

		Trend struct {
			BaseURL string `yaml:"base_url" json:"base_url"`
			Model   string `yaml:"model" json:"model"`
			APIKey  string `yaml:"api_key" json:"api_key"`
		} `yaml:"trend" json:"trend"`

		Enhancer struct {
			Endpoint string `yaml:"endpoint" json:"endpoint"`
			APIKey   string `yaml:"api_key" json:"api_key"`
		} `yaml:"enhancer" json:"enhancer"`

		Redis struct {
			Addr     string `yaml:"addr" json:"addr"`
			Password string `yaml:"password" json:"password"`
			DB       int    `yaml:"db" json:"db"`
		} `yaml:"redis" json:"redis"`
	} `yaml:"services" json:"services"`
}

// LoadFromYAML 从 YAML 文件加载管线配置。
func LoadFromYAML(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return &cfg, nil
}

// LoadFromJSON 从 JSON 文件加载管线配置。
func LoadFromJSON(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var cfg FileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return &cfg, nil
}

// CoreConfig 把文件配置转换为运行时配置，未设置的字段取默认值。
func (c *FileConfig) CoreConfig() *core.Config {
	cfg := core.DefaultConfig()
	if c.Pipeline.MaxPosts > 0 {
		cfg.MaxPosts = c.Pipeline.MaxPosts
	}
	if c.Pipeline.MaxRetries > 0 {
		cfg.MaxRetries = c.Pipeline.MaxRetries
	}
	if c.Pipeline.InitialDelayMS > 0 {
		cfg.InitialDelay = time.Duration(c.Pipeline.InitialDelayMS) * time.Millisecond
	}
	if c.Pipeline.BackoffMultiplier > 0 {
		cfg.BackoffMultiplier = c.Pipeline.BackoffMultiplier
	}
	if c.Pipeline.WorkerPoolSize > 0 {
		cfg.WorkerPoolSize = c.Pipeline.WorkerPoolSize
	}
	if c.Pipeline.TrendCacheTTLSec > 0 {
		cfg.TrendCacheTTL = time.Duration(c.Pipeline.TrendCacheTTLSec) * time.Second
	}
	cfg.FailFast = c.Pipeline.FailFast
	return cfg
}

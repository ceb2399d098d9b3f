package app

import (
	"context"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"tickbook.com/internal/latency"
	"tickbook.com/internal/matching"
	"tickbook.com/pkg/config"
	"tickbook.com/pkg/logger"
)

const ServiceName = "matching-server"

// 总配置
type Config struct {
	Name    string        `mapstructure:"name" json:"name" yaml:"name"`
	Log     LogConfig     `mapstructure:"log" json:"log" yaml:"log"`
	Listen  ListenConfig  `mapstructure:"listen" json:"listen" yaml:"listen"`
	Book    BookConfig    `mapstructure:"book" json:"book" yaml:"book"`
	Latency LatencyConfig `mapstructure:"latency" json:"latency" yaml:"latency"`
	Report  ReportConfig  `mapstructure:"report" json:"report" yaml:"report"`
	Metrics AddrConfig    `mapstructure:"metrics" json:"metrics" yaml:"metrics"`
	Pprof   AddrConfig    `mapstructure:"pprof" json:"pprof" yaml:"pprof"`
}

type LogConfig struct {
	Level string `mapstructure:"level" json:"level" yaml:"level"`
	File  string `mapstructure:"file" json:"file" yaml:"file"`
}

type ListenConfig struct {
	Addr string `mapstructure:"addr" json:"addr" yaml:"addr"`
}

type BookConfig struct {
	Kind     string `mapstructure:"kind" json:"kind" yaml:"kind"` // dense | sparse
	MinPrice int64  `mapstructure:"min_price" json:"min_price" yaml:"min_price"`
	MaxPrice int64  `mapstructure:"max_price" json:"max_price" yaml:"max_price"`
}

type LatencyConfig struct {
	BatchSize int    `mapstructure:"batch_size" json:"batch_size" yaml:"batch_size"`
	Dir       string `mapstructure:"dir" json:"dir" yaml:"dir"`
}

type ReportConfig struct {
	Dir  string `mapstructure:"dir" json:"dir" yaml:"dir"`
	JSON bool   `mapstructure:"json" json:"json" yaml:"json"`
}

// AddrConfig 为空表示不启动
type AddrConfig struct {
	Addr string `mapstructure:"addr" json:"addr" yaml:"addr"`
}

func (c *Config) Range() matching.PriceRange {
	return matching.PriceRange{Min: c.Book.MinPrice, Max: c.Book.MaxPrice}
}

func Defaults() map[string]any {
	return map[string]any{
		"name":               ServiceName,
		"log.level":          "info",
		"log.file":           "",
		"listen.addr":        "127.0.0.1:5000",
		"book.kind":          matching.KindDense,
		"book.min_price":     matching.DefaultMinPrice,
		"book.max_price":     matching.DefaultMaxPrice,
		"latency.batch_size": latency.DefaultBatchSize,
		"latency.dir":        ".",
		"report.dir":         ".",
		"report.json":        false,
		"metrics.addr":       "",
		"pprof.addr":         "",
	}
}

// LoadConfig file 为空时按 config/matching-server.yaml 查找，找不到就用默认值。
// watch 打开后配置文件变更会热更新 log.level。
func LoadConfig(file string, watch bool) (*Config, error) {
	cfg := &Config{}
	opts := []config.Option{config.WithDefaults(Defaults())}
	if file != "" {
		opts = append(opts, config.WithFile(file))
	}
	if watch {
		// 只热更新日志级别；解析到新结构体里，正在用的 cfg 不动
		opts = append(opts, config.WithWatch(func(v *viper.Viper) {
			var fresh Config
			if err := v.Unmarshal(&fresh); err != nil {
				logger.Warn(context.Background(), "reload config failed", zap.Error(err))
				return
			}
			if err := logger.SetLevel(fresh.Log.Level); err != nil {
				logger.Warn(context.Background(), "ignore bad log level", zap.String("level", fresh.Log.Level), zap.Error(err))
				return
			}
			logger.Info(context.Background(), "log level reloaded", zap.String("level", fresh.Log.Level))
		}))
	}
	if _, err := config.Load(ServiceName, cfg, opts...); err != nil {
		return nil, err
	}
	if err := matching.CheckRange(cfg.Book.Kind, cfg.Range()); err != nil {
		return nil, err
	}
	return cfg, nil
}

package config

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type options struct {
	file     string
	paths    []string
	defaults map[string]any
	onChange func(v *viper.Viper)
}

type Option func(*options)

// WithFile 直接指定配置文件，跳过 config/{service}.yaml 的查找
func WithFile(path string) Option {
	return func(o *options) { o.file = path }
}

// WithPaths 追加查找目录
func WithPaths(paths ...string) Option {
	return func(o *options) { o.paths = append(o.paths, paths...) }
}

// WithDefaults 默认值；有默认值时找不到配置文件不算错误
func WithDefaults(d map[string]any) Option {
	return func(o *options) { o.defaults = d }
}

// WithWatch 监听文件变更后回调 fn。不会改写 Load 的 out，fn 自己从 v 取新值
func WithWatch(fn func(v *viper.Viper)) Option {
	return func(o *options) { o.onChange = fn }
}

// Load 约定：config/{service}.yaml，环境变量前缀为大写 service（"-" 换成 "_"）
//
//	MATCHING_SERVER_LISTEN_ADDR 覆盖 listen.addr
func Load(service string, out interface{}, opts ...Option) (*viper.Viper, error) {
	o := options{paths: []string{"./config", "."}}
	for _, opt := range opts {
		opt(&o)
	}

	v := viper.New()
	for k, val := range o.defaults {
		v.SetDefault(k, val)
	}

	if o.file != "" {
		v.SetConfigFile(o.file)
	} else {
		v.SetConfigName(service)
		v.SetConfigType("yaml")
		for _, p := range o.paths {
			v.AddConfigPath(p)
		}
	}

	v.SetEnvPrefix(strings.ToUpper(strings.ReplaceAll(service, "-", "_")))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fromFile := true
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if o.file != "" || !errors.As(err, &nf) || len(o.defaults) == 0 {
			return nil, fmt.Errorf("config: read %s: %w", service, err)
		}
		fromFile = false
	}

	if err := v.Unmarshal(out); err != nil {
		return nil, fmt.Errorf("config: unmarshal %s: %w", service, err)
	}

	if !fromFile {
		log.Printf("[%s] config file not found, using defaults", service)
		return v, nil
	}
	log.Printf("[%s] config loaded from %s", service, v.ConfigFileUsed())

	if o.onChange != nil {
		v.OnConfigChange(func(e fsnotify.Event) {
			log.Printf("[%s] config file changed: %s", service, e.Name)
			o.onChange(v)
		})
		v.WatchConfig()
	}

	return v, nil
}

// Package application 负责进程启动时的公共准备工作：
// 定位并加载配置文件、初始化日志、按配置构造序列化器与发布器。
package application

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"

	zlog "github.com/lk2023060901/graphdoc-go/pkg/log"
	"github.com/lk2023060901/graphdoc-go/pkg/serialization"
	"github.com/lk2023060901/graphdoc-go/pkg/serialization/converters"
	"github.com/lk2023060901/graphdoc-go/pkg/store"
	zviper "github.com/lk2023060901/graphdoc-go/pkg/util/viper"
)

const (
	// DefaultConfigPath 是未指定配置文件时尝试加载的路径，文件不存在时使用内置默认值。
	DefaultConfigPath = "./graphdoc.yaml"

	envConfigPath = "GRAPHDOC_CONFIG_FILE_PATH"
	envPrefix     = "GRAPHDOC"
)

// SerializerSettings 对应配置文件中的 serializer 段。
type SerializerSettings struct {
	MaxRecursion   int              `mapstructure:"max-recursion"`
	Roundtrip      bool             `mapstructure:"roundtrip"`
	DisableAliases bool             `mapstructure:"disable-aliases"`
	EmitDefaults   bool             `mapstructure:"emit-defaults"`
	JSONCompatible bool             `mapstructure:"json-compatible"`
	Indent         int              `mapstructure:"indent"`
	Workers        int              `mapstructure:"workers"`
	Etcd           store.EtcdConfig `mapstructure:"etcd"`
}

// Options 返回配置对应的序列化开关。
func (s SerializerSettings) Options() serialization.SerializationOptions {
	var o serialization.SerializationOptions
	if s.Roundtrip {
		o |= serialization.Roundtrip
	}
	if s.DisableAliases {
		o |= serialization.DisableAliases
	}
	if s.EmitDefaults {
		o |= serialization.EmitDefaults
	}
	if s.JSONCompatible {
		o |= serialization.JSONCompatible
	}
	return o
}

// Application 持有配置以及由配置派生的公共依赖。
type Application struct {
	configPath string
	cfg        *zviper.Config
	settings   SerializerSettings
	loggers    map[string]*zlog.MLogger
}

// New 创建 Application，configPath 为空时按以下优先级确定配置文件：
//  1. 环境变量 GRAPHDOC_CONFIG_FILE_PATH
//  2. 默认路径 ./graphdoc.yaml（不存在时忽略）
func New(configPath string) *Application {
	return &Application{configPath: configPath}
}

// Run 加载配置并初始化日志，必须在使用其他方法之前调用。
func (a *Application) Run() error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	a.cfg = cfg

	var root struct {
		Serializer SerializerSettings `mapstructure:"serializer"`
	}
	if err := a.cfg.Unmarshal(&root); err != nil {
		return errors.Wrap(err, "failed to decode serializer section")
	}
	a.settings = root.Serializer
	return a.initLogging()
}

// Config 返回已加载的配置。
func (a *Application) Config() *zviper.Config {
	return a.cfg
}

// Settings 返回 serializer 段的配置。
func (a *Application) Settings() SerializerSettings {
	return a.settings
}

// Logger 返回配置中定义的具名 Logger，未定义时返回全局 Logger。
func (a *Application) Logger(name string) *zlog.MLogger {
	if lg, ok := a.loggers[name]; ok && lg != nil {
		return lg
	}
	return zlog.With(zlog.FieldModule(name))
}

// NewSerializer 按配置创建序列化器并注册全部内置转换器，opts 在配置之后应用。
func (a *Application) NewSerializer(opts ...serialization.Option) (*serialization.Serializer, error) {
	s, err := serialization.NewSerializer(append([]serialization.Option{
		serialization.WithMaxRecursion(a.settings.MaxRecursion),
		serialization.WithConverters(converters.Defaults()...),
	}, opts...)...)
	if err != nil {
		return nil, err
	}
	s.SetLogger(a.Logger("serializer"))
	return s, nil
}

// NewPublisher 在配置了 etcd 地址时创建发布器，否则返回 nil。
func (a *Application) NewPublisher() (*store.EtcdPublisher, error) {
	if !a.settings.Etcd.Enabled() {
		return nil, nil
	}
	return store.NewEtcdPublisher(a.settings.Etcd)
}

func (a *Application) resolveConfigPath() (string, bool) {
	if a.configPath != "" {
		return a.configPath, true
	}
	if envPath := strings.TrimSpace(os.Getenv(envConfigPath)); envPath != "" {
		return envPath, true
	}
	return DefaultConfigPath, false
}

// loadConfig 读取配置文件，只有显式指定的文件缺失时才报错。
func (a *Application) loadConfig() (*zviper.Config, error) {
	cfg := zviper.New()
	cfg.SetDefault("serializer.max-recursion", serialization.DefaultMaxRecursion)
	cfg.SetDefault("serializer.indent", 2)
	cfg.BindEnv(envPrefix)

	path, required := a.resolveConfigPath()
	if _, err := os.Stat(path); err != nil && !required {
		return cfg, nil
	}
	if err := cfg.LoadFile(path); err != nil {
		return nil, errors.Wrapf(err, "failed to load config file %q", path)
	}
	return cfg, nil
}

func (a *Application) initLogging() error {
	if err := a.initGlobalLoggerFromEnv(); err != nil {
		return err
	}
	return a.initModuleLoggersFromConfig()
}

// initGlobalLoggerFromEnv 依据 GRAPHDOC_LOG_* 环境变量配置全局 Logger。
//
//   - GRAPHDOC_LOG_ENABLE：为 "1"/"true" 时才输出日志。
//   - GRAPHDOC_LOG_LEVEL：日志级别，默认 info。
//   - GRAPHDOC_LOG_STDOUT：是否输出到标准输出，默认 false。
//   - GRAPHDOC_LOG_FILE_DIR / GRAPHDOC_LOG_FILE：日志目录与文件名，文件名为空表示不写文件。
//   - GRAPHDOC_LOG_FORMAT：json 或 console，默认 console。
func (a *Application) initGlobalLoggerFromEnv() error {
	enabled := getenvBool("GRAPHDOC_LOG_ENABLE", false)

	cfg := &zlog.Config{
		Level:  getenvDefault("GRAPHDOC_LOG_LEVEL", "info"),
		Format: getenvDefault("GRAPHDOC_LOG_FORMAT", zlog.FormatConsole),
		Stdout: getenvBool("GRAPHDOC_LOG_STDOUT", false),
		File: zlog.FileLogConfig{
			RootPath: getenvDefault("GRAPHDOC_LOG_FILE_DIR", ""),
			Filename: getenvDefault("GRAPHDOC_LOG_FILE", ""),
		},
	}
	if !enabled {
		cfg.Stdout = false
		cfg.File.Filename = ""
	}

	logger, props, err := zlog.InitLogger(cfg)
	if err != nil {
		return errors.Wrap(err, "init global logger from env")
	}
	zlog.ReplaceGlobals(logger, props)
	return nil
}

// initModuleLoggersFromConfig 根据 logging 段创建具名 Logger。
//
//	logging:
//	  serializer:
//	    level: debug
//	    stdout: true
//	    file:
//	      rootpath: ./logs
//	      filename: serializer.log
func (a *Application) initModuleLoggersFromConfig() error {
	raw := make(map[string]zlog.Config)
	if err := a.cfg.UnmarshalKey("logging", &raw); err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}

	a.loggers = make(map[string]*zlog.MLogger, len(raw))
	for name, lc := range raw {
		cfgCopy := lc
		logger, _, err := zlog.InitLogger(&cfgCopy)
		if err != nil {
			return errors.Wrapf(err, "init module logger %q", name)
		}
		a.loggers[name] = &zlog.MLogger{Logger: logger.With(zlog.FieldModule(name))}
	}
	return nil
}

func getenvDefault(key, def string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	return val
}

func getenvBool(key string, def bool) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	switch strings.ToLower(val) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

package utils

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// 日志文件名,位于 LogConfig.LogDir 下
const (
	MainLogFile  = "sheet_crawler.log"
	ErrorLogFile = "sheet_crawler_error.log"
)

// Logger 全局日志器,InitLogger之前为禁用状态
var Logger zerolog.Logger

// LogConfig 日志配置
type LogConfig struct {
	Level      string // trace | debug | info | warn | error
	LogDir     string
	MaxSize    int // 单个文件上限(MB)
	MaxBackups int
	MaxAge     int // 天
	Compress   bool
}

// DefaultLogConfig 默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:      "info",
		LogDir:     "logs",
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}
}

// InitLogger 初始化全局日志器
// 控制台 + 主日志文件(全部级别) + 错误日志文件(error及以上),两个文件都按大小轮转
func InitLogger(config LogConfig) error {
	if err := os.MkdirAll(config.LogDir, 0755); err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(config.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	writer := zerolog.MultiLevelWriter(
		zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.DateTime,
			NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
		},
		rotatingFile(config, MainLogFile),
		&LevelFilter{Writer: rotatingFile(config, ErrorLogFile), MinLevel: zerolog.ErrorLevel},
	)

	Logger = zerolog.New(writer).With().Timestamp().Logger()
	log.Logger = Logger

	Logger.Debug().
		Str("level", level.String()).
		Str("log_dir", config.LogDir).
		Msg("日志系统初始化完成")
	return nil
}

func rotatingFile(config LogConfig, name string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   filepath.Join(config.LogDir, name),
		MaxSize:    config.MaxSize,
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAge,
		Compress:   config.Compress,
	}
}

// LevelFilter 只写入不低于MinLevel的日志
type LevelFilter struct {
	Writer   io.Writer
	MinLevel zerolog.Level
}

// Write 没有级别信息的写入被丢弃
func (f *LevelFilter) Write(p []byte) (int, error) {
	return len(p), nil
}

// WriteLevel 实现 zerolog.LevelWriter
func (f *LevelFilter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < f.MinLevel {
		return len(p), nil
	}
	return f.Writer.Write(p)
}

func Info(msg string) { Logger.Info().Msg(msg) }

func Infof(format string, args ...interface{}) { Logger.Info().Msgf(format, args...) }

func Warnf(format string, args ...interface{}) { Logger.Warn().Msgf(format, args...) }

func Errorf(format string, args ...interface{}) { Logger.Error().Msgf(format, args...) }

func Debugf(format string, args ...interface{}) { Logger.Debug().Msgf(format, args...) }

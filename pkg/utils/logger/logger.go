package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level 日志级别，复用zap的级别定义
type Level = zapcore.Level

const (
	DebugLevel = zapcore.DebugLevel
	InfoLevel  = zapcore.InfoLevel
	WarnLevel  = zapcore.WarnLevel
	ErrorLevel = zapcore.ErrorLevel
)

// Logger 基于zap封装的日志实例，支持动态调整级别
type Logger struct {
	l     *zap.SugaredLogger
	level zap.AtomicLevel
}

// New 创建日志实例
// 参数：
//   - out：日志输出目标（os.Stderr、轮转文件等）
//   - level：初始日志级别
// 返回：
//   - 初始化后的Logger实例
func New(out io.Writer, level Level) *Logger {
	if out == nil {
		out = os.Stderr
	}

	atomic := zap.NewAtomicLevelAt(level)

	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(cfg),
		zapcore.AddSync(out),
		atomic,
	)

	return &Logger{
		l:     zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2)).Sugar(),
		level: atomic,
	}
}

// SetLevel 动态调整日志级别
func (l *Logger) SetLevel(level Level) {
	l.level.SetLevel(level)
}

// Sync 刷新缓冲的日志条目
func (l *Logger) Sync() error {
	return l.l.Sync()
}

func (l *Logger) Debug(args ...interface{})                 { l.l.Debug(args...) }
func (l *Logger) Debugf(format string, args ...interface{}) { l.l.Debugf(format, args...) }
func (l *Logger) Info(args ...interface{})                  { l.l.Info(args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.l.Infof(format, args...) }
func (l *Logger) Warn(args ...interface{})                  { l.l.Warn(args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.l.Warnf(format, args...) }
func (l *Logger) Error(args ...interface{})                 { l.l.Error(args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.l.Errorf(format, args...) }

// 默认日志实例（输出到标准错误，Info级别）
var std = New(os.Stderr, InfoLevel)

// Default 返回默认日志实例
func Default() *Logger {
	return std
}

// ReplaceDefault 替换默认日志实例
func ReplaceDefault(l *Logger) {
	if l != nil {
		std = l
	}
}

// SetLevel 调整默认日志实例的级别
func SetLevel(level Level) {
	std.SetLevel(level)
}

// Sync 刷新默认日志实例
func Sync() error {
	return std.Sync()
}

func Debug(args ...interface{})                 { std.Debug(args...) }
func Debugf(format string, args ...interface{}) { std.Debugf(format, args...) }
func Info(args ...interface{})                  { std.Info(args...) }
func Infof(format string, args ...interface{})  { std.Infof(format, args...) }
func Warn(args ...interface{})                  { std.Warn(args...) }
func Warnf(format string, args ...interface{})  { std.Warnf(format, args...) }
func Error(args ...interface{})                 { std.Error(args...) }
func Errorf(format string, args ...interface{}) { std.Errorf(format, args...) }

package logger

import (
	"io"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewProductionRotateByTime 创建按时间轮转的日志输出
// 每24小时轮转一次，保留7天
// 参数：
//   - filename：日志文件路径
// 返回：
//   - 可写入的轮转输出（创建失败时退回标准错误输出）
func NewProductionRotateByTime(filename string) io.Writer {
	out, err := rotatelogs.New(
		filename+".%Y%m%d",
		rotatelogs.WithLinkName(filename),
		rotatelogs.WithMaxAge(7*24*time.Hour),
		rotatelogs.WithRotationTime(24*time.Hour),
	)
	if err != nil {
		Errorf("[LOGGER] 创建时间轮转日志失败: %v", err)
		return nil
	}
	return out
}

// NewProductionRotateBySize 创建按大小轮转的日志输出
// 单文件100MB，保留7天、最多10个备份，启用压缩
// 参数：
//   - filename：日志文件路径
// 返回：
//   - 可写入的轮转输出
func NewProductionRotateBySize(filename string) io.Writer {
	return &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    100,
		MaxAge:     7,
		MaxBackups: 10,
		Compress:   true,
	}
}

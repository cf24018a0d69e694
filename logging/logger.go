package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log 全局 logger；InitLogger 前丢弃一切输出
var Log = zap.NewNop().Sugar()

// 滚动策略
const (
	maxSizeMB  = 10
	maxBackups = 3
	maxAgeDays = 7
)

// InitLogger 把日志写到滚动文件 filePath，level 取 debug/info/warn/error。
// 终端被画面占用，所以不输出到 stdout。
func InitLogger(filePath, level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level %q: %w", level, err)
	}

	sink := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
	})
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), sink, lvl)
	Log = zap.New(core, zap.AddCaller()).Sugar()
	return nil
}

// encoderConfig 人读的控制台格式：ISO8601 时间、大写级别、短路径调用点
func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.StacktraceKey = "stack"
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}

// Named 子模块 logger（net、session、admin ...）
func Named(name string) *zap.SugaredLogger {
	return Log.Named(name)
}

// SyncLogger 退出前刷盘
func SyncLogger() {
	if Log != nil {
		_ = Log.Sync()
	}
}

// Package logging 提供统一的结构化日志构造。
// 各阶段通过 WithField 挂上 stage/run_id 等字段，输出 JSON 便于采集。
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger 日志实例别名
type Logger = *logrus.Logger

// Fields 结构化字段别名
type Fields = logrus.Fields

// New 创建 JSON 格式的 logger，级别由 LOG_LEVEL 环境变量控制（默认 info）
func New() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(levelFromEnv())
	return logger
}

// NewWithStage 创建带 stage 字段的 logger
func NewWithStage(stage string) *logrus.Entry {
	return New().WithField("stage", stage)
}

func levelFromEnv() logrus.Level {
	lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

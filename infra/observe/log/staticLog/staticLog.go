// 全局静态日志, 默认输出到 stderr, Init 后按配置切换级别并追加滚动文件输出
package staticLog

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

var Log = newLogger(os.Stderr, logrus.InfoLevel)

func newLogger(out io.Writer, level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	return l
}

// ParseLevel 无法识别时退回 info
func ParseLevel(s string) logrus.Level {
	level, err := logrus.ParseLevel(strings.TrimSpace(s))
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// Init 替换全局 Log; 返回的 io.Closer 用于关闭滚动文件
func Init(cfg Config) io.Closer {
	var out io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		out = io.MultiWriter(os.Stderr, lj)
		closer = lj
	}
	Log = newLogger(out, ParseLevel(cfg.Level))
	return closer
}

// Unit 批处理中定位失败单元的字段
func Unit(L int, beta float64, observable string) *logrus.Entry {
	fields := logrus.Fields{"L": L, "beta": beta}
	if observable != "" {
		fields["observable"] = observable
	}
	return Log.WithFields(fields)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

package diag

import (
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger 为结构化日志器：JSON 行写入轮转文件；warn 及以上同时以控制台格式输出到 stderr。
// 所有方法对 nil 接收者安全（nil 即关闭日志）。
type Logger struct {
	z    *zap.Logger
	sink *RotatingFile
}

// Options 日志器选项。
type Options struct {
	Level string
	// Dir 为日志目录；为空时使用 "logs"。
	Dir string
	// Stderr 为 false 时不向 stderr 镜像 warn+ 事件。
	Stderr bool
}

// NewLogger 通过配置初始化，并将日志写入 Dir 下的 10MiB 轮转文件。
func NewLogger(corrID string, opts Options) *Logger {
	dir := strings.TrimSpace(opts.Dir)
	if dir == "" {
		dir = "logs"
	}
	sink := NewRotatingFile(dir, 10<<20, 5)
	lvl := zap.NewAtomicLevelAt(parseLevel(opts.Level))

	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.EncodeTime = zapcore.RFC3339TimeEncoder
	cores := []zapcore.Core{zapcore.NewCore(zapcore.NewJSONEncoder(enc), sink, lvl)}
	if opts.Stderr {
		con := zap.NewDevelopmentEncoderConfig()
		con.TimeKey = ""
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(con), zapcore.Lock(os.Stderr), zap.WarnLevel))
	}
	z := zap.New(zapcore.NewTee(cores...)).With(zap.String("corr_id", corrID))
	return &Logger{z: z, sink: sink}
}

// NewWithCore 以给定 core 构造日志器（测试可注入 observer）。
func NewWithCore(core zapcore.Core) *Logger {
	return &Logger{z: zap.New(core)}
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zap.DebugLevel
	case "warn":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

// Sync 刷出缓冲并关闭文件。
func (l *Logger) Sync() {
	if l == nil {
		return
	}
	_ = l.z.Sync()
	if l.sink != nil {
		_ = l.sink.Close()
	}
}

// Start 记录 start 事件；返回计时器用于 Finish。
func (l *Logger) Start(comp, msg string, fields ...zap.Field) *Timer {
	if l == nil {
		return nil
	}
	l.z.Info(msg, append([]zap.Field{zap.String("comp", comp), zap.String("stage", "start")}, fields...)...)
	return &Timer{l: l, comp: comp, fields: fields, t0: time.Now()}
}

// Info 记录 info 事件。
func (l *Logger) Info(comp, msg string, fields ...zap.Field) {
	if l == nil {
		return
	}
	l.z.Info(msg, append([]zap.Field{zap.String("comp", comp)}, fields...)...)
}

// Debug 仅在 level=debug 时生效。
func (l *Logger) Debug(comp, msg string, fields ...zap.Field) {
	if l == nil {
		return
	}
	l.z.Debug(msg, append([]zap.Field{zap.String("comp", comp)}, fields...)...)
}

// Warn 记录数据质量类告警（不中断流程）。
func (l *Logger) Warn(comp, msg string, fields ...zap.Field) {
	if l == nil {
		return
	}
	l.z.Warn(msg, append([]zap.Field{zap.String("comp", comp)}, fields...)...)
}

// Error 记录 error 事件；code 为 Classify 的分类结果，可为空。
func (l *Logger) Error(comp, code, msg string, durSince *time.Time, fields ...zap.Field) {
	if l == nil {
		return
	}
	fs := []zap.Field{zap.String("comp", comp), zap.String("stage", "error")}
	if code != "" {
		fs = append(fs, zap.String("code", code))
	}
	if durSince != nil {
		fs = append(fs, zap.Int64("dur_ms", time.Since(*durSince).Milliseconds()))
	}
	l.z.Error(msg, append(fs, fields...)...)
}

// Timer 用于 start→finish 计时。
type Timer struct {
	l      *Logger
	comp   string
	fields []zap.Field
	t0     time.Time
}

// Finish 记录 finish；可选 count。
func (t *Timer) Finish(msg string, count int64) {
	if t == nil || t.l == nil {
		return
	}
	fs := []zap.Field{
		zap.String("comp", t.comp),
		zap.String("stage", "finish"),
		zap.Int64("dur_ms", time.Since(t.t0).Milliseconds()),
	}
	if count > 0 {
		fs = append(fs, zap.Int64("count", count))
	}
	t.l.z.Info(msg, append(fs, t.fields...)...)
	ObserveDuration(t.comp, msg, time.Since(t.t0).Milliseconds())
}

// Fail 记录错误事件并累加错误指标（metrics 在 l 为 nil 时仍累加）。
func (l *Logger) Fail(comp, msg string, err error, fields ...zap.Field) {
	code := Classify(err)
	IncOp(comp, "error", "error")
	if code != CodeUnknown {
		IncError(comp, string(code))
	}
	if l == nil {
		return
	}
	l.Error(comp, string(code), msg, nil, append(fields, zap.Error(err))...)
}

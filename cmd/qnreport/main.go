package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cfgpkg "qnreport/internal/config"
	"qnreport/internal/diag"
	"qnreport/internal/pipeline"
	"qnreport/internal/site"
)

// 测试可替换的运行入口。
var (
	pipelineRun   = pipeline.Run
	siteBootstrap = site.Bootstrap
)

// 退出码：0 成功；1 运行期失败；3 配置/前置条件失败。
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 3
)

// exitError 携带退出码。
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func main() {
	os.Exit(run(os.Args[1:]))
}

// flags 为根命令旗标；数值旗标仅在显式设置时覆盖配置。
type flags struct {
	config      string
	debug       bool
	status      bool
	offline     bool
	concurrency int
	dataDir     string
	siteDir     string
	logLevel    string
	metricsFile string
}

func run(args []string) int {
	// 在任何 ENV 读取前加载工作目录下的 .env（不覆盖已有 ENV）。
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fprintf(os.Stderr, "提示：.env 解析失败（已跳过）：%v\n", err)
		}
	}
	root := newRootCmd()
	root.SetArgs(args)
	err := root.Execute()
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	// cobra 的旗标/参数错误
	fprintf(os.Stderr, "参数错误: %v\n", err)
	return exitConfig
}

func newRootCmd() *cobra.Command {
	var f flags
	root := &cobra.Command{
		Use:           "qnreport",
		Short:         "将院校问卷结果生成为 Hugo 站点页面",
		Long:          "读取问卷 CSV，按院校聚合、对账别名与黑名单，并发渲染在读与归档两个分区的 Markdown 页面。",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReport(cmd, f)
		},
	}
	fl := root.Flags()
	fl.StringVarP(&f.config, "config", "c", "", "配置文件路径（YAML）；缺省读取 ./config.yaml（若存在）")
	fl.BoolVar(&f.debug, "debug", false, "调试模式：每个分区仅随机抽取 sample_size 个院校")
	fl.BoolVar(&f.status, "status", true, "终端状态提示（stderr）。TTY 动态刷新；非 TTY 打点输出")
	fl.BoolVar(&f.offline, "offline", false, "跳过引导下载，仅使用本地数据")
	fl.IntVarP(&f.concurrency, "concurrency", "j", 0, "并发度（覆盖配置；0 表示自动）")
	fl.StringVar(&f.dataDir, "data-dir", "", "数据目录（覆盖配置）")
	fl.StringVar(&f.siteDir, "site-dir", "", "站点目录（覆盖配置）")
	fl.StringVar(&f.logLevel, "log-level", "", "日志等级 debug|info|warn|error（覆盖配置）")
	fl.StringVar(&f.metricsFile, "metrics-file", "", "运行结束时写出 Prometheus textfile 指标（覆盖配置）")

	root.AddCommand(newInitConfigCmd())
	return root
}

func newInitConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-config [dir]",
		Short: "在指定目录生成默认 config.yaml 与 .env 模板（已存在则跳过，不覆盖）",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
				dir = strings.TrimSpace(args[0])
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				fprintf(os.Stderr, "生成默认配置失败: %v\n", err)
				return &exitError{code: exitConfig, err: err}
			}
			if err := writeConfig(filepath.Join(dir, "config.yaml"), cfgpkg.DefaultTemplateConfig()); err != nil {
				fprintf(os.Stderr, "生成默认配置失败: %v\n", err)
				return &exitError{code: exitConfig, err: err}
			}
			if err := writeDotEnv(filepath.Join(dir, ".env")); err != nil {
				fprintf(os.Stderr, "提示：.env 生成失败（已跳过）：%v\n", err)
			}
			return nil
		},
	}
}

// resolveConfigPath: --config > QNREPORT_CONFIG_FILE > ./config.yaml。
func resolveConfigPath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if s := os.Getenv(cfgpkg.EnvPrefix + "CONFIG_FILE"); s != "" {
		return s
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}
	return ""
}

// loadConfig 按 defaults < YAML < ENV < CLI 合并。
func loadConfig(cmd *cobra.Command, f flags) (cfgpkg.Config, error) {
	cfg := cfgpkg.Defaults()
	if p := resolveConfigPath(f.config); p != "" {
		base, err := cfgpkg.LoadYAML(p, nil)
		if err != nil {
			return cfg, fmt.Errorf("配置解析失败: %w", err)
		}
		cfg = cfgpkg.Merge(cfg, base)
	}
	overEnv, err := cfgpkg.EnvOverlay(os.Environ())
	if err != nil {
		return cfg, fmt.Errorf("环境变量解析失败: %w", err)
	}
	cfg = cfgpkg.Merge(cfg, overEnv)

	overCLI := cfgpkg.Config{Concurrency: -1}
	if cmd.Flags().Changed("concurrency") {
		overCLI.Concurrency = f.concurrency
	}
	overCLI.DataDir = f.dataDir
	overCLI.SiteDir = f.siteDir
	overCLI.Logging.Level = f.logLevel
	overCLI.MetricsFile = f.metricsFile
	if f.offline {
		off := false
		overCLI.Download = &off
	}
	return cfgpkg.Merge(cfg, overCLI), nil
}

func runReport(cmd *cobra.Command, f flags) error {
	start := time.Now()
	corrID := uuid.NewString()

	cfg, err := loadConfig(cmd, f)
	if err != nil {
		fprintf(os.Stderr, "%v\n", err)
		return &exitError{code: exitConfig, err: err}
	}
	if err := cfgpkg.Validate(cfg); err != nil {
		fprintf(os.Stderr, "配置校验失败: %v\n", err)
		dumpConfig(cfg)
		return &exitError{code: exitConfig, err: err}
	}

	logger := diag.NewLogger(corrID, diag.Options{Level: cfg.Logging.Level, Dir: cfg.Logging.Dir, Stderr: true})
	defer logger.Sync()

	a, err := cfgpkg.Assemble(cfg, f.debug)
	if err != nil {
		fprintf(os.Stderr, "装配失败: %v\n", err)
		logger.Fail("config", "assemble failed", err)
		return &exitError{code: exitConfig, err: err}
	}
	logger.Debug("config", "effective",
		zap.String("data_dir", a.Data.Root()),
		zap.String("site_dir", a.Site.Root()),
		zap.String("archive_cutoff", cfg.ArchiveCutoff),
		zap.Int("questions", len(cfg.Questionnaire)),
		zap.Int("concurrency", cfg.Concurrency),
		zap.Bool("download", a.Download),
		zap.Bool("debug", f.debug),
	)

	term := diag.NewTerminal(os.Stderr, f.status)
	diag.SetTerminal(term)
	defer diag.SetTerminal(nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := site.EnsureLayout(ctx, a.Site); err != nil {
		fprintf(os.Stderr, "站点目录不可写或无法创建: %v\n", err)
		logger.Fail("site", "layout failed", err)
		return &exitError{code: exitConfig, err: err}
	}
	if a.Download {
		if err := siteBootstrap(ctx, a.Fetcher, a.Data, a.Site, a.Bootstrap, logger); err != nil {
			fprintf(os.Stderr, "引导下载失败: %v\n", err)
			logger.Fail("bootstrap", "download failed", err)
			return &exitError{code: exitRuntime, err: err}
		}
	}

	tm := logger.Start("pipeline", "run", zap.Bool("debug", f.debug))
	sum, err := pipelineRun(ctx, a.Components, a.Settings, logger)
	if err != nil {
		logger.Error("pipeline", string(diag.Classify(err)), "first error", &start, zap.Error(err))
		if !errors.Is(err, context.Canceled) {
			fprintf(os.Stderr, "运行失败: %v\n", err)
		}
		writeMetrics(cfg.MetricsFile, logger)
		code := exitRuntime
		if diag.Classify(err) == diag.CodeConfig {
			code = exitConfig
		}
		return &exitError{code: code, err: err}
	}
	tm.Finish("run", int64(sum.Pages))
	logger.Info("pipeline", "summary",
		zap.Int("rows", sum.Rows),
		zap.Int("active", sum.Active),
		zap.Int("archived", sum.Archived),
		zap.Int("pages", sum.Pages),
		zap.Int("anomalies", sum.Anomalies),
	)
	diag.IncOp("pipeline", "finish", "success")
	diag.ObserveDuration("pipeline", "finish", time.Since(start).Milliseconds())
	writeMetrics(cfg.MetricsFile, logger)
	return nil
}

func writeMetrics(path string, logger *diag.Logger) {
	if err := diag.WriteMetrics(path); err != nil {
		logger.Warn("metrics", "write metrics failed", zap.String("path", path), zap.Error(err))
	}
}

func fprintf(w *os.File, format string, a ...any) { _, _ = fmt.Fprintf(w, format, a...) }

func dumpConfig(c cfgpkg.Config) {
	b, err := cfgpkg.MarshalYAML(c)
	if err != nil {
		return
	}
	_, _ = os.Stderr.Write(append([]byte("有效配置:\n"), b...))
}

// writeConfig 写出 YAML 配置；path 为 "-" 时写到 STDOUT。不覆盖已存在文件。
func writeConfig(path string, c cfgpkg.Config) error {
	b, err := cfgpkg.MarshalYAML(c)
	if err != nil {
		return err
	}
	if path == "-" {
		_, err = os.Stdout.Write(b)
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	_, err = f.Write(b)
	return err
}

// writeDotEnv 生成 .env 模板（已存在则跳过）。
func writeDotEnv(path string) error {
	var b strings.Builder
	b.WriteString("# qnreport .env 模板（由 init-config 生成）\n")
	b.WriteString("# 优先级：CLI > ENV(.env) > YAML > 默认值\n")
	b.WriteString("# 空值表示未设置。\n\n")
	b.WriteString("QNREPORT_CONFIG_FILE=\n\n")
	b.WriteString("# 目录与数据\n")
	for _, k := range []string{"DATA_DIR", "SITE_DIR", "ARCHIVE_CUTOFF", "ALIAS_SEPARATOR", "TRAILING_FIELDS", "QUESTIONNAIRE"} {
		b.WriteString(cfgpkg.EnvPrefix + k + "=\n")
	}
	b.WriteString("\n# 运行参数\n")
	for _, k := range []string{"CONCURRENCY", "SAMPLE_SIZE", "DOWNLOAD", "BASE_URL", "DOC_URL"} {
		b.WriteString(cfgpkg.EnvPrefix + k + "=\n")
	}
	b.WriteString("\n# 观测\n")
	for _, k := range []string{"LOG_LEVEL", "LOG_DIR", "METRICS_FILE"} {
		b.WriteString(cfgpkg.EnvPrefix + k + "=\n")
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	_, err = f.WriteString(b.String())
	return err
}

package config

import (
	"bytes"
	"time"

	"gopkg.in/yaml.v3"

	"qnreport/plugins/fetcher/httpget"
	"qnreport/plugins/reader/csvrows"
	"qnreport/plugins/writer/filesystem"
)

// DefaultTemplateConfig 返回一个“可运行”的默认配置模板：
// - 数据目录 ./required，站点目录 ./site；
// - 启用引导下载；
// - 组件选项给出全部键及中性默认值。
func DefaultTemplateConfig() Config {
	cfg := Defaults()
	atomic := true
	cfg.MetricsFile = ""
	cfg.Options = Options{
		Reader: csvrows.Options{BufSize: 64 * 1024, LazyQuotes: false},
		Writer: filesystem.Options{Atomic: &atomic, PermFile: 0o644, PermDir: 0o755, BufSize: 64 * 1024},
		Fetcher: httpget.Options{
			Timeout:   30 * time.Second,
			MaxTries:  3,
			BaseDelay: 500 * time.Millisecond,
			UserAgent: "qnreport",
			RPM:       60,
		},
	}
	return cfg
}

// MarshalYAML 以两空格缩进编码配置。
func MarshalYAML(c Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

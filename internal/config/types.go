package config

import (
	"qnreport/plugins/fetcher/httpget"
	"qnreport/plugins/reader/csvrows"
	"qnreport/plugins/renderer/hugo"
	"qnreport/plugins/writer/filesystem"
)

// Config 为运行期只读配置（一次解析，运行期不变）。
// YAML 使用 snake_case；未知字段在解析期失败。
type Config struct {
	// DataDir 为问卷数据与名单所在目录；Files 中的相对路径相对于它。
	DataDir string `yaml:"data_dir"`
	// SiteDir 为 Hugo 站点根目录。
	SiteDir string `yaml:"site_dir"`
	// ArchiveCutoff 早于该时间提交的问卷进入归档分区，格式 2006-01-02 15:04:05。
	ArchiveCutoff string   `yaml:"archive_cutoff"`
	Questionnaire []string `yaml:"questionnaire"`
	// Concurrency 为 0 时按 CPU 自动取值；-1 表示未设置（覆盖层专用）。
	Concurrency int `yaml:"concurrency"`
	// SampleSize 为调试模式下每个分区的抽样数。
	SampleSize int `yaml:"sample_size"`
	// TrailingFields 为问卷行尾固定块长度。
	TrailingFields int    `yaml:"trailing_fields"`
	AliasSeparator string `yaml:"alias_separator"`
	Files          Files  `yaml:"files"`

	// Download 为 nil 时视为 true：运行前拉取缺失的数据文件与文档。
	Download      *bool    `yaml:"download"`
	BaseURL       string   `yaml:"base_url"`
	DocURL        string   `yaml:"doc_url"`
	RequiredFiles []string `yaml:"required_files"`
	RequiredDocs  []string `yaml:"required_docs"`

	Logging     Logging `yaml:"logging"`
	MetricsFile string  `yaml:"metrics_file"`

	// Options 为各组件的选项子树。
	Options Options `yaml:"options"`
}

// Files 为数据目录下的输入文件名。
type Files struct {
	Results   string `yaml:"results"`
	Colleges  string `yaml:"colleges"`
	Alias     string `yaml:"alias"`
	Blacklist string `yaml:"blacklist"`
	Whitelist string `yaml:"whitelist"`
}

// Logging 日志等级与目录；轮转策略为固定默认。
type Logging struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

// Options 各组件选项。Writer.Root 由装配层按 site_dir / data_dir 填充。
type Options struct {
	Reader   csvrows.Options    `yaml:"reader"`
	Writer   filesystem.Options `yaml:"writer"`
	Renderer hugo.Options       `yaml:"renderer"`
	Fetcher  httpget.Options    `yaml:"fetcher"`
}

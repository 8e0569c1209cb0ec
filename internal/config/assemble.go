package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"qnreport/internal/pipeline"
	"qnreport/internal/reconcile"
	"qnreport/internal/site"
	"qnreport/internal/survey"
	"qnreport/pkg/contract"
	"qnreport/plugins/fetcher/httpget"
	"qnreport/plugins/normalizer/zhname"
	"qnreport/plugins/reader/csvrows"
	"qnreport/plugins/renderer/hugo"
	"qnreport/plugins/writer/filesystem"
)

// Validate 对最小必要边界做静态校验。
func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.DataDir) == "" {
		return errors.New("config: data_dir empty")
	}
	if strings.TrimSpace(cfg.SiteDir) == "" {
		return errors.New("config: site_dir empty")
	}
	if len(cfg.Questionnaire) == 0 {
		return errors.New("config: questionnaire empty")
	}
	for i, q := range cfg.Questionnaire {
		if strings.TrimSpace(q) == "" {
			return fmt.Errorf("config: questionnaire[%d] empty", i)
		}
	}
	if _, err := parseCutoff(cfg.ArchiveCutoff); err != nil {
		return fmt.Errorf("config: archive_cutoff: %w", err)
	}
	if cfg.Concurrency < 0 {
		return errors.New("config: concurrency must be >= 0")
	}
	if cfg.SampleSize < 1 {
		return errors.New("config: sample_size must be >= 1")
	}
	if cfg.TrailingFields < 2 {
		return errors.New("config: trailing_fields must be >= 2")
	}
	if cfg.AliasSeparator == "" {
		return errors.New("config: alias_separator empty")
	}
	if strings.TrimSpace(cfg.Files.Results) == "" || strings.TrimSpace(cfg.Files.Colleges) == "" {
		return errors.New("config: files.results and files.colleges are required")
	}
	if cfg.Download != nil && *cfg.Download && strings.TrimSpace(cfg.BaseURL) == "" {
		return errors.New("config: base_url required when download is enabled")
	}
	return nil
}

func parseCutoff(s string) (time.Time, error) {
	return time.Parse(survey.TimeLayout, strings.TrimSpace(s))
}

// Assembled 为装配结果：流水线组件与设置，以及引导阶段所需的存储与拉取器。
type Assembled struct {
	Components pipeline.Components
	Settings   pipeline.Settings
	// Download 为 false 时跳过引导下载。
	Download  bool
	Bootstrap site.BootstrapOptions
	Fetcher   contract.Fetcher
	Data      *filesystem.FS
	Site      *filesystem.FS
}

// Assemble 校验并构造全部组件。debug 开启调试抽样。
func Assemble(cfg Config, debug bool) (Assembled, error) {
	var out Assembled
	if err := Validate(cfg); err != nil {
		return out, err
	}
	cutoff, _ := parseCutoff(cfg.ArchiveCutoff)

	rowsOpts := cfg.Options.Reader
	rowsOpts.SkipHeader = true
	tableOpts := cfg.Options.Reader
	tableOpts.SkipHeader = false

	rnd, err := hugo.New(&cfg.Options.Renderer)
	if err != nil {
		return out, err
	}
	siteOpts := cfg.Options.Writer
	siteOpts.Root = cfg.SiteDir
	siteFS, err := filesystem.New(&siteOpts)
	if err != nil {
		return out, fmt.Errorf("site writer: %w", err)
	}
	dataOpts := cfg.Options.Writer
	dataOpts.Root = cfg.DataDir
	dataFS, err := filesystem.New(&dataOpts)
	if err != nil {
		return out, fmt.Errorf("data writer: %w", err)
	}

	out.Components = pipeline.Components{
		Rows:       csvrows.New(&rowsOpts),
		Table:      csvrows.New(&tableOpts),
		Normalizer: zhname.New(),
		Renderer:   rnd,
		Writer:     siteFS,
	}
	out.Settings = pipeline.Settings{
		Results:  dataPath(cfg.DataDir, cfg.Files.Results),
		Colleges: dataPath(cfg.DataDir, cfg.Files.Colleges),
		Lists: reconcile.ListPaths{
			Alias:     dataPath(cfg.DataDir, cfg.Files.Alias),
			Blacklist: dataPath(cfg.DataDir, cfg.Files.Blacklist),
			Whitelist: dataPath(cfg.DataDir, cfg.Files.Whitelist),
		},
		AliasSeparator: cfg.AliasSeparator,
		Questionnaire:  cloneStrings(cfg.Questionnaire),
		TrailingFields: cfg.TrailingFields,
		ArchiveCutoff:  cutoff,
		Concurrency:    cfg.Concurrency,
		Debug:          debug,
		SampleSize:     cfg.SampleSize,
	}
	out.Download = cfg.Download == nil || *cfg.Download
	out.Bootstrap = site.BootstrapOptions{
		BaseURL:       cfg.BaseURL,
		DocURL:        cfg.DocURL,
		RequiredFiles: cloneStrings(cfg.RequiredFiles),
		RequiredDocs:  cloneStrings(cfg.RequiredDocs),
	}
	out.Fetcher = httpget.New(&cfg.Options.Fetcher)
	out.Data = dataFS
	out.Site = siteFS
	return out, nil
}

// dataPath 将相对文件名解析到数据目录；"-" 与绝对路径原样返回，空串表示不使用该文件。
func dataPath(dir, name string) string {
	name = strings.TrimSpace(name)
	if name == "" || name == "-" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadYAML(t *testing.T) {
	raw := []byte(`
data_dir: data
site_dir: out/site
archive_cutoff: "2022-09-01 00:00:00"
questionnaire: ["Q1", "Q2"]
concurrency: 0
files:
  results: r.csv
download: false
logging:
  level: debug
options:
  fetcher:
    timeout: 5s
    max_tries: 2
`)
	cfg, err := LoadYAML("", raw)
	require.NoError(t, err)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, []string{"Q1", "Q2"}, cfg.Questionnaire)
	assert.Equal(t, 0, cfg.Concurrency)
	assert.Equal(t, "r.csv", cfg.Files.Results)
	require.NotNil(t, cfg.Download)
	assert.False(t, *cfg.Download)
	assert.Equal(t, 5*time.Second, cfg.Options.Fetcher.Timeout)
	assert.Equal(t, uint(2), cfg.Options.Fetcher.MaxTries)

	merged := Merge(Defaults(), cfg)
	assert.Equal(t, "colleges.csv", merged.Files.Colleges)
	assert.Equal(t, "debug", merged.Logging.Level)
	assert.Equal(t, "logs", merged.Logging.Dir)
	require.NoError(t, Validate(merged))
}

func TestLoadYAMLUnknownField(t *testing.T) {
	_, err := LoadYAML("", []byte("unknown: 1\n"))
	assert.Error(t, err)
	_, err = LoadYAML("", nil)
	assert.Error(t, err)
	_, err = LoadYAML(filepath.Join(t.TempDir(), "none.yaml"), nil)
	assert.Error(t, err)
}

// 未设置的 concurrency 不应覆盖已有值；显式 0 表示自动
func TestMergeConcurrency(t *testing.T) {
	base := Defaults()
	base.Concurrency = 8
	cfg, err := LoadYAML("", []byte("sample_size: 5\n"))
	require.NoError(t, err)
	assert.Equal(t, 8, Merge(base, cfg).Concurrency)

	cfg, err = LoadYAML("", []byte("concurrency: 0\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, Merge(base, cfg).Concurrency)
}

func TestEnvOverlay(t *testing.T) {
	env := []string{
		"QNREPORT_DATA_DIR=/d",
		"QNREPORT_CONCURRENCY=3",
		"QNREPORT_DOWNLOAD=false",
		"QNREPORT_QUESTIONNAIRE=Q1| Q2 |",
		"QNREPORT_LOG_LEVEL=warn",
		"QNREPORT_CONFIG_FILE=x.yaml",
		"QNREPORT_SITE_DIR=",
		"OTHER=1",
	}
	over, err := EnvOverlay(env)
	require.NoError(t, err)
	assert.Equal(t, "/d", over.DataDir)
	assert.Equal(t, 3, over.Concurrency)
	require.NotNil(t, over.Download)
	assert.False(t, *over.Download)
	assert.Equal(t, []string{"Q1", "Q2"}, over.Questionnaire)

	cfg := Merge(Defaults(), over)
	assert.Equal(t, "site", cfg.SiteDir)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, 100, cfg.SampleSize)

	_, err = EnvOverlay([]string{"QNREPORT_CONCURRENCY=many"})
	assert.Error(t, err)
	_, err = EnvOverlay([]string{"QNREPORT_DOWNLOAD=maybe"})
	assert.Error(t, err)

	over, err = EnvOverlay(nil)
	require.NoError(t, err)
	assert.Equal(t, 8, Merge(Config{Concurrency: 8}, over).Concurrency)
}

func TestDefaults(t *testing.T) {
	d := Defaults()
	assert.Len(t, d.Questionnaire, 25)
	assert.Equal(t, "🚮", d.AliasSeparator)
	assert.Equal(t, 9, d.TrailingFields)
	require.NoError(t, Validate(d))

	// 默认题目列表不应被修改
	d.Questionnaire[0] = "x"
	assert.NotEqual(t, "x", Defaults().Questionnaire[0])
}

func TestValidateErrors(t *testing.T) {
	cases := map[string]func(*Config){
		"data_dir":        func(c *Config) { c.DataDir = " " },
		"site_dir":        func(c *Config) { c.SiteDir = "" },
		"questionnaire":   func(c *Config) { c.Questionnaire = nil },
		"blank question":  func(c *Config) { c.Questionnaire = []string{"Q", " "} },
		"cutoff":          func(c *Config) { c.ArchiveCutoff = "2023/01/01" },
		"concurrency":     func(c *Config) { c.Concurrency = -2 },
		"sample_size":     func(c *Config) { c.SampleSize = 0 },
		"trailing_fields": func(c *Config) { c.TrailingFields = 1 },
		"separator":       func(c *Config) { c.AliasSeparator = "" },
		"results":         func(c *Config) { c.Files.Results = "" },
		"base_url":        func(c *Config) { c.BaseURL = "" },
	}
	for name, mut := range cases {
		cfg := Defaults()
		mut(&cfg)
		assert.Error(t, Validate(cfg), name)
	}
}

func TestTemplateRoundTrip(t *testing.T) {
	b, err := MarshalYAML(DefaultTemplateConfig())
	require.NoError(t, err)
	cfg, err := LoadYAML("", b)
	require.NoError(t, err)
	assert.Equal(t, DefaultTemplateConfig(), Merge(Defaults(), cfg))
}

func TestAssemble(t *testing.T) {
	cfg := DefaultTemplateConfig()
	dir := t.TempDir()
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.SiteDir = filepath.Join(dir, "site")
	cfg.Files.Whitelist = ""
	cfg.Files.Blacklist = "/abs/black.txt"
	off := false
	cfg.Download = &off

	a, err := Assemble(cfg, true)
	require.NoError(t, err)
	assert.False(t, a.Download)
	assert.True(t, a.Settings.Debug)
	assert.Equal(t, filepath.Join(cfg.DataDir, "results_desensitized.csv"), a.Settings.Results)
	assert.Equal(t, filepath.Join(cfg.DataDir, "colleges.csv"), a.Settings.Colleges)
	assert.Equal(t, "", a.Settings.Lists.Whitelist)
	assert.Equal(t, "/abs/black.txt", a.Settings.Lists.Blacklist)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), a.Settings.ArchiveCutoff)
	assert.Equal(t, cfg.SiteDir, a.Site.Root())
	assert.Equal(t, cfg.DataDir, a.Data.Root())
	assert.NotNil(t, a.Components.Rows)
	assert.NotNil(t, a.Components.Table)
	assert.NotNil(t, a.Fetcher)
	assert.Len(t, a.Bootstrap.RequiredDocs, 3)

	cfg.Options.Renderer.TemplateFile = filepath.Join(dir, "missing.tmpl")
	_, err = Assemble(cfg, false)
	assert.Error(t, err)

	cfg = Defaults()
	cfg.Questionnaire = nil
	_, err = Assemble(cfg, false)
	assert.Error(t, err)
}

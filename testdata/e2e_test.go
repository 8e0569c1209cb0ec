package testdata

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	cfgpkg "qnreport/internal/config"
	"qnreport/internal/diag"
	"qnreport/internal/pipeline"
	"qnreport/internal/slug"
)

// baseConfig 以 files/ 下的样例数据构造离线配置，站点输出到 siteDir。
func baseConfig(siteDir string) cfgpkg.Config {
	cfg := cfgpkg.DefaultTemplateConfig()
	off := false
	cfg.Download = &off
	cfg.DataDir = "files"
	cfg.SiteDir = siteDir
	cfg.Questionnaire = []string{"宿舍？", "空调？"}
	cfg.TrailingFields = 3
	cfg.Concurrency = 4
	cfg.Logging.Level = "error"
	return cfg
}

func runPipeline(t *testing.T, cfg cfgpkg.Config, debug bool) (pipeline.Summary, *observer.ObservedLogs, error) {
	t.Helper()
	a, err := cfgpkg.Assemble(cfg, debug)
	require.NoError(t, err)
	core, logs := observer.New(zap.DebugLevel)
	sum, err := pipeline.Run(context.Background(), a.Components, a.Settings, diag.NewWithCore(core))
	return sum, logs, err
}

func readPage(t *testing.T, siteDir, rel string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(siteDir, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(b)
}

func TestE2ESuccess(t *testing.T) {
	siteDir := t.TempDir()
	sum, logs, err := runPipeline(t, baseConfig(siteDir), false)
	require.NoError(t, err)

	assert.Equal(t, pipeline.Summary{Rows: 6, Active: 3, Archived: 1, Pages: 4, Anomalies: 2}, sum)

	want := "---\n" +
		"title: \"XX大学\"\n" +
		"slug: \"" + slug.Base("XX大学") + "\"\n" +
		"description: 来自 colleges.chat 的XX大学 问卷调查信息\n" +
		"---\n\n" +
		"> 本页面内容来源于问卷，仅供参考。\n\n" +
		"> 数据来源：\n" +
		"<details><summary>展开</summary>\n" +
		"<ul>\n" +
		"<li>A1: 匿名 (2023 年 03 月)</li>\n" +
		"<li>A2: a@b.c (2023 年 04 月)</li>\n" +
		"</ul>\n" +
		"</details>\n\n" +
		"## Q: 宿舍？\n\n" +
		"- A1: 四人间\n" +
		"- A2: 六人间\n" +
		"## Q: 空调？\n\n" +
		"- A1: 有\n" +
		"- A2: 无\n" +
		"\n## 自由补充\n\n" +
		"A2: 不错\n\n"
	assert.Equal(t, want, readPage(t, siteDir, "content/docs/universities/北京/XX大学.md"))

	archived := readPage(t, siteDir, "content/docs/archived/universities/广东/乙学院.md")
	assert.Contains(t, archived, "title: \"乙学院 (已归档)\"")
	assert.Contains(t, archived, "<li>A3: 匿名 (2022 年 05 月)</li>")
	assert.Contains(t, archived, `- A3: 四\_人`)
	assert.NotContains(t, archived, "自由补充")

	assert.FileExists(t, filepath.Join(siteDir, "content/docs/universities/其他/垃圾测试.md"))
	assert.FileExists(t, filepath.Join(siteDir, "content/docs/universities/其他/奇怪名字.md"))
	assert.NoFileExists(t, filepath.Join(siteDir, "content/docs/universities/其他/广告学校.md"))
	assert.NoFileExists(t, filepath.Join(siteDir, "content/docs/universities/北京/XX大学分校区.md"))
	assert.FileExists(t, filepath.Join(siteDir, "content/docs/universities/北京/_index.md"))
	assert.FileExists(t, filepath.Join(siteDir, "content/docs/archived/universities/广东/_index.md"))

	invalid := logs.FilterMessage("maybe invalid").All()
	require.Len(t, invalid, 1)
	assert.Equal(t, "垃圾测试", invalid[0].ContextMap()["name"])
	assert.Equal(t, "A4", invalid[0].ContextMap()["ids"])
	assert.Equal(t, 1, logs.FilterMessage("alias primary missing").Len())
}

// 重复运行结果一致；已存在的地区占位文件不被清空
func TestE2EIdempotent(t *testing.T) {
	siteDir := t.TempDir()
	cfg := baseConfig(siteDir)
	_, _, err := runPipeline(t, cfg, false)
	require.NoError(t, err)
	first := readPage(t, siteDir, "content/docs/universities/北京/XX大学.md")

	idx := filepath.Join(siteDir, "content/docs/universities/北京/_index.md")
	require.NoError(t, os.WriteFile(idx, []byte("---\ntitle: 北京\n---\n"), 0o644))

	_, _, err = runPipeline(t, cfg, false)
	require.NoError(t, err)
	assert.Equal(t, first, readPage(t, siteDir, "content/docs/universities/北京/XX大学.md"))
	b, err := os.ReadFile(idx)
	require.NoError(t, err)
	assert.Equal(t, "---\ntitle: 北京\n---\n", string(b))
}

func TestE2EDebugSample(t *testing.T) {
	siteDir := t.TempDir()
	cfg := baseConfig(siteDir)
	cfg.SampleSize = 1
	sum, _, err := runPipeline(t, cfg, true)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Archived)
	assert.LessOrEqual(t, sum.Active, 1)
	assert.Equal(t, sum.Active+sum.Archived, sum.Pages)
}

func TestE2EQuestionCountMismatch(t *testing.T) {
	cfg := baseConfig(t.TempDir())
	cfg.Questionnaire = []string{"宿舍？"}
	_, _, err := runPipeline(t, cfg, false)
	require.Error(t, err)
	assert.Equal(t, diag.CodeInput, diag.Classify(err))
}

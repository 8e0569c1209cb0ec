package hugo

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qnreport/pkg/contract"
)

func render(t *testing.T, r *Renderer, p contract.Page) string {
	t.Helper()
	rd, err := r.Render(context.Background(), p)
	require.NoError(t, err)
	b, err := io.ReadAll(rd)
	require.NoError(t, err)
	return string(b)
}

func TestRenderFull(t *testing.T) {
	r, err := New(nil)
	require.NoError(t, err)
	p := contract.Page{
		Name:     "甲大学",
		Slug:     "jia-da-xue",
		Archived: true,
		Credits:  []string{"A1: a@b.c (2022 年 05 月)", "A2: 匿名 (2022 年 06 月)"},
		Sections: []contract.Section{
			{Question: "宿舍？", Answers: []string{"A1: 上床_下桌", "A2: *四人*"}},
			{Question: "空调？"},
		},
		Extra: []string{"A2: ~好~"},
	}
	want := "---\n" +
		"title: \"甲大学 (已归档)\"\n" +
		"slug: \"jia-da-xue\"\n" +
		"description: 来自 colleges.chat 的甲大学 问卷调查信息\n" +
		"---\n\n" +
		"> 本页面内容来源于问卷，仅供参考。\n\n" +
		"> 数据来源：\n<details><summary>展开</summary>\n<ul>\n" +
		"<li>A1: a@b.c (2022 年 05 月)</li>\n" +
		"<li>A2: 匿名 (2022 年 06 月)</li>\n" +
		"</ul>\n</details>\n\n" +
		"## Q: 宿舍？\n\n" +
		"- A1: 上床\\_下桌\n" +
		"- A2: \\*四人\\*\n" +
		"## Q: 空调？\n\n" +
		"\n## 自由补充\n\n" +
		"A2: \\~好\\~\n\n"
	assert.Equal(t, want, render(t, r, p))
}

func TestRenderNoExtraNotArchived(t *testing.T) {
	r, err := New(nil)
	require.NoError(t, err)
	out := render(t, r, contract.Page{Name: "乙学院", Slug: "yi", Sections: []contract.Section{{Question: "Q1"}}})
	assert.Contains(t, out, "title: \"乙学院\"\n")
	assert.NotContains(t, out, "自由补充")
	assert.Equal(t, "## Q: Q1\n\n", out[len(out)-len("## Q: Q1\n\n"):])
}

func TestTemplateFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "page.tmpl")
	require.NoError(t, os.WriteFile(p, []byte("{{.Slug}}|{{escape .Name}}"), 0o644))
	r, err := New(&Options{TemplateFile: p})
	require.NoError(t, err)
	assert.Equal(t, "s|a\\_b", render(t, r, contract.Page{Name: "a_b", Slug: "s"}))

	require.NoError(t, os.WriteFile(p, []byte("{{.Slug"), 0o644))
	_, err = New(&Options{TemplateFile: p})
	assert.ErrorIs(t, err, contract.ErrInvalidInput)

	_, err = New(&Options{TemplateFile: filepath.Join(t.TempDir(), "none")})
	assert.Error(t, err)
}

func TestRenderCanceled(t *testing.T) {
	r, err := New(nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Render(ctx, contract.Page{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEscape(t *testing.T) {
	assert.Equal(t, `a\*b\~c\_d`, Escape("a*b~c_d"))
	assert.Equal(t, "无", Escape("无"))
}

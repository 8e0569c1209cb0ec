// Package hugo 将院校页面渲染为带 front matter 的 Hugo Markdown。
package hugo

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"

	"qnreport/pkg/contract"
)

// DefaultTemplate 为内置页面模板。回答与自由补充经 escape 转义 Markdown 强调符号；署名原样输出。
const DefaultTemplate = `---
title: "{{.Name}}{{if .Archived}} (已归档){{end}}"
slug: "{{.Slug}}"
description: 来自 colleges.chat 的{{.Name}} 问卷调查信息
---

> 本页面内容来源于问卷，仅供参考。

> 数据来源：
<details><summary>展开</summary>
<ul>
{{range .Credits}}<li>{{.}}</li>
{{end}}</ul>
</details>

{{range .Sections}}## Q: {{.Question}}

{{range .Answers}}- {{escape .}}
{{end}}{{end}}{{if .Extra}}
## 自由补充

{{range .Extra}}{{escape .}}

{{end}}{{end}}`

// Options 为渲染器选项。
type Options struct {
	// TemplateFile 非空时从该文件读取模板替代内置模板。
	TemplateFile string `yaml:"template_file,omitempty"`
}

// Renderer 无状态（模板只读），并发安全。
type Renderer struct {
	tpl *template.Template
}

var escaper = strings.NewReplacer(`*`, `\*`, `~`, `\~`, `_`, `\_`)

// Escape 转义 Markdown 的 * ~ _。
func Escape(s string) string { return escaper.Replace(s) }

// New 解析模板；opts 可为 nil。
func New(opts *Options) (*Renderer, error) {
	src := DefaultTemplate
	if opts != nil && strings.TrimSpace(opts.TemplateFile) != "" {
		b, err := os.ReadFile(opts.TemplateFile)
		if err != nil {
			return nil, fmt.Errorf("hugo: read template: %w", err)
		}
		src = string(b)
	}
	tpl, err := template.New("page").Funcs(template.FuncMap{"escape": Escape}).Option("missingkey=error").Parse(src)
	if err != nil {
		return nil, fmt.Errorf("%w: hugo template: %v", contract.ErrInvalidInput, err)
	}
	return &Renderer{tpl: tpl}, nil
}

var _ contract.Renderer = (*Renderer)(nil)

// Render 渲染单个页面；输出完整缓冲在内存中后返回。
func (r *Renderer) Render(ctx context.Context, p contract.Page) (io.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := r.tpl.Execute(&buf, p); err != nil {
		return nil, fmt.Errorf("hugo: render %q: %w", p.Name, err)
	}
	return &buf, nil
}

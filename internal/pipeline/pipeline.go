package pipeline

import (
	"context"
	"fmt"
	"math/rand/v2"
	"path"
	"runtime"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"qnreport/internal/diag"
	"qnreport/internal/reconcile"
	"qnreport/internal/region"
	"qnreport/internal/site"
	"qnreport/internal/slug"
	"qnreport/internal/survey"
	"qnreport/pkg/contract"
)

// - 单点并发：仅 RenderSection 管理并发与背压；组件均为同步实现。
// - 任务规划（slug、地区、路径）单线程完成，slug 分配无需加锁。
// - 首错取消：任一任务失败即取消分发；排空在途任务后返回首个错误。
// - 进度由协调者统一计数，worker 不共享计数器。

// Components 聚合运行所需的组件。
type Components struct {
	// Rows 读取问卷结果（跳过表头）。
	Rows contract.RowReader
	// Table 读取院校地区表（无表头）。
	Table      contract.RowReader
	Normalizer contract.Normalizer
	Renderer   contract.Renderer
	// Writer 以站点根目录为根。
	Writer contract.Writer
}

// Settings 为运行期配置。
type Settings struct {
	Results        string
	Colleges       string
	Lists          reconcile.ListPaths
	AliasSeparator string
	Questionnaire  []string
	TrailingFields int
	ArchiveCutoff  time.Time
	// Concurrency <=0 时按 CPU 自动取值。
	Concurrency int
	Debug       bool
	SampleSize  int
	// Rand 为调试抽样的随机源；nil 时使用随机种子。
	Rand *rand.Rand
}

// Summary 为一次运行的统计。
type Summary struct {
	Rows      int
	Active    int
	Archived  int
	Pages     int
	Anomalies int
}

// AutoConcurrency 返回 min(32, max(1, NumCPU*4))。
func AutoConcurrency() int {
	return min(32, max(1, runtime.NumCPU()*4))
}

// Run 执行完整批处理：地区表 → 读取并分区 → (调试抽样) → 对账 → 渲染在读与归档两个分区。
// 结构性错误（行格式、缺失文件、写入失败）终止运行；数据质量问题仅记录。
func Run(ctx context.Context, comp Components, set Settings, logger *diag.Logger) (Summary, error) {
	var sum Summary
	if err := sanity(comp, set); err != nil {
		return sum, fmt.Errorf("sanity: %w", err)
	}
	workers := set.Concurrency
	if workers <= 0 {
		workers = AutoConcurrency()
	}
	mode := "full"
	if set.Debug {
		mode = "debug"
	}
	runStart := time.Now()
	ok := false
	if t := diag.GetTerminal(); t != nil {
		t.RunStart(workers, mode)
		defer func() { t.RunFinish(ok, time.Since(runStart)) }()
	}

	tm := logger.Start("region", "load", zap.String("path", set.Colleges))
	regions, err := region.Load(ctx, comp.Table, set.Colleges, region.KeyFor(comp.Normalizer))
	if err != nil {
		logger.Fail("region", "load failed", err)
		return sum, err
	}
	tm.Finish("load", int64(regions.Len()))
	logger.Debug("region", "regions", zap.Strings("regions", regions.Regions()))

	part, rows, err := load(ctx, comp, set, logger)
	sum.Rows = rows
	if err != nil {
		return sum, err
	}

	if set.Debug {
		rng := set.Rand
		if rng == nil {
			rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		}
		part.Active = part.Active.Sample(set.SampleSize, rng)
		part.Archived = part.Archived.Sample(set.SampleSize, rng)
		logger.Info("pipeline", "debug sample",
			zap.Int("active", part.Active.Len()),
			zap.Int("archived", part.Archived.Len()),
			zap.Strings("names", append(part.Active.Names(), part.Archived.Names()...)),
		)
	}

	lists, err := reconcile.LoadLists(set.Lists, set.AliasSeparator, comp.Normalizer)
	if err != nil {
		logger.Fail("reconcile", "load lists failed", err)
		return sum, fmt.Errorf("lists: %w", err)
	}
	for _, p := range []struct {
		name string
		reg  *survey.Registry
	}{{site.SectionActive, part.Active}, {site.SectionArchived, part.Archived}} {
		tm := logger.Start("reconcile", "apply", zap.String("section", p.name))
		rep, err := reconcile.Apply(p.reg, lists, logger)
		if err != nil {
			logger.Fail("reconcile", "apply failed", err, zap.String("section", p.name))
			return sum, fmt.Errorf("reconcile %s: %w", p.name, err)
		}
		sum.Anomalies += rep.MissingPrimary + len(rep.Anomalies)
		tm.Finish("apply", int64(rep.Merged+rep.Removed))
	}
	sum.Active = part.Active.Len()
	sum.Archived = part.Archived.Len()

	for _, sec := range []Section{
		{Archived: false, Registry: part.Active},
		{Archived: true, Registry: part.Archived},
	} {
		sec.Questions = set.Questionnaire
		sec.Regions = regions
		sec.Concurrency = workers
		rep, err := RenderSection(ctx, comp, sec, logger)
		sum.Pages += rep.Written
		sum.Anomalies += rep.Illegal
		if err != nil {
			return sum, err
		}
	}
	ok = true
	return sum, nil
}

// load 逐行解析问卷并按截止时间分区；返回已读取的数据行数。
func load(ctx context.Context, comp Components, set Settings, logger *diag.Logger) (*survey.Partition, int, error) {
	tm := logger.Start("loader", "read", zap.String("path", set.Results))
	part := survey.NewPartition(set.ArchiveCutoff, len(set.Questionnaire))
	format := survey.RowFormat{Questions: len(set.Questionnaire), TrailingFields: set.TrailingFields}
	rows := 0
	err := comp.Rows.Iterate(ctx, set.Results, func(row []string) error {
		rows++
		resp, err := survey.ParseRow(row, format, comp.Normalizer)
		if err != nil {
			return fmt.Errorf("row %d: %w", rows, err)
		}
		if err := part.Add(resp); err != nil {
			return fmt.Errorf("row %d: %w", rows, err)
		}
		return nil
	})
	if err != nil {
		logger.Fail("loader", "read failed", err, zap.String("path", set.Results))
		return nil, rows, fmt.Errorf("load %s: %w", set.Results, err)
	}
	tm.Finish("read", int64(rows))
	logger.Info("loader", "partitioned", zap.Int("active", part.Active.Len()), zap.Int("archived", part.Archived.Len()))
	return part, rows, nil
}

// Section 描述一个待渲染分区。
type Section struct {
	Archived    bool
	Registry    *survey.Registry
	Questions   []string
	Regions     *region.Table
	Concurrency int
}

type task struct {
	name   string
	uni    *survey.University
	slug   string
	target contract.ArtifactID
}

// plan 单线程完成 slug 分配、地区查找与路径清理。每个分区使用独立的 slug 分配器。
// 返回任务列表与被清理的文件名数。
func plan(sec Section, logger *diag.Logger) ([]task, int) {
	illegal := 0
	assigner := slug.NewAssigner()
	tasks := make([]task, 0, sec.Registry.Len())
	sec.Registry.Each(func(name string, u *survey.University) bool {
		s := assigner.Assign(name)
		rg := region.Other
		if sec.Regions != nil {
			rg = sec.Regions.Lookup(name)
		}
		target, changed := site.PagePath(rg, name, sec.Archived)
		if changed {
			illegal++
			diag.IncAnomaly("illegal_filename")
			logger.Error("site", "", "filename may be illegal", nil, zap.String("name", name), zap.String("target", string(target)))
		}
		tasks = append(tasks, task{name: name, uni: u, slug: s, target: target})
		return true
	})
	return tasks, illegal
}

// SectionReport 为分区渲染统计。
type SectionReport struct {
	Total   int
	Written int
	Illegal int
}

// RenderSection 渲染并写出一个分区的全部页面。
// 父目录占位文件在分发前逐目录创建一次；随后以有界并发渲染与写出。
// 出错时已完成的页面保留在磁盘上，Written 为其数量。
func RenderSection(ctx context.Context, comp Components, sec Section, logger *diag.Logger) (SectionReport, error) {
	var rep SectionReport
	name := site.SectionName(sec.Archived)
	if sec.Registry == nil {
		return rep, fmt.Errorf("%w: nil registry for %s", contract.ErrInvariantViolation, name)
	}
	if len(sec.Questions) != sec.Registry.Questions() {
		return rep, fmt.Errorf("%w: %d questions for registry of %d", contract.ErrInvariantViolation, len(sec.Questions), sec.Registry.Questions())
	}
	workers := sec.Concurrency
	if workers <= 0 {
		workers = AutoConcurrency()
	}

	tasks, illegal := plan(sec, logger)
	total := len(tasks)
	rep.Total, rep.Illegal = total, illegal

	tm := logger.Start("pipeline", "render", zap.String("section", name), zap.Int("total", total), zap.Int("workers", workers))
	t0 := time.Now()
	term := diag.GetTerminal()
	term.SectionStart(name, total)
	ok := false
	defer func() { term.SectionFinish(ok, time.Since(t0)) }()

	if err := touchIndexes(ctx, comp.Writer, tasks); err != nil {
		logger.Fail("writer", "touch failed", err, zap.String("section", name))
		return rep, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	results := make(chan error, workers)
	var firstErr error
	go func() {
		for _, tk := range tasks {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				err := renderOne(gctx, comp, sec, tk)
				results <- err
				return err
			})
		}
		firstErr = g.Wait()
		close(results)
	}()

	for err := range results {
		if err != nil {
			continue
		}
		rep.Written++
		term.SectionProgress(rep.Written, total)
	}
	if firstErr != nil {
		logger.Fail("pipeline", "render failed", firstErr, zap.String("section", name), zap.Int("written", rep.Written))
		return rep, fmt.Errorf("render %s: %w", name, firstErr)
	}
	if err := ctx.Err(); err != nil {
		return rep, err
	}
	ok = true
	tm.Finish("render", int64(rep.Written))
	diag.IncOp("pipeline", "render", "success")
	return rep, nil
}

func renderOne(ctx context.Context, comp Components, sec Section, tk task) error {
	page := buildPage(tk.name, tk.slug, sec.Archived, sec.Questions, tk.uni)
	r, err := comp.Renderer.Render(ctx, page)
	if err != nil {
		return fmt.Errorf("render %q: %w", tk.name, err)
	}
	if err := comp.Writer.Write(ctx, tk.target, r); err != nil {
		return fmt.Errorf("write %s: %w", tk.target, err)
	}
	return nil
}

// touchIndexes 对每个不同的父目录创建一次 _index.md 占位（按路径排序）。
func touchIndexes(ctx context.Context, w contract.Writer, tasks []task) error {
	seen := make(map[string]struct{})
	var dirs []string
	for _, tk := range tasks {
		d := path.Dir(string(tk.target))
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	for _, d := range dirs {
		if err := w.Touch(ctx, site.IndexOf(contract.ArtifactID(d))); err != nil {
			return fmt.Errorf("touch %s: %w", d, err)
		}
	}
	return nil
}

// buildPage 将累积器转换为渲染模型；回答与署名使用 "A<id>: <text>" 展示格式。
func buildPage(name, slug string, archived bool, questions []string, u *survey.University) contract.Page {
	p := contract.Page{Name: name, Slug: slug, Archived: archived}
	p.Credits = make([]string, 0, len(u.Attributions))
	for _, a := range u.Attributions {
		p.Credits = append(p.Credits, a.String())
	}
	p.Sections = make([]contract.Section, len(questions))
	for i, q := range questions {
		s := contract.Section{Question: q}
		if i < len(u.Answers) {
			for _, r := range u.Answers[i].Records {
				s.Answers = append(s.Answers, r.String())
			}
		}
		p.Sections[i] = s
	}
	for _, e := range u.Supplementary {
		p.Extra = append(p.Extra, e.String())
	}
	return p
}

func sanity(c Components, s Settings) error {
	if c.Rows == nil || c.Table == nil || c.Renderer == nil || c.Writer == nil {
		return fmt.Errorf("%w: missing component", contract.ErrInvalidInput)
	}
	if len(s.Questionnaire) == 0 {
		return fmt.Errorf("%w: empty questionnaire", contract.ErrInvalidInput)
	}
	if s.Debug && s.SampleSize < 1 {
		return fmt.Errorf("%w: sample size %d", contract.ErrInvalidInput, s.SampleSize)
	}
	return nil
}

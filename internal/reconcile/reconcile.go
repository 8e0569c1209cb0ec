// Package reconcile 对注册表执行别名合并、黑名单剔除与异常名称扫描。
package reconcile

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"qnreport/internal/diag"
	"qnreport/internal/survey"
)

// institution 为可识别的院校类型标记。
var institution = regexp.MustCompile(`大学|学院|学校`)

// Report 汇总一次对账的结果。
type Report struct {
	Merged         int
	MissingPrimary int
	Removed        int
	Anomalies      []string
}

// Apply 原地修改 reg：先按声明顺序合并别名，再剔除黑名单，最后扫描异常名称（仅记录，不过滤）。
// 缺失主名称与未命中的黑名单条目均不视为错误。
func Apply(reg *survey.Registry, l *Lists, log *diag.Logger) (Report, error) {
	var rep Report
	if l == nil {
		l = &Lists{}
	}
	for _, e := range l.Aliases {
		primary, ok := reg.Get(e.Primary)
		if !ok {
			rep.MissingPrimary++
			diag.IncAnomaly("alias_missing")
			log.Warn("reconcile", "alias primary missing", zap.String("name", e.Primary))
			continue
		}
		for _, a := range e.Aliases {
			if a == e.Primary {
				continue
			}
			other, ok := reg.Get(a)
			if !ok {
				continue
			}
			if err := primary.MergeChecked(other); err != nil {
				return rep, fmt.Errorf("merge %q into %q: %w", a, e.Primary, err)
			}
			reg.Delete(a)
			rep.Merged++
			log.Debug("reconcile", "alias merged", zap.String("name", e.Primary), zap.String("alias", a))
		}
	}

	for name := range l.Blacklist {
		if reg.Delete(name) {
			rep.Removed++
		}
	}

	reg.Each(func(name string, u *survey.University) bool {
		if institution.MatchString(name) {
			return true
		}
		if _, ok := l.Whitelist[name]; ok {
			return true
		}
		rep.Anomalies = append(rep.Anomalies, name)
		diag.IncAnomaly("maybe_invalid")
		log.Warn("reconcile", "maybe invalid", zap.String("name", name), zap.String("ids", FormatIDs(u.SourceIDs())))
		return true
	})
	return rep, nil
}

// FormatIDs 形如 "A1,A2"。
func FormatIDs(ids []int) string {
	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "A%d", id)
	}
	return b.String()
}

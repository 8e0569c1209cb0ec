// Package slug 为院校名称分配稳定且在一次运行内唯一的 URL slug。
package slug

import (
	"regexp"
	"strconv"

	gslug "github.com/gosimple/slug"
)

// reserved 为生成 slug 前剔除的字符。
var reserved = regexp.MustCompile(`[/>|:&]`)

// Fallback 为名称无法产生任何 slug 字符时使用的基底。
const Fallback = "university"

// Assigner 记录 名称→slug 映射与已占用 slug。非并发安全：仅在任务规划阶段单线程调用。
type Assigner struct {
	mapping map[string]string
	used    map[string]struct{}
}

// NewAssigner 返回空分配器。每个分区（在读/归档）各用一个。
func NewAssigner() *Assigner {
	return &Assigner{mapping: make(map[string]string), used: make(map[string]struct{})}
}

// Base 返回名称的 slug 基底（不含去重后缀）。
func Base(name string) string {
	b := gslug.Make(reserved.ReplaceAllString(name, ""))
	if b == "" {
		return Fallback
	}
	return b
}

// Assign 返回 name 的 slug。同名重复调用结果相同；
// 基底冲突时依次追加 -2、-3……直到未被占用。
func (a *Assigner) Assign(name string) string {
	if s, ok := a.mapping[name]; ok {
		return s
	}
	base := Base(name)
	s := base
	for i := 2; ; i++ {
		if _, taken := a.used[s]; !taken {
			break
		}
		s = base + "-" + strconv.Itoa(i)
	}
	a.mapping[name] = s
	a.used[s] = struct{}{}
	return s
}

// Len 返回已分配数量。
func (a *Assigner) Len() int { return len(a.mapping) }

// Package region 将院校名称按子串匹配到所属地区（省份），用于页面目录归类。
package region

import (
	"context"
	"fmt"
	"strings"

	"qnreport/pkg/contract"
)

// Other 为无法匹配时的兜底地区。
const Other = "其他"

type entry struct {
	key    string
	region string
}

// Table 为有序的 (匹配键 → 地区) 表。
// 查找按首次插入顺序线性扫描，首个子串命中者胜出；重复键保留首次位置、采用最后一次的地区。
type Table struct {
	entries []entry
	index   map[string]int
	regions []string
	seen    map[string]struct{}
}

// KeyFunc 由院校名生成匹配键。
type KeyFunc func(name string) string

// KeyFor 返回基于 norm 的匹配键函数：归一化后去除全部空格。
// norm 若自带 Key 方法则直接使用。
func KeyFor(norm contract.Normalizer) KeyFunc {
	if k, ok := norm.(interface{ Key(string) string }); ok {
		return k.Key
	}
	return func(name string) string {
		if norm != nil {
			name = norm.Normalize(name)
		}
		return strings.ReplaceAll(strings.TrimSpace(name), " ", "")
	}
}

// NewTable 创建空表；兜底地区始终存在于 Regions 中。
func NewTable() *Table {
	return &Table{index: make(map[string]int), seen: make(map[string]struct{})}
}

// Add 登记一条 (地区, 匹配键)。空键被忽略（空串会匹配任意名称）。
func (t *Table) Add(region, key string) {
	if _, ok := t.seen[region]; !ok {
		t.seen[region] = struct{}{}
		t.regions = append(t.regions, region)
	}
	if key == "" {
		return
	}
	if i, ok := t.index[key]; ok {
		t.entries[i].region = region
		return
	}
	t.index[key] = len(t.entries)
	t.entries = append(t.entries, entry{key: key, region: region})
}

// Lookup 返回首个键为 name 子串的地区；无命中时返回 Other。
func (t *Table) Lookup(name string) string {
	for _, e := range t.entries {
		if strings.Contains(name, e.key) {
			return e.region
		}
	}
	return Other
}

// Len 返回匹配键数量。
func (t *Table) Len() int { return len(t.entries) }

// Regions 按首次出现顺序返回全部地区（末尾附兜底地区，若尚未出现）。
func (t *Table) Regions() []string {
	out := make([]string, len(t.regions), len(t.regions)+1)
	copy(out, t.regions)
	if _, ok := t.seen[Other]; !ok {
		out = append(out, Other)
	}
	return out
}

// Load 从两列 CSV（地区, 院校名）构建表。文件缺失返回 ErrMissingFile（致命）。
func Load(ctx context.Context, rr contract.RowReader, path string, key KeyFunc) (*Table, error) {
	t := NewTable()
	line := 0
	err := rr.Iterate(ctx, path, func(row []string) error {
		line++
		if len(row) != 2 {
			return fmt.Errorf("%w: %s line %d: want 2 fields, got %d", contract.ErrRowInvalid, path, line, len(row))
		}
		t.Add(strings.TrimSpace(row[0]), key(row[1]))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("region load: %w", err)
	}
	return t, nil
}

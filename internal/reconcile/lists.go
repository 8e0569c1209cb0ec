package reconcile

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"qnreport/pkg/contract"
)

// DefaultAliasSeparator 为别名表中的字段分隔符。
const DefaultAliasSeparator = "🚮"

// AliasEntry 为别名表的一行：主名称及按声明顺序排列的别名。
type AliasEntry struct {
	Primary string
	Aliases []string
}

// Lists 为对账所需的三张名单。
type Lists struct {
	Aliases   []AliasEntry
	Blacklist map[string]struct{}
	Whitelist map[string]struct{}
}

// ListPaths 为名单文件路径；任一为空或文件不存在视为空名单。
type ListPaths struct {
	Alias     string
	Blacklist string
	Whitelist string
}

// LoadLists 读取三张名单。名单中的名称经过与问卷行相同的归一化，保证键一致。
func LoadLists(p ListPaths, sep string, norm contract.Normalizer) (*Lists, error) {
	if sep == "" {
		sep = DefaultAliasSeparator
	}
	l := &Lists{Blacklist: map[string]struct{}{}, Whitelist: map[string]struct{}{}}

	lines, err := readLines(p.Alias)
	if err != nil {
		return nil, fmt.Errorf("alias: %w", err)
	}
	for _, ln := range lines {
		parts := strings.Split(ln, sep)
		e := AliasEntry{Primary: normalize(norm, parts[0])}
		if e.Primary == "" {
			continue
		}
		for _, a := range parts[1:] {
			if a = normalize(norm, a); a != "" {
				e.Aliases = append(e.Aliases, a)
			}
		}
		l.Aliases = append(l.Aliases, e)
	}

	for _, f := range []struct {
		path string
		set  map[string]struct{}
		what string
	}{{p.Blacklist, l.Blacklist, "blacklist"}, {p.Whitelist, l.Whitelist, "whitelist"}} {
		lines, err := readLines(f.path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.what, err)
		}
		for _, ln := range lines {
			if n := normalize(norm, ln); n != "" {
				f.set[n] = struct{}{}
			}
		}
	}
	return l, nil
}

func normalize(norm contract.Normalizer, s string) string {
	s = strings.TrimSpace(s)
	if norm != nil {
		s = norm.Normalize(s)
	}
	return s
}

// readLines 返回非空行（去除行尾 \r）；文件不存在时返回空。
func readLines(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	s := strings.TrimPrefix(string(b), "\ufeff")
	var out []string
	for _, ln := range strings.Split(s, "\n") {
		ln = strings.TrimRight(ln, "\r")
		if strings.TrimSpace(ln) == "" {
			continue
		}
		out = append(out, ln)
	}
	return out, nil
}

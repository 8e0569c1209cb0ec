// Package zhname 实现院校名称归一化：全角/半角折叠、繁体转简体，再去除括号与标记字符。
package zhname

import (
	"regexp"
	"strings"
	"sync"

	"github.com/longbridgeapp/opencc"
	"golang.org/x/text/width"

	"qnreport/pkg/contract"
)

// markers 为名称中需剔除的括号与标记字符。
var markers = regexp.MustCompile(`[()（）【】#]`)

// t2s 为进程内共享的繁转简转换器；词典随库内嵌，首次使用时加载。
var t2s = sync.OnceValue(func() *opencc.OpenCC {
	cc, err := opencc.New("t2s")
	if err != nil {
		panic("zhname: load t2s dictionary: " + err.Error())
	}
	return cc
})

// Normalizer 无状态；在加载阶段单线程调用。
type Normalizer struct{}

// New 返回名称归一化器。
func New() Normalizer { return Normalizer{} }

var _ contract.Normalizer = Normalizer{}

// Normalize 折叠全角 ASCII（如 "ＸＸ" → "XX"），繁体转简体，剔除括号与 #，并去除首尾空白。
func (Normalizer) Normalize(name string) string {
	s := width.Fold.String(name)
	s = Simplify(s)
	s = markers.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Simplify 将繁体字转换为简体；转换失败时原样返回。
func Simplify(s string) string {
	if s == "" {
		return s
	}
	out, err := t2s().Convert(s)
	if err != nil {
		return s
	}
	return out
}

// Key 在 Normalize 的基础上再去除全部空格，用于院校表的子串匹配键。
func (n Normalizer) Key(name string) string {
	return strings.ReplaceAll(n.Normalize(name), " ", "")
}

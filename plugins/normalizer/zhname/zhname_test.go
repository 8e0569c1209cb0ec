package zhname

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	n := New()
	cases := map[string]string{
		"XX大学(分校区)":  "XX大学分校区",
		"XX大学（分校区）":  "XX大学分校区",
		"【推荐】#甲学院#":  "推荐甲学院",
		"ＡＢＣ大学":      "ABC大学",
		"  乙 学院  ":   "乙 学院",
		"":           "",
		"北京師範大學":     "北京师范大学",
		"香港中文大學（深圳）": "香港中文大学深圳",
	}
	for in, want := range cases {
		assert.Equal(t, want, n.Normalize(in), in)
	}
	// 幂等
	assert.Equal(t, n.Normalize("XX大学（分校区）"), n.Normalize(n.Normalize("XX大学（分校区）")))
}

func TestKey(t *testing.T) {
	assert.Equal(t, "北京大学医学部", New().Key(" 北京大学 (医学部) "))
}

// 繁体与简体写法归一到同一个键
func TestNormalizeScript(t *testing.T) {
	n := New()
	assert.Equal(t, n.Normalize("北京师范大学"), n.Normalize("北京師範大學"))
	assert.Equal(t, "国立台湾大学", n.Key("國立 臺灣大學"))
	assert.Equal(t, "XX大学", Simplify("XX大學"))
}

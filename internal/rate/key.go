package rate

import (
	"net/url"
	"strings"
)

// KeyFromURL 以小写主机名（含端口）作为限流分组键；无法解析时返回空键（不限额分组）。
func KeyFromURL(raw string) LimitKey {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return LimitKey(strings.ToLower(u.Host))
}

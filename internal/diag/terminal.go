package diag

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
	"golang.org/x/text/width"
)

// Terminal 为面向人的运行提示（非日志），输出到 stderr 一类的 io.Writer。
// TTY 下进度行以 \r 原地刷新，非 TTY 只在分区开始与结束时打印。
// 并发安全；任何一次写失败后转为空操作。nil 接收者安全。
type Terminal struct {
	mu sync.Mutex

	w       io.Writer
	enabled bool
	isTTY   bool

	runStart  time.Time
	pagesDone int

	section string
	total   int
	done    int

	lastCols  int
	lastFlush time.Time
}

// 进程级终端，由命令层设置，流水线旁路读取。
var (
	termMu     sync.RWMutex
	globalTerm *Terminal
)

func SetTerminal(t *Terminal) { termMu.Lock(); globalTerm = t; termMu.Unlock() }

func GetTerminal() *Terminal { termMu.RLock(); defer termMu.RUnlock(); return globalTerm }

// NewTerminal 中 w 为 nil 时使用 stderr；enabled=false 时全部为空操作。设置了 CI 时按非 TTY 处理。
func NewTerminal(w io.Writer, enabled bool) *Terminal {
	if w == nil {
		w = os.Stderr
	}
	t := &Terminal{w: w, enabled: enabled}
	if f, ok := w.(*os.File); ok && os.Getenv("CI") == "" {
		t.isTTY = term.IsTerminal(int(f.Fd()))
	}
	return t
}

// acquire 加锁并报告是否需要输出；返回 true 时调用方负责解锁。
func (t *Terminal) acquire() bool {
	if t == nil {
		return false
	}
	t.mu.Lock()
	if !t.enabled {
		t.mu.Unlock()
		return false
	}
	return true
}

func (t *Terminal) RunStart(concurrency int, mode string) {
	if !t.acquire() {
		return
	}
	defer t.mu.Unlock()
	t.runStart = time.Now()
	t.pagesDone = 0
	t.line(fmt.Sprintf("[run] 并发=%d | 模式=%s", concurrency, oneLine(mode)))
}

// SectionStart 开始一个分区（active / archived）。
func (t *Terminal) SectionStart(section string, total int) {
	if !t.acquire() {
		return
	}
	defer t.mu.Unlock()
	t.section, t.total, t.done = oneLine(section), total, 0
	t.lastFlush = time.Time{}
	t.line(fmt.Sprintf("[info] Start generating %s markdown files: %d", t.section, total))
}

// SectionProgress 由协调者在每个页面完成后调用；TTY 下 100ms 节流，完成时必刷新。
func (t *Terminal) SectionProgress(done, total int) {
	if !t.acquire() {
		return
	}
	defer t.mu.Unlock()
	t.done, t.total = done, total
	if !t.isTTY {
		return
	}
	now := time.Now()
	if done < total && now.Sub(t.lastFlush) < 100*time.Millisecond {
		return
	}
	t.lastFlush = now
	t.inline(progressLine(t.section, done, total))
}

func (t *Terminal) SectionFinish(ok bool, dur time.Duration) {
	if !t.acquire() {
		return
	}
	defer t.mu.Unlock()
	t.pagesDone += t.done
	switch {
	case !t.isTTY:
		t.line(progressLine(t.section, t.done, t.total))
	case t.lastCols > 0:
		t.line("")
	}
	t.line(fmt.Sprintf("[%s] %s | 页面 %d/%d | 用时 %s", status(ok, "done"), t.section, t.done, t.total, formatDur(dur)))
}

func (t *Terminal) RunFinish(ok bool, dur time.Duration) {
	if !t.acquire() {
		return
	}
	defer t.mu.Unlock()
	t.line(fmt.Sprintf("[%s] 全部完成 | 页面 %d | 总用时 %s", status(ok, "ok"), t.pagesDone, formatDur(dur)))
}

func status(ok bool, okTag string) string {
	if ok {
		return okTag
	}
	return "fail"
}

func progressLine(section string, done, total int) string {
	pct := 100.0
	if total > 0 {
		pct = float64(done) / float64(total) * 100
	}
	return fmt.Sprintf("[progress] %s: %d/%d (%.1f%%)", section, done, total, pct)
}

func (t *Terminal) line(s string) {
	if _, err := io.WriteString(t.w, s+"\n"); err != nil {
		t.enabled = false
	}
	t.lastCols = 0
}

// inline 覆盖上一行；新行较短时以空格补齐旧内容。
func (t *Terminal) inline(s string) {
	cols := displayCols(s)
	var b strings.Builder
	b.WriteByte('\r')
	b.WriteString(s)
	if t.lastCols > cols {
		b.WriteString(strings.Repeat(" ", t.lastCols-cols))
	}
	if _, err := io.WriteString(t.w, b.String()); err != nil {
		t.enabled = false
		return
	}
	t.lastCols = cols
}

// displayCols 估算终端列宽：东亚宽字符与全角字符占两列。
func displayCols(s string) int {
	n := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			n += 2
		default:
			n++
		}
	}
	return n
}

func oneLine(s string) string {
	return strings.NewReplacer("\n", " ", "\r", " ").Replace(s)
}

func formatDur(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", max(d.Milliseconds(), 0))
	}
	return fmt.Sprintf("%.1fs", float64(d.Milliseconds())/1000.0)
}

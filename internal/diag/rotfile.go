package diag

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

// 日志文件命名：当前文件固定名，轮转后为 qnreport-<UTC 时间戳>.log。
const (
	logPrefix      = "qnreport-"
	currentLogName = logPrefix + "current.log"
	rotatedLayout  = "20060102-150405.000000000"
)

// RotatingFile 是 zapcore.WriteSyncer：按大小轮转，仅保留最近 keep 份历史文件。
// 首次写入时才创建目录与文件。
type RotatingFile struct {
	dir      string
	maxBytes int64
	keep     int

	mu   sync.Mutex
	f    *os.File
	size int64
}

// NewRotatingFile 的 maxBytes<=0 取 10MiB；keep<=0 表示不清理历史文件。
func NewRotatingFile(dir string, maxBytes int64, keep int) *RotatingFile {
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &RotatingFile{dir: dir, maxBytes: maxBytes, keep: keep}
}

func (w *RotatingFile) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		if err := w.open(); err != nil {
			return 0, err
		}
	}
	if w.size > 0 && w.size+int64(len(p)) > w.maxBytes {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := w.f.Write(p)
	w.size += int64(n)
	return n, err
}

// Sync 在文件尚未打开时为空操作。
func (w *RotatingFile) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	return w.f.Sync()
}

func (w *RotatingFile) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}

func (w *RotatingFile) open() error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(w.dir, currentLogName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	w.f, w.size = f, 0
	if st, err := f.Stat(); err == nil {
		w.size = st.Size()
	}
	return nil
}

func (w *RotatingFile) rotate() error {
	_ = w.f.Close()
	w.f = nil
	cur := filepath.Join(w.dir, currentLogName)
	dst := filepath.Join(w.dir, logPrefix+time.Now().UTC().Format(rotatedLayout)+".log")
	if err := os.Rename(cur, dst); err != nil {
		return &os.LinkError{Op: "rotate", Old: cur, New: dst, Err: err}
	}
	w.prune()
	return w.open()
}

// prune 删除超出 keep 的最旧历史文件；时间戳命名保证字典序即时间序。
func (w *RotatingFile) prune() {
	if w.keep <= 0 {
		return
	}
	rotated := w.rotated()
	for len(rotated) > w.keep {
		_ = os.Remove(filepath.Join(w.dir, rotated[0]))
		rotated = rotated[1:]
	}
}

func (w *RotatingFile) rotated() []string {
	ents, err := os.ReadDir(w.dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range ents {
		n := e.Name()
		if n != currentLogName && strings.HasPrefix(n, logPrefix) && strings.HasSuffix(n, ".log") {
			out = append(out, n)
		}
	}
	slices.Sort(out)
	return out
}

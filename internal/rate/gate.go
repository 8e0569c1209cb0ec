// Package rate 为远程拉取提供按主机分组的请求速率闸门（令牌桶）。
package rate

import (
	"context"
	"sync"
	"time"
)

// LimitKey 限流分组键（主机名）。
type LimitKey string

// Limits 每分组限额。0 表示不启用。
type Limits struct {
	RPM int // requests per minute
}

// Gate 限流闸门（并发安全）。零个配置分组时所有请求直接放行。
type Gate struct {
	clk      func() time.Time
	fallback Limits

	mu sync.Mutex
	m  map[LimitKey]*entry
}

type entry struct {
	mu  sync.Mutex
	req bucket
}

type bucket struct {
	cap   int
	level float64
	rate  float64
	last  time.Time
}

// NewGate 以每分组静态配置构造闸门；未列出的分组使用 fallback。clk 为空则使用 time.Now。
func NewGate(m map[LimitKey]Limits, fallback Limits, clk func() time.Time) *Gate {
	if clk == nil {
		clk = time.Now
	}
	g := &Gate{clk: clk, fallback: fallback, m: make(map[LimitKey]*entry, len(m))}
	now := clk()
	for k, lim := range m {
		g.m[k] = &entry{req: newBucket(lim.RPM, now)}
	}
	return g
}

func newBucket(capacity int, now time.Time) bucket {
	if capacity <= 0 {
		return bucket{}
	}
	return bucket{cap: capacity, level: float64(capacity), rate: float64(capacity) / 60.0, last: now}
}

func (b *bucket) enabled() bool { return b.cap > 0 }

func (b *bucket) refill(now time.Time) {
	if !b.enabled() {
		return
	}
	if now.Before(b.last) {
		// 时钟回拨视为无时间流逝
		return
	}
	dt := now.Sub(b.last).Seconds()
	if dt <= 0 {
		return
	}
	b.level += dt * b.rate
	if b.level > float64(b.cap) {
		b.level = float64(b.cap)
	}
	b.last = now
}

func (b *bucket) canTake(n int) bool {
	if !b.enabled() {
		return true
	}
	return b.level >= float64(n)
}

func (b *bucket) take(n int) {
	if !b.enabled() {
		return
	}
	b.level -= float64(n)
	if b.level < 0 {
		b.level = 0
	}
}

// waitFor 返回达到可消费 n 还需等待的时长。
func (b *bucket) waitFor(n int) time.Duration {
	if !b.enabled() {
		return 0
	}
	deficit := float64(n) - b.level
	if deficit <= 0 {
		return 0
	}
	return time.Duration(deficit / b.rate * float64(time.Second))
}

func (g *Gate) get(key LimitKey) *entry {
	g.mu.Lock()
	defer g.mu.Unlock()
	e := g.m[key]
	if e == nil {
		e = &entry{req: newBucket(g.fallback.RPM, g.clk())}
		g.m[key] = e
	}
	return e
}

// Wait 阻塞直到放行一次请求或 ctx 取消。nil 闸门直接放行。
func (g *Gate) Wait(ctx context.Context, key LimitKey) error {
	if g == nil {
		return ctx.Err()
	}
	const minSleep = 10 * time.Millisecond
	e := g.get(key)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.mu.Lock()
		e.req.refill(g.clk())
		if e.req.canTake(1) {
			e.req.take(1)
			e.mu.Unlock()
			return nil
		}
		d := e.req.waitFor(1) + minSleep
		e.mu.Unlock()
		if err := sleepCtx(ctx, d); err != nil {
			return err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	// 长等待分片为最多 200ms，及时响应取消
	const step = 200 * time.Millisecond
	for d > 0 {
		s := min(d, step)
		t := time.NewTimer(s)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		d -= s
	}
	return nil
}

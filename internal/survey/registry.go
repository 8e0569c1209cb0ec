package survey

import (
	"math/rand/v2"
	"sort"
)

// Registry 将归一化校名映射到累积器，保留首次插入顺序以获得可复现输出。
// 非并发安全：仅在加载与对账阶段（单线程）修改。
type Registry struct {
	questions int
	byName    map[string]*University
	order     []string
}

// NewRegistry 创建空注册表；questions 为问卷题数。
func NewRegistry(questions int) *Registry {
	return &Registry{questions: questions, byName: make(map[string]*University)}
}

// Questions 返回问卷题数。
func (r *Registry) Questions() int { return r.questions }

// GetOrCreate 返回 name 对应的累积器；不存在时显式创建并登记。
func (r *Registry) GetOrCreate(name string) *University {
	if u, ok := r.byName[name]; ok {
		return u
	}
	u := NewUniversity(r.questions)
	r.byName[name] = u
	r.order = append(r.order, name)
	return u
}

// Get 查找 name；不存在返回 nil,false。
func (r *Registry) Get(name string) (*University, bool) {
	u, ok := r.byName[name]
	return u, ok
}

// Delete 删除 name；不存在时无副作用。返回是否确有删除。
func (r *Registry) Delete(name string) bool {
	if _, ok := r.byName[name]; !ok {
		return false
	}
	delete(r.byName, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Len 返回实体数。
func (r *Registry) Len() int { return len(r.order) }

// Names 按插入顺序返回全部名称（副本）。
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Each 按插入顺序遍历；fn 返回 false 时停止。遍历期间不得修改注册表。
func (r *Registry) Each(fn func(name string, u *University) bool) {
	for _, n := range r.order {
		if !fn(n, r.byName[n]) {
			return
		}
	}
}

// Sample 返回至多 n 个随机实体组成的新注册表（保留原插入相对顺序）。
// 累积器为共享引用，不做拷贝。
func (r *Registry) Sample(n int, rng *rand.Rand) *Registry {
	out := NewRegistry(r.questions)
	if n <= 0 {
		return out
	}
	idx := make([]int, len(r.order))
	for i := range idx {
		idx[i] = i
	}
	if n < len(idx) {
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		idx = idx[:n]
		sort.Ints(idx)
	}
	for _, i := range idx {
		name := r.order[i]
		out.byName[name] = r.byName[name]
		out.order = append(out.order, name)
	}
	return out
}

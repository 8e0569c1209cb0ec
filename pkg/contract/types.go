package contract

// ArtifactID: 输出工件的逻辑标识（相对站点根的正斜杠路径，需规范化）。
type ArtifactID string

// Page: 渲染单个实体页面所需的只读视图。
// 约束：
// - Sections 与问卷题目逐项对齐（长度相同、顺序一致）；
// - 各切片内顺序即展示顺序（与记录追加顺序一致），渲染器不得重排。
type Page struct {
	Name     string
	Slug     string
	Archived bool
	// Credits: 数据来源行（"A<id>: <署名>"）。
	Credits []string
	// Sections: 每道题及其累积回答（"A<id>: <回答>"）。
	Sections []Section
	// Extra: 自由补充（已剔除空回答）。
	Extra []string
}

// Section: 一道题及其回答列表。
type Section struct {
	Question string
	Answers  []string
}

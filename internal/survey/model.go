// Package survey 持有问卷聚合的内存模型：按归一化校名累积各题回答、署名与自由补充。
package survey

import (
	"fmt"

	"qnreport/pkg/contract"
)

// IndexedRecord 将来源行编号与文本载荷配对；构造后不可变。
type IndexedRecord struct {
	SourceID int
	Text     string
}

// String 形如 "A<id>: <text>"，为页面展示格式。
func (r IndexedRecord) String() string {
	return fmt.Sprintf("A%d: %s", r.SourceID, r.Text)
}

// AnswerBin 为一道题的有序回答；顺序即追加顺序，合并时保持。
type AnswerBin struct {
	Records []IndexedRecord
}

// Append 追加一条回答。
func (b *AnswerBin) Append(r IndexedRecord) {
	b.Records = append(b.Records, r)
}

// MergeFrom 将 other 的全部回答接在本组之后。
func (b *AnswerBin) MergeFrom(other *AnswerBin) {
	b.Records = append(b.Records, other.Records...)
}

// Len 返回回答数。
func (b *AnswerBin) Len() int { return len(b.Records) }

// University 是单个院校的累积器。
// 不变量：len(Answers) 在同一次运行中恒等于问卷题数。
type University struct {
	Answers       []AnswerBin
	Supplementary []IndexedRecord
	Attributions  []IndexedRecord
}

// NewUniversity 创建与 questions 道题对齐的空累积器。
func NewUniversity(questions int) *University {
	return &University{Answers: make([]AnswerBin, questions)}
}

// AddAnswer 向第 index 题追加回答；越界视为行结构错误。
func (u *University) AddAnswer(index int, r IndexedRecord) error {
	if index < 0 || index >= len(u.Answers) {
		return fmt.Errorf("%w: answer index %d out of %d questions", contract.ErrRowInvalid, index, len(u.Answers))
	}
	u.Answers[index].Append(r)
	return nil
}

// AddSupplementary 追加自由补充；空文本忽略。
func (u *University) AddSupplementary(r IndexedRecord) {
	if r.Text == "" {
		return
	}
	u.Supplementary = append(u.Supplementary, r)
}

// AddAttribution 追加署名行。
func (u *University) AddAttribution(r IndexedRecord) {
	u.Attributions = append(u.Attributions, r)
}

// MergeFrom 按题号逐组合并，并拼接自由补充与署名；本对象内容在前。
// 题数不一致属于编程错误，直接 panic。
func (u *University) MergeFrom(other *University) {
	if err := u.MergeChecked(other); err != nil {
		panic(err)
	}
}

// MergeChecked 同 MergeFrom，但以错误返回题数不一致。
func (u *University) MergeChecked(other *University) error {
	if len(u.Answers) != len(other.Answers) {
		return fmt.Errorf("%w: merge %d bins with %d bins", contract.ErrInvariantViolation, len(u.Answers), len(other.Answers))
	}
	for i := range u.Answers {
		u.Answers[i].MergeFrom(&other.Answers[i])
	}
	u.Supplementary = append(u.Supplementary, other.Supplementary...)
	u.Attributions = append(u.Attributions, other.Attributions...)
	return nil
}

// SourceIDs 返回署名记录的来源编号，供人工排查。
func (u *University) SourceIDs() []int {
	ids := make([]int, 0, len(u.Attributions))
	for _, a := range u.Attributions {
		ids = append(ids, a.SourceID)
	}
	return ids
}

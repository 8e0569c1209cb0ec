package survey

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"qnreport/pkg/contract"
)

// TimeLayout 为问卷提交时间格式。
const TimeLayout = "2006-01-02 15:04:05"

// 行首固定列：编号、(忽略)、匿名代码、联系方式、是否展示联系方式、校名。
const headFields = 6

// anonymousCode 表示受访者选择匿名。
const anonymousCode = 2

// RowFormat 描述问卷行布局。
// TrailingFields 为行尾固定块长度：块首为自由补充，其次为提交时间，其余忽略。
type RowFormat struct {
	Questions      int
	TrailingFields int
}

// Response 为解析后的一行问卷。
type Response struct {
	ID            int
	Anonymous     bool
	Contact       string
	ShowContact   bool
	Name          string
	Answers       []string
	Supplementary string
	SubmittedAt   time.Time
}

// ParseRow 解析一行；任何结构错误（列数不足、编号/代码/时间无法解析、回答多于题数）
// 以 ErrRowInvalid 包装返回，调用方据此终止运行。
func ParseRow(row []string, f RowFormat, norm contract.Normalizer) (Response, error) {
	var resp Response
	if f.TrailingFields < 2 {
		return resp, fmt.Errorf("%w: trailing fields %d < 2", contract.ErrInvalidInput, f.TrailingFields)
	}
	if len(row) < headFields+f.TrailingFields {
		return resp, fmt.Errorf("%w: %d fields, need at least %d", contract.ErrRowInvalid, len(row), headFields+f.TrailingFields)
	}
	id, err := strconv.Atoi(strings.TrimSpace(row[0]))
	if err != nil {
		return resp, fmt.Errorf("%w: id %q: %v", contract.ErrRowInvalid, row[0], err)
	}
	resp.ID = id
	anon, err := strconv.Atoi(strings.TrimSpace(row[2]))
	if err != nil {
		return resp, fmt.Errorf("%w: A%d anonymity %q: %v", contract.ErrRowInvalid, id, row[2], err)
	}
	resp.Anonymous = anon == anonymousCode
	if !resp.Anonymous {
		show, err := strconv.ParseFloat(strings.TrimSpace(row[4]), 64)
		if err != nil {
			return resp, fmt.Errorf("%w: A%d show-contact %q: %v", contract.ErrRowInvalid, id, row[4], err)
		}
		resp.ShowContact = show == 1.0
	}
	resp.Contact = row[3]
	resp.Name = row[5]
	if norm != nil {
		resp.Name = norm.Normalize(resp.Name)
	}
	resp.Name = strings.TrimSpace(resp.Name)

	tail := len(row) - f.TrailingFields
	resp.Answers = row[headFields:tail]
	if len(resp.Answers) > f.Questions {
		return resp, fmt.Errorf("%w: A%d has %d answers for %d questions", contract.ErrRowInvalid, id, len(resp.Answers), f.Questions)
	}
	resp.Supplementary = row[tail]
	at, err := time.Parse(TimeLayout, strings.TrimSpace(row[tail+1]))
	if err != nil {
		return resp, fmt.Errorf("%w: A%d submitted_at %q: %v", contract.ErrRowInvalid, id, row[tail+1], err)
	}
	resp.SubmittedAt = at
	return resp, nil
}

// Attribution 生成署名行："<联系方式> (YYYY 年 MM 月)" 或 "匿名 (YYYY 年 MM 月)"。
func (r Response) Attribution() string {
	when := r.SubmittedAt.Format("2006 年 01 月")
	if r.ShowContact && r.Contact != "" {
		return fmt.Sprintf("%s (%s)", r.Contact, when)
	}
	return fmt.Sprintf("匿名 (%s)", when)
}

// Load 将一行问卷追加到 reg 中对应院校（首次出现时创建）。
func Load(reg *Registry, r Response) error {
	u := reg.GetOrCreate(r.Name)
	u.AddAttribution(IndexedRecord{SourceID: r.ID, Text: r.Attribution()})
	for i, ans := range r.Answers {
		if err := u.AddAnswer(i, IndexedRecord{SourceID: r.ID, Text: ans}); err != nil {
			return err
		}
	}
	u.AddSupplementary(IndexedRecord{SourceID: r.ID, Text: r.Supplementary})
	return nil
}

// Partition 按归档截止时间将问卷分流到两个注册表：早于截止为归档。
type Partition struct {
	Cutoff   time.Time
	Active   *Registry
	Archived *Registry
}

// NewPartition 创建分区；两侧注册表与问卷题数对齐。
func NewPartition(cutoff time.Time, questions int) *Partition {
	return &Partition{Cutoff: cutoff, Active: NewRegistry(questions), Archived: NewRegistry(questions)}
}

// Add 将问卷加载到所属分区。
func (p *Partition) Add(r Response) error {
	if r.SubmittedAt.Before(p.Cutoff) {
		return Load(p.Archived, r)
	}
	return Load(p.Active, r)
}

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"qnreport/internal/reconcile"
)

// EnvPrefix 为环境变量覆盖前缀。
const EnvPrefix = "QNREPORT_"

// 远程数据源默认地址。
const (
	DefaultBaseURL = "https://raw.githubusercontent.com/CollegesChat/university-information/refs/heads/master/questionnaires/"
	DefaultDocURL  = DefaultBaseURL + "site/docs/choose-a-college/"
)

// DefaultQuestionnaire 为问卷题目（顺序即答案列顺序）。
var DefaultQuestionnaire = []string{
	"宿舍是上床下桌吗？",
	"教室和宿舍有没有空调？",
	"有独立卫浴吗？没有独立浴室的话，澡堂离宿舍多远？",
	"有早自习、晚自习吗？",
	"有晨跑吗？",
	"每学期跑步打卡的要求是多少公里，可以骑车吗？",
	"寒暑假放多久，每年小学期有多长？",
	"学校允许点外卖吗，取外卖的地方离宿舍楼多远？",
	"学校交通便利吗，有地铁吗，在市区吗，不在的话进城要多久？",
	"宿舍楼有洗衣机吗？",
	"校园网怎么样？",
	"每天断电断网吗，几点开始断？",
	"食堂价格贵吗，会吃出异物吗？",
	"洗澡热水供应时间？",
	"校园内可以骑电瓶车吗，电池在哪能充电？",
	"宿舍限电情况？",
	"通宵自习有去处吗？",
	"大一能带电脑吗？",
	"学校里面用什么卡，饭堂怎样消费？",
	"学校会给学生发银行卡吗？",
	"学校的超市怎么样？",
	"学校的收发快递政策怎么样？",
	"学校里面的共享单车数目与种类如何？",
	"现阶段学校的门禁情况如何？",
	"宿舍晚上查寝吗，封寝吗，晚归能回去吗？",
}

// Defaults 返回带有安全默认值的 Config。
func Defaults() Config {
	download := true
	return Config{
		DataDir:        "required",
		SiteDir:        "site",
		ArchiveCutoff:  "2023-01-01 00:00:00",
		Questionnaire:  cloneStrings(DefaultQuestionnaire),
		Concurrency:    0,
		SampleSize:     100,
		TrailingFields: 9,
		AliasSeparator: reconcile.DefaultAliasSeparator,
		Files: Files{
			Results:   "results_desensitized.csv",
			Colleges:  "colleges.csv",
			Alias:     "alias.txt",
			Blacklist: "blacklist.txt",
			Whitelist: "whitelist.txt",
		},
		Download: &download,
		BaseURL:  DefaultBaseURL,
		DocURL:   DefaultDocURL,
		RequiredFiles: []string{
			"README_archived_template.md",
			"README_template.md",
			"alias.txt",
			"blacklist.txt",
			"colleges.csv",
			"results_desensitized.csv",
			"whitelist.txt",
		},
		RequiredDocs: []string{
			"出国受阻.md",
			"如何正义劝退？.md",
			"影响生活质量的一些方面.md",
		},
		Logging: Logging{Level: "info", Dir: "logs"},
	}
}

// LoadYAML 从文件路径或原始 YAML 解析 Config（严格拒绝未知字段）。
// 未出现的 concurrency 解析为 -1，以便 Merge 区分“未设置”与显式 0（自动）。
func LoadYAML(path string, raw []byte) (Config, error) {
	cfg := Config{Concurrency: -1}
	var r io.Reader
	switch {
	case len(raw) > 0:
		r = bytes.NewReader(raw)
	case path != "":
		f, err := os.Open(path)
		if err != nil {
			return cfg, err
		}
		defer f.Close()
		r = f
	default:
		return cfg, errors.New("no config source provided")
	}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Merge 按优先级合并（后者覆盖前者）。
// 标量/字符串/列表为“替换”，零值不覆盖；组件选项按子树整体替换。
func Merge(base, over Config) Config {
	out := base
	setStr(&out.DataDir, over.DataDir)
	setStr(&out.SiteDir, over.SiteDir)
	setStr(&out.ArchiveCutoff, over.ArchiveCutoff)
	if len(over.Questionnaire) > 0 {
		out.Questionnaire = cloneStrings(over.Questionnaire)
	}
	// 0 具有语义（自动），-1 表示未覆盖
	if over.Concurrency >= 0 {
		out.Concurrency = over.Concurrency
	}
	if over.SampleSize != 0 {
		out.SampleSize = over.SampleSize
	}
	if over.TrailingFields != 0 {
		out.TrailingFields = over.TrailingFields
	}
	setStr(&out.AliasSeparator, over.AliasSeparator)
	setStr(&out.Files.Results, over.Files.Results)
	setStr(&out.Files.Colleges, over.Files.Colleges)
	setStr(&out.Files.Alias, over.Files.Alias)
	setStr(&out.Files.Blacklist, over.Files.Blacklist)
	setStr(&out.Files.Whitelist, over.Files.Whitelist)

	if over.Download != nil {
		v := *over.Download
		out.Download = &v
	}
	setStr(&out.BaseURL, over.BaseURL)
	setStr(&out.DocURL, over.DocURL)
	if len(over.RequiredFiles) > 0 {
		out.RequiredFiles = cloneStrings(over.RequiredFiles)
	}
	if len(over.RequiredDocs) > 0 {
		out.RequiredDocs = cloneStrings(over.RequiredDocs)
	}

	setStr(&out.Logging.Level, over.Logging.Level)
	setStr(&out.Logging.Dir, over.Logging.Dir)
	setStr(&out.MetricsFile, over.MetricsFile)

	var zero Options
	if over.Options.Reader != zero.Reader {
		out.Options.Reader = over.Options.Reader
	}
	if over.Options.Writer != zero.Writer {
		out.Options.Writer = over.Options.Writer
	}
	if over.Options.Renderer != zero.Renderer {
		out.Options.Renderer = over.Options.Renderer
	}
	if over.Options.Fetcher != zero.Fetcher {
		out.Options.Fetcher = over.Options.Fetcher
	}
	return out
}

// EnvOverlay 从环境变量构建一个 Config 覆盖（仅解析有限键集合）。
// 支持：DATA_DIR, SITE_DIR, ARCHIVE_CUTOFF, CONCURRENCY, SAMPLE_SIZE, TRAILING_FIELDS,
// ALIAS_SEPARATOR, DOWNLOAD, BASE_URL, DOC_URL, LOG_LEVEL, LOG_DIR, METRICS_FILE, QUESTIONNAIRE（以 | 分隔）。
// 数值/布尔无法解析时返回错误。
func EnvOverlay(environ []string) (Config, error) {
	over := Config{Concurrency: -1}
	for _, kv := range environ {
		if !strings.HasPrefix(kv, EnvPrefix) {
			continue
		}
		eq := strings.IndexByte(kv, '=')
		if eq <= len(EnvPrefix) {
			continue
		}
		key := kv[len(EnvPrefix):eq]
		val := strings.TrimSpace(kv[eq+1:])
		if val == "" {
			continue
		}
		var err error
		switch key {
		case "DATA_DIR":
			over.DataDir = val
		case "SITE_DIR":
			over.SiteDir = val
		case "ARCHIVE_CUTOFF":
			over.ArchiveCutoff = val
		case "CONCURRENCY":
			over.Concurrency, err = strconv.Atoi(val)
		case "SAMPLE_SIZE":
			over.SampleSize, err = strconv.Atoi(val)
		case "TRAILING_FIELDS":
			over.TrailingFields, err = strconv.Atoi(val)
		case "ALIAS_SEPARATOR":
			over.AliasSeparator = val
		case "DOWNLOAD":
			var b bool
			if b, err = strconv.ParseBool(val); err == nil {
				over.Download = &b
			}
		case "BASE_URL":
			over.BaseURL = val
		case "DOC_URL":
			over.DocURL = val
		case "LOG_LEVEL":
			over.Logging.Level = val
		case "LOG_DIR":
			over.Logging.Dir = val
		case "METRICS_FILE":
			over.MetricsFile = val
		case "QUESTIONNAIRE":
			over.Questionnaire = splitList(val, "|")
		default:
			// 其余键（如 CONFIG_FILE）由命令层处理
		}
		if err != nil {
			return over, fmt.Errorf("config: env %s%s: %w", EnvPrefix, key, err)
		}
	}
	return over, nil
}

func setStr(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func splitList(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := parts[:0]
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

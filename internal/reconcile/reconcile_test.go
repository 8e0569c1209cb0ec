package reconcile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"qnreport/internal/diag"
	"qnreport/internal/survey"
	"qnreport/plugins/normalizer/zhname"
)

func observed() (*diag.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return diag.NewWithCore(core), logs
}

func load(t *testing.T, reg *survey.Registry, id int, name, ans string) {
	t.Helper()
	u := reg.GetOrCreate(name)
	require.NoError(t, u.AddAnswer(0, survey.IndexedRecord{SourceID: id, Text: ans}))
	u.AddAttribution(survey.IndexedRecord{SourceID: id, Text: "匿名"})
}

func TestApplyAliasMergeOrder(t *testing.T) {
	norm := zhname.New()
	reg := survey.NewRegistry(2)
	load(t, reg, 1, norm.Normalize("XX大学"), "a1")
	load(t, reg, 2, norm.Normalize("XX大学(分校区)"), "a2")
	load(t, reg, 3, "XX大学老校区", "a3")

	dir := t.TempDir()
	alias := filepath.Join(dir, "alias.txt")
	require.NoError(t, os.WriteFile(alias, []byte("XX大学🚮XX大学(分校区)🚮XX大学老校区\n"), 0o644))
	l, err := LoadLists(ListPaths{Alias: alias}, "", norm)
	require.NoError(t, err)

	log, _ := observed()
	rep, err := Apply(reg, l, log)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Merged)
	assert.Equal(t, []string{"XX大学"}, reg.Names())

	u, ok := reg.Get("XX大学")
	require.True(t, ok)
	assert.Len(t, u.Attributions, 3)
	want := []survey.IndexedRecord{{SourceID: 1, Text: "a1"}, {SourceID: 2, Text: "a2"}, {SourceID: 3, Text: "a3"}}
	if d := cmp.Diff(want, u.Answers[0].Records); d != "" {
		t.Fatalf("bin 0 mismatch (-want +got):\n%s", d)
	}
}

func TestApplyMissingPrimary(t *testing.T) {
	reg := survey.NewRegistry(1)
	load(t, reg, 7, "乙学院分部", "x")
	l := &Lists{Aliases: []AliasEntry{{Primary: "乙学院", Aliases: []string{"乙学院分部"}}}}

	log, logs := observed()
	rep, err := Apply(reg, l, log)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.MissingPrimary)
	assert.Equal(t, 0, rep.Merged)
	assert.Equal(t, []string{"乙学院分部"}, reg.Names())
	got := logs.FilterMessage("alias primary missing").All()
	require.Len(t, got, 1)
	assert.Equal(t, "乙学院", got[0].ContextMap()["name"])
}

func TestApplySelfAliasIgnored(t *testing.T) {
	reg := survey.NewRegistry(1)
	load(t, reg, 1, "丙大学", "x")
	l := &Lists{Aliases: []AliasEntry{{Primary: "丙大学", Aliases: []string{"丙大学"}}}}
	_, err := Apply(reg, l, nil)
	require.NoError(t, err)
	u, ok := reg.Get("丙大学")
	require.True(t, ok)
	assert.Equal(t, 1, u.Answers[0].Len())
}

func TestApplyBlacklistIdempotent(t *testing.T) {
	reg := survey.NewRegistry(1)
	load(t, reg, 1, "丁大学", "x")
	load(t, reg, 2, "测试", "y")
	l := &Lists{Blacklist: map[string]struct{}{"测试": {}, "不存在": {}}}

	rep, err := Apply(reg, l, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Removed)
	assert.Equal(t, []string{"丁大学"}, reg.Names())

	rep, err = Apply(reg, l, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Removed)
	assert.Equal(t, []string{"丁大学"}, reg.Names())
}

func TestApplyAnomalyScan(t *testing.T) {
	reg := survey.NewRegistry(1)
	load(t, reg, 4, "随便写写", "x")
	u := reg.GetOrCreate("随便写写")
	u.AddAttribution(survey.IndexedRecord{SourceID: 9, Text: "匿名"})
	load(t, reg, 5, "某某大学", "y")
	load(t, reg, 6, "国科大", "z")
	l := &Lists{Whitelist: map[string]struct{}{"国科大": {}}}

	log, logs := observed()
	rep, err := Apply(reg, l, log)
	require.NoError(t, err)
	assert.Equal(t, []string{"随便写写"}, rep.Anomalies)
	assert.Equal(t, 3, reg.Len())

	got := logs.FilterMessage("maybe invalid").All()
	require.Len(t, got, 1)
	assert.Equal(t, "随便写写", got[0].ContextMap()["name"])
	assert.Equal(t, "A4,A9", got[0].ContextMap()["ids"])
}

func TestApplyMergeMismatch(t *testing.T) {
	reg := survey.NewRegistry(2)
	reg.GetOrCreate("甲大学")
	bad := survey.NewRegistry(3).GetOrCreate("甲大学分部")
	reg.GetOrCreate("甲大学分部").Answers = bad.Answers
	l := &Lists{Aliases: []AliasEntry{{Primary: "甲大学", Aliases: []string{"甲大学分部"}}}}
	_, err := Apply(reg, l, nil)
	assert.Error(t, err)
}

func TestLoadLists(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
		return p
	}
	p := ListPaths{
		Alias:     write("alias.txt", "\ufeff甲大学|甲大学（本部）|\r\n\n乙学院\n"),
		Blacklist: write("blacklist.txt", " 测试 \n\n"),
		Whitelist: filepath.Join(dir, "absent.txt"),
	}
	l, err := LoadLists(p, "|", zhname.New())
	require.NoError(t, err)
	want := []AliasEntry{{Primary: "甲大学", Aliases: []string{"甲大学本部"}}, {Primary: "乙学院"}}
	if d := cmp.Diff(want, l.Aliases); d != "" {
		t.Fatalf("aliases (-want +got):\n%s", d)
	}
	assert.Contains(t, l.Blacklist, "测试")
	assert.Empty(t, l.Whitelist)
}

func TestFormatIDs(t *testing.T) {
	assert.Equal(t, "", FormatIDs(nil))
	assert.Equal(t, "A1,A22", FormatIDs([]int{1, 22}))
}

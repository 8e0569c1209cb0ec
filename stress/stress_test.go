package stress

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	cfgpkg "qnreport/internal/config"
	"qnreport/internal/pipeline"
)

const (
	universities = 400
	rowsPerUni   = 5
)

// writeDataset 生成合成问卷：universities 所院校，每所 rowsPerUni 行，约一半早于归档截止。
func writeDataset(t *testing.T, dir string) {
	t.Helper()
	var res strings.Builder
	res.WriteString("编号,来源,匿名,联系方式,展示联系方式,学校名称,宿舍？,空调？,自由补充,提交时间,备注\n")
	id := 1
	for u := 0; u < universities; u++ {
		for r := 0; r < rowsPerUni; r++ {
			at := "2023-06-01 12:00:00"
			if r%2 == 1 {
				at = "2022-06-01 12:00:00"
			}
			fmt.Fprintf(&res, "%d,web,1,u%d@example.com,1,第%d大学,四人间_%d,有*%d,补充%d,%s,\n", id, id, u, r, r, id, at)
			id++
		}
	}
	var col strings.Builder
	for u := 0; u < universities; u += 3 {
		fmt.Fprintf(&col, "地区%d,第%d大学\n", u%17, u)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "results_desensitized.csv"), []byte(res.String()), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "colleges.csv"), []byte(col.String()), 0o644))
}

// baseConfig 构造离线的最小可运行配置。
func baseConfig(dataDir, siteDir string) cfgpkg.Config {
	cfg := cfgpkg.DefaultTemplateConfig()
	off := false
	cfg.Download = &off
	cfg.DataDir = dataDir
	cfg.SiteDir = siteDir
	cfg.Questionnaire = []string{"宿舍？", "空调？"}
	cfg.TrailingFields = 3
	cfg.Logging.Level = "error"
	return cfg
}

// runPipeline 执行完整流水线。
func runPipeline(cfg cfgpkg.Config) (pipeline.Summary, error) {
	a, err := cfgpkg.Assemble(cfg, false)
	if err != nil {
		return pipeline.Summary{}, err
	}
	return pipeline.Run(context.Background(), a.Components, a.Settings, nil)
}

// TestStress 在不同并发度下运行流水线并记录延迟统计。
func TestStress(t *testing.T) {
	if testing.Short() {
		t.Skip("stress skipped in -short")
	}
	dataDir := t.TempDir()
	writeDataset(t, dataDir)

	levels := []int{1, 8, 16, 32}
	for _, conc := range levels {
		t.Run(fmt.Sprintf("concurrency_%d", conc), func(t *testing.T) {
			const runs = 3
			successes := 0
			latencies := make([]time.Duration, 0, runs)
			for i := 0; i < runs; i++ {
				cfg := baseConfig(dataDir, t.TempDir())
				cfg.Concurrency = conc
				start := time.Now()
				sum, err := runPipeline(cfg)
				dur := time.Since(start)
				if err != nil {
					t.Errorf("run %d: %v", i, err)
					continue
				}
				if sum.Pages != 2*universities {
					t.Errorf("run %d: pages %d, want %d", i, sum.Pages, 2*universities)
					continue
				}
				successes++
				latencies = append(latencies, dur)
			}
			if successes == 0 {
				t.Fatalf("全部运行失败")
			}
			sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
			var total time.Duration
			for _, d := range latencies {
				total += d
			}
			avg := total / time.Duration(len(latencies))
			idx := int(math.Ceil(float64(len(latencies))*0.95)) - 1
			if idx < 0 {
				idx = 0
			}
			p95 := latencies[idx]
			t.Logf("并发%d 成功率%.2f 平均%v 95%%延迟%v", conc, float64(successes)/float64(runs), avg, p95)
		})
	}
}

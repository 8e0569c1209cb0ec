package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"testing"

	"qnreport/internal/survey"
	"qnreport/plugins/writer/filesystem"
)

// BenchmarkRenderSection 测量不同并发度下渲染并原子写出 500 个页面的耗时。
func BenchmarkRenderSection(b *testing.B) {
	questions := make([]string, 25)
	for i := range questions {
		questions[i] = fmt.Sprintf("Q%d", i)
	}
	reg := survey.NewRegistry(len(questions))
	for i := 0; i < 500; i++ {
		u := reg.GetOrCreate(fmt.Sprintf("第%d大学", i))
		u.AddAttribution(survey.IndexedRecord{SourceID: i, Text: "匿名 (2024 年 01 月)"})
		for q := range questions {
			_ = u.AddAnswer(q, survey.IndexedRecord{SourceID: i, Text: "回答_内容"})
		}
	}
	for _, workers := range []int{1, runtime.NumCPU(), AutoConcurrency()} {
		b.Run(fmt.Sprintf("workers=%d", workers), func(b *testing.B) {
			fs, err := filesystem.New(&filesystem.Options{Root: b.TempDir()})
			if err != nil {
				b.Fatal(err)
			}
			comp := Components{Renderer: mustRenderer(b), Writer: fs}
			sec := Section{Registry: reg, Questions: questions, Concurrency: workers}
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := RenderSection(context.Background(), comp, sec, nil); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

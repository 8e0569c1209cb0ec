package site

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"qnreport/internal/diag"
	"qnreport/pkg/contract"
)

// HomeHeader 为首页 _index.md 的 front matter。
const HomeHeader = "---\ntitle: 首页\nurl: /\n---\n\n"

// Store 为引导阶段所需的可查询写入目标。
type Store interface {
	contract.Writer
	Exists(ctx context.Context, id contract.ArtifactID) (bool, error)
	EnsureDir(ctx context.Context, id contract.ArtifactID) error
}

// BootstrapOptions 描述需下载的远程文件。
type BootstrapOptions struct {
	BaseURL       string
	DocURL        string
	RequiredFiles []string
	RequiredDocs  []string
}

// EnsureLayout 创建在读、归档与选校指南目录。
func EnsureLayout(ctx context.Context, s Store) error {
	for _, d := range []contract.ArtifactID{
		UniversitiesRoot(false),
		UniversitiesRoot(true),
		contract.JoinArtifactID(DocsDir, ChooseDir),
	} {
		if err := s.EnsureDir(ctx, d); err != nil {
			return fmt.Errorf("ensure %s: %w", d, err)
		}
	}
	return nil
}

// Bootstrap 下载缺失的数据文件与文档，并刷新首页。
// 非 2xx 响应记录告警后跳过；缺失的数据文件会在后续加载阶段作为前置条件错误暴露。
func Bootstrap(ctx context.Context, f contract.Fetcher, data, site Store, o BootstrapOptions, log *diag.Logger) error {
	tm := log.Start("bootstrap", "download", zap.Int("files", len(o.RequiredFiles)), zap.Int("docs", len(o.RequiredDocs)))
	n, err := downloadMissing(ctx, f, data, "", o.BaseURL, o.RequiredFiles, log)
	if err != nil {
		return err
	}
	m, err := downloadMissing(ctx, f, site, contract.JoinArtifactID(DocsDir, ChooseDir), o.DocURL, o.RequiredDocs, log)
	if err != nil {
		return err
	}
	ok, err := refreshHome(ctx, f, site, joinURL(o.BaseURL, "site/docs/index.md"), log)
	if err != nil {
		return err
	}
	if ok {
		m++
	}
	tm.Finish("download", int64(n+m))
	return nil
}

func downloadMissing(ctx context.Context, f contract.Fetcher, s Store, dir contract.ArtifactID, base string, names []string, log *diag.Logger) (int, error) {
	saved := 0
	for _, name := range names {
		id := contract.JoinArtifactID(string(dir), name)
		exists, err := s.Exists(ctx, id)
		if err != nil {
			return saved, err
		}
		if exists {
			continue
		}
		url := joinURL(base, name)
		log.Info("bootstrap", "downloading", zap.String("name", name), zap.String("url", url))
		ok, err := fetchTo(ctx, f, s, id, url, nil, log)
		if err != nil {
			return saved, err
		}
		if ok {
			saved++
		}
	}
	return saved, nil
}

// refreshHome 每次运行重新拉取首页并加上 front matter 写为 _index.md。
func refreshHome(ctx context.Context, f contract.Fetcher, s Store, url string, log *diag.Logger) (bool, error) {
	return fetchTo(ctx, f, s, IndexOf(DocsDir), url, []byte(HomeHeader), log)
}

func fetchTo(ctx context.Context, f contract.Fetcher, s Store, id contract.ArtifactID, url string, prefix []byte, log *diag.Logger) (bool, error) {
	rc, err := f.Fetch(ctx, url)
	if err != nil {
		if errors.Is(err, contract.ErrFetchFailed) {
			diag.IncAnomaly("download_failed")
			log.Warn("bootstrap", "download failed", zap.String("url", url), zap.Error(err))
			return false, nil
		}
		return false, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer rc.Close()
	var r io.Reader = rc
	if len(prefix) > 0 {
		r = io.MultiReader(bytes.NewReader(prefix), rc)
	}
	if err := s.Write(ctx, id, r); err != nil {
		return false, fmt.Errorf("save %s: %w", id, err)
	}
	log.Info("bootstrap", "saved", zap.String("id", string(id)))
	return true, nil
}

func joinURL(base, name string) string {
	if base == "" {
		return name
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(name, "/")
}

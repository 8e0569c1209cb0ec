// Package site 定义 Hugo 站点的目录布局、页面路径解析、文件名清理与引导下载。
package site

import (
	"regexp"

	"qnreport/pkg/contract"
)

// 站点内固定目录（相对站点根，正斜杠分隔）。
const (
	DocsDir     = "content/docs"
	ArchivedDir = "archived"
	SectionDir  = "universities"
	ChooseDir   = "choose-a-college"
	IndexFile   = "_index.md"
)

// Section 名称，与终端进度中的分区名一致。
const (
	SectionActive   = "active"
	SectionArchived = "archived"
)

// SectionName 返回分区名。
func SectionName(archived bool) string {
	if archived {
		return SectionArchived
	}
	return SectionActive
}

// UniversitiesRoot 返回 content/docs[/archived]/universities。
func UniversitiesRoot(archived bool) contract.ArtifactID {
	if archived {
		return contract.JoinArtifactID(DocsDir, ArchivedDir, SectionDir)
	}
	return contract.JoinArtifactID(DocsDir, SectionDir)
}

// RegionDir 返回地区目录。
func RegionDir(region string, archived bool) contract.ArtifactID {
	return contract.JoinArtifactID(string(UniversitiesRoot(archived)), region)
}

// IndexOf 返回目录下的 _index.md 占位文件。
func IndexOf(dir contract.ArtifactID) contract.ArtifactID {
	return contract.JoinArtifactID(string(dir), IndexFile)
}

var illegal = regexp.MustCompile(`[\\/:*?"<>|\x00]`)

// SanitizeFilename 将非法文件名字符替换为 "_"；第二个返回值表示是否发生替换。
func SanitizeFilename(name string) (string, bool) {
	cleaned := illegal.ReplaceAllString(name, "_")
	return cleaned, cleaned != name
}

// PagePath 返回院校页面路径 <region dir>/<sanitized name>.md 及名称是否被清理。
// 名称作为单个路径段处理，其中的 "/" 不会产生子目录。
func PagePath(region, name string, archived bool) (contract.ArtifactID, bool) {
	stem, changed := SanitizeFilename(name)
	return contract.JoinArtifactID(string(RegionDir(region, archived)), stem+".md"), changed
}

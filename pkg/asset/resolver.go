package asset

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/shouni/go-utils/urlpath"
)

const (
	// DefaultClipDir は生成されたクリップを格納するデフォルトのディレクトリ名です。
	DefaultClipDir = "clips"
	// DefaultStoryJson は入力となるストーリー構成のデフォルト JSON ファイル名です。
	DefaultStoryJson = "story.json"
	// DefaultClipFileName はパネルクリップの共通のベースファイル名です。
	DefaultClipFileName = "clip.mp4"
	// DefaultSyncedFileName は音声同期済みクリップの共通のベースファイル名です。
	DefaultSyncedFileName = "synced.mp4"
	// DefaultFinalFileName は最終成果物のデフォルトのファイル名です。
	DefaultFinalFileName = "final_video.mp4"
)

var (
	// ClipFileRegex はパネルクリップ (clip_1.mp4 等) に一致します
	ClipFileRegex = createIndexedRegex(DefaultClipFileName)
	// SyncedFileRegex は同期済みクリップ (synced_1.mp4 等) に一致します
	SyncedFileRegex = createIndexedRegex(DefaultSyncedFileName)
)

// ResolveOutputPath は、ベースとなるディレクトリパスとファイル名から、
// GCS/ローカルを考慮した最終的な出力パスを生成します。
func ResolveOutputPath(baseDir, fileName string) (string, error) {
	return urlpath.ResolveOutputPath(baseDir, fileName)
}

// ResolveBaseURL は、入力パス（URLまたはローカルパス）から
// 親ディレクトリのパスを解決し、末尾がセパレータで終わるように正規化します。
func ResolveBaseURL(rawPath string) string {
	return urlpath.ResolveBaseURL(rawPath)
}

// GenerateIndexedPath は、指定されたベースパスの拡張子の前に連番を挿入し、
// 新しいパス文字列を生成します。index は1以上の整数である必要があります。
// 例: "path/to/clip.mp4", 1 -> "path/to/clip_1.mp4"
func GenerateIndexedPath(basePath string, index int) (string, error) {
	return urlpath.GenerateIndexedPath(basePath, index)
}

// createIndexedRegex は、ファイル名に基づきインデックス付きファイル用の正規表現を生成します。
// 例: "clip.mp4" -> ^clip_\d+\.mp4$
func createIndexedRegex(fileName string) *regexp.Regexp {
	ext := filepath.Ext(fileName)
	baseName := strings.TrimSuffix(fileName, ext)

	// baseName と ext の両方を QuoteMeta でエスケープすることで
	// ドットや特殊文字が含まれていても正しくリテラルとしてマッチします。
	pattern := fmt.Sprintf(`^%s_\d+%s$`, regexp.QuoteMeta(baseName), regexp.QuoteMeta(ext))
	return regexp.MustCompile(pattern)
}

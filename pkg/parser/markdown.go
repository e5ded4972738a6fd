package parser

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/shouni/go-anime-kit/pkg/domain"
)

const (
	fieldKeySpeaker = "speaker"
	fieldKeyText    = "text"
	fieldKeyAction  = "action"
	fieldKeyCamera  = "camera"
)

// Parser は解析するためのインターフェースなのだ。
type Parser interface {
	// Parse はスクリプトのURLと内容を受け取り、構造化された StoryResponse を返すのだ。
	Parse(scriptURL string, input string) (*domain.StoryResponse, error)
}

// MarkdownParser はMarkdown形式の台本を解析し、構造化データに変換する構造体です。
type MarkdownParser struct {
}

// NewMarkdownParser は Parser を初期化するのだ。
func NewMarkdownParser() *MarkdownParser {
	return &MarkdownParser{}
}

// Parse は指定された scriptURL を基に参照パスを解決し、Markdown テキストを解析して domain.StoryResponse 構造体に変換します。
func (p *MarkdownParser) Parse(scriptURL string, input string) (*domain.StoryResponse, error) {
	// その時の scriptURL に基づいてベースURLを算出する
	baseURL := resolveBaseURL(scriptURL)

	story := &domain.StoryResponse{}
	lines := strings.Split(input, "\n")
	var currentPanel *domain.Panel

	// 前のパネルを確定して追加するヘルパー関数
	addPreviousPanel := func() {
		if currentPanel != nil && hasContent(currentPanel) {
			story.Panels = append(story.Panels, *currentPanel)
		}
	}

	for _, line := range lines {
		trimmedLine := strings.TrimSpace(line)
		if trimmedLine == "" {
			continue
		}

		if m := TitleRegex.FindStringSubmatch(trimmedLine); m != nil {
			story.Title = strings.TrimSpace(m[1])
			continue
		}

		if m := PanelRegex.FindStringSubmatch(trimmedLine); m != nil {
			addPreviousPanel()

			var refPath string
			if len(m) > 1 {
				refPath = strings.TrimSpace(m[1])
			}
			// baseURL を渡して絶対パスを解決するのだ
			fullPath := resolveFullPath(baseURL, refPath)

			currentPanel = &domain.Panel{
				Index:        len(story.Panels) + 1,
				ReferenceURL: fullPath,
			}
			continue
		}

		// フィールド行 (- key: value) の解析
		if currentPanel != nil {
			if m := FieldRegex.FindStringSubmatch(trimmedLine); m != nil {
				key, val := strings.ToLower(m[1]), strings.TrimSpace(m[2])
				switch key {
				case fieldKeySpeaker:
					// SpeakerIDはシステム内で一意に扱うため、小文字に正規化する
					currentPanel.SpeakerID = strings.ToLower(val)
				case fieldKeyText:
					currentPanel.Dialogue = val
				case fieldKeyAction:
					currentPanel.VisualAnchor = val
				case fieldKeyCamera:
					currentPanel.CameraNote = val
				default:
					slog.Debug("Markdown内に未知のフィールドキーが見つかりました", "key", key)
				}
			}
		}
	}

	// 最後のパネルの追加
	if currentPanel != nil && hasContent(currentPanel) {
		story.Panels = append(story.Panels, *currentPanel)
	}

	if len(story.Panels) == 0 {
		return nil, fmt.Errorf("有効なパネル情報が見つかりませんでした")
	}

	return story, nil
}

// resolveFullPath はベースURLと相対パスから絶対URLを構築するのだ。
func resolveFullPath(baseURL string, refPath string) string {
	if refPath == "" {
		return ""
	}

	// URLをパースし、SchemeとHostが存在すれば絶対URLとみなす
	u, err := url.Parse(refPath)
	if err == nil && u.Scheme != "" && u.Host != "" {
		return refPath
	}

	return baseURL + refPath
}

// hasContent はパネルに有効な情報が含まれているか判定します。
func hasContent(panel *domain.Panel) bool {
	return panel.ReferenceURL != "" || panel.Dialogue != "" || panel.VisualAnchor != ""
}

package domain

import (
	"sort"
	"strings"
)

// UniqueSpeakerIDs はパネルのスライスから重複しない SpeakerID を抽出します。
func (ps Panels) UniqueSpeakerIDs() []string {
	set := make(map[string]struct{})
	for _, panel := range ps {
		if panel.SpeakerID != "" {
			set[panel.SpeakerID] = struct{}{}
		}
	}

	uniqueIDs := make([]string, 0, len(set))
	for id := range set {
		uniqueIDs = append(uniqueIDs, id)
	}
	sort.Strings(uniqueIDs)

	return uniqueIDs
}

// ParseDialogue はセリフ文字列を「話者: 本文」の形式で分解するのだ。
// コロンが無い場合は話者なしの本文として扱うのだよ。
func ParseDialogue(dialogue string, panelIndex int) *DialogueLine {
	dialogue = strings.TrimSpace(dialogue)
	if dialogue == "" {
		return nil
	}

	// 最初のコロンで話者と本文を分割する（本文中のコロンは温存）
	if idx := strings.Index(dialogue, ":"); idx > 0 {
		speaker := strings.TrimSpace(dialogue[:idx])
		text := strings.TrimSpace(dialogue[idx+1:])
		if text != "" {
			return &DialogueLine{
				Speaker:    speaker,
				Text:       text,
				PanelIndex: panelIndex,
			}
		}
	}

	return &DialogueLine{
		Speaker:    "",
		Text:       dialogue,
		PanelIndex: panelIndex,
	}
}

// ExtractLyricsLines は歌詞から [Verse] などの構造タグを取り除き、行単位で返します。
func ExtractLyricsLines(lyrics string) []string {
	var lines []string
	for _, line := range strings.Split(lyrics, "\n") {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			continue
		}
		if strings.HasPrefix(stripped, "[") && strings.HasSuffix(stripped, "]") {
			continue
		}
		lines = append(lines, stripped)
	}
	return lines
}

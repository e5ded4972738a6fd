package media

import (
	"fmt"
	"strings"

	"github.com/shouni/go-anime-kit/pkg/domain"
)

// ASS のカラーは &HAABBGGRR 形式なのだ。
const (
	assWhite        = "&H00FFFFFF"
	assGold         = "&H0000D7FF" // #FFD700 → BGR
	assBlackOutline = "&H00000000"
	assBackground   = "&HC0000000" // 約75%不透明の黒
)

// GenerateASS はキャプショントラックからカラオケ表示付きの ASS 字幕を生成します。
// \k タグの仕様では、単語は SecondaryColour で始まり、スイープが通過すると
// PrimaryColour に塗られます。つまり Primary が「歌い終わった色」です。
func GenerateASS(captions []domain.CaptionSegment, width, height int) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, `[Script Info]
Title: go-anime-kit captions
ScriptType: v4.00+
WrapStyle: 0
ScaledBorderAndShadow: yes
YCbCr Matrix: None
PlayResX: %d
PlayResY: %d

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Lyric,Noto Sans,56,%s,%s,%s,%s,-1,0,0,0,100,100,1,0,3,4,0,2,40,40,120,1

[Events]
Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text
`, width, height, assGold, assWhite, assBlackOutline, assBackground)

	for _, seg := range captions {
		start := msToASSTime(seg.StartMs)
		end := msToASSTime(seg.EndMs)

		var text string
		if len(seg.Words) > 0 {
			parts := make([]string, 0, len(seg.Words))
			for _, word := range seg.Words {
				// \k の長さはセンチ秒。最低1を保証する。
				durationCs := (word.EndMs - word.StartMs) / 10
				if durationCs < 1 {
					durationCs = 1
				}
				parts = append(parts, fmt.Sprintf("{\\k%d}%s", durationCs, escapeASS(word.Text)))
			}
			text = strings.Join(parts, " ")
		} else {
			text = escapeASS(seg.Text)
		}

		fmt.Fprintf(&sb, "Dialogue: 0,%s,%s,Lyric,,0,0,0,,%s\n", start, end, text)
	}

	return sb.String()
}

// msToASSTime はミリ秒を ASS のタイムスタンプ表記 H:MM:SS.cc に変換するのだ。
func msToASSTime(ms int64) string {
	totalCs := ms / 10
	cs := totalCs % 100
	totalS := totalCs / 100
	s := totalS % 60
	totalM := totalS / 60
	m := totalM % 60
	h := totalM / 60
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs)
}

// escapeASS は ASS の制御文字をエスケープするのだ。
func escapeASS(text string) string {
	text = strings.ReplaceAll(text, `\`, `\\`)
	text = strings.ReplaceAll(text, "{", `\{`)
	return strings.ReplaceAll(text, "}", `\}`)
}

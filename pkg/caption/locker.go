// Package caption はキャプション・歌詞セグメントのタイミング決定を担います。
// レンダリングは行わず、焼き込み可能なトラックを組み立てるまでが責務です。
package caption

import (
	"strings"

	"github.com/shouni/go-anime-kit/pkg/domain"
)

// LockOptions はパネル固定タイミングのポリシー値です。
type LockOptions struct {
	PanelCount      int
	PanelDurationMs int64
	TotalDurationMs int64
	// MarginFrac はパネル窓の両端から削る割合。0.1 なら各10%。
	MarginFrac float64
}

// LockToPanels は歌詞行を各パネルの固定時間窓に割り当てます（音楽モード）。
// 実際の歌唱タイミングは意図的に無視します。ボーカルのドリフトに関わらず、
// キャプションと映像の対応が保証されるのはこの方式だけだからです。
//
// 行数がパネル数の倍数なら均等に分配されます（2行ずつのクープレット構成が標準）。
// 各パネル窓は MarginFrac ぶん両端を縮め、行と単語はその中で均等配置されます。
func LockToPanels(lines []string, opts LockOptions) []domain.CaptionSegment {
	if len(lines) == 0 || opts.PanelCount <= 0 || opts.PanelDurationMs <= 0 {
		return nil
	}

	linesPerPanel := len(lines) / opts.PanelCount
	if linesPerPanel < 1 {
		linesPerPanel = 1
	}

	var segments []domain.CaptionSegment
	for pi := 0; pi < opts.PanelCount; pi++ {
		startIdx := pi * linesPerPanel
		if startIdx >= len(lines) {
			break
		}
		endIdx := startIdx + linesPerPanel
		if endIdx > len(lines) {
			endIdx = len(lines)
		}
		group := lines[startIdx:endIdx]

		panelStart := int64(pi) * opts.PanelDurationMs
		panelEnd := panelStart + opts.PanelDurationMs
		if opts.TotalDurationMs > 0 && panelEnd > opts.TotalDurationMs {
			panelEnd = opts.TotalDurationMs
		}
		if panelStart >= panelEnd {
			break
		}

		marginMs := int64(float64(opts.PanelDurationMs) * opts.MarginFrac)
		windowStart := panelStart + marginMs
		windowEnd := panelEnd - marginMs
		if windowStart >= windowEnd {
			continue
		}

		lineDuration := (windowEnd - windowStart) / int64(len(group))
		for li, line := range group {
			lineStart := windowStart + int64(li)*lineDuration
			lineEnd := lineStart + lineDuration
			if lineEnd > windowEnd {
				lineEnd = windowEnd
			}

			segments = append(segments, domain.CaptionSegment{
				Text:    line,
				StartMs: lineStart,
				EndMs:   lineEnd,
				Speaker: "♪", // ♪
				Words:   spreadWords(line, lineStart, lineEnd),
			})
		}
	}

	return segments
}

// spreadWords は行の単語を時間窓へ均等配置するのだ。
func spreadWords(line string, startMs, endMs int64) []domain.WordSegment {
	words := strings.Fields(line)
	if len(words) == 0 {
		return nil
	}

	wordDuration := (endMs - startMs) / int64(len(words))
	segments := make([]domain.WordSegment, 0, len(words))
	for i, word := range words {
		ws := startMs + int64(i)*wordDuration
		we := ws + wordDuration
		if we > endMs {
			we = endMs
		}
		segments = append(segments, domain.WordSegment{Text: word, StartMs: ws, EndMs: we})
	}
	return segments
}

// Offset はセグメント列の全タイムスタンプを byMs ずらした新しい列を返します。
// パネル基準のアライナー出力をコンポジション基準へ変換するのに使います。
func Offset(segments []domain.CaptionSegment, byMs int64) []domain.CaptionSegment {
	shifted := make([]domain.CaptionSegment, 0, len(segments))
	for _, seg := range segments {
		moved := seg
		moved.StartMs += byMs
		moved.EndMs += byMs
		moved.Words = make([]domain.WordSegment, 0, len(seg.Words))
		for _, w := range seg.Words {
			moved.Words = append(moved.Words, domain.WordSegment{
				Text:    w.Text,
				StartMs: w.StartMs + byMs,
				EndMs:   w.EndMs + byMs,
			})
		}
		shifted = append(shifted, moved)
	}
	return shifted
}

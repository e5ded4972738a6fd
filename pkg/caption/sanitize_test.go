package caption

import (
	"testing"

	"github.com/shouni/go-anime-kit/pkg/domain"
)

func TestSanitize(t *testing.T) {
	t.Run("長さゼロの単語は50msの床まで引き上げられるのだ", func(t *testing.T) {
		segments := []domain.CaptionSegment{
			{
				Text:    "のだ",
				StartMs: 0,
				EndMs:   1000,
				Words: []domain.WordSegment{
					{Text: "のだ", StartMs: 500, EndMs: 500},
				},
			},
		}

		got := Sanitize(segments, 4000, 50)
		if len(got) != 1 {
			t.Fatalf("セグメント数が違うのだ: %d", len(got))
		}
		w := got[0].Words[0]
		if w.EndMs-w.StartMs != 50 {
			t.Errorf("床まで引き上げられていないのだ: [%d, %d]", w.StartMs, w.EndMs)
		}
	})

	t.Run("引き上げで重なった後続の単語は玉突きでずれるのだ", func(t *testing.T) {
		segments := []domain.CaptionSegment{
			{
				Text:    "そう なのだ",
				StartMs: 0,
				EndMs:   600,
				Words: []domain.WordSegment{
					{Text: "そう", StartMs: 500, EndMs: 500},
					{Text: "なのだ", StartMs: 520, EndMs: 560},
				},
			},
		}

		got := Sanitize(segments, 4000, 50)
		words := got[0].Words

		// 1語目: [500, 550] に引き上げ
		if words[0].StartMs != 500 || words[0].EndMs != 550 {
			t.Errorf("1語目が期待と違うのだ: [%d, %d]", words[0].StartMs, words[0].EndMs)
		}
		// 2語目: 重なった30msぶん後ろへずれて [550, 590]、長さは床以上
		if words[1].StartMs < words[0].EndMs {
			t.Errorf("重なりが残っているのだ: %d < %d", words[1].StartMs, words[0].EndMs)
		}
		for i, w := range words {
			if w.EndMs-w.StartMs < 50 {
				t.Errorf("単語 %d が床を下回っているのだ: [%d, %d]", i, w.StartMs, w.EndMs)
			}
		}
		// セグメントの終端は単語列を覆う
		if got[0].EndMs < words[1].EndMs {
			t.Errorf("セグメント終端が単語を覆っていないのだ: %d < %d", got[0].EndMs, words[1].EndMs)
		}
	})

	t.Run("クリップの外で始まるセグメントは落とされるのだ", func(t *testing.T) {
		segments := []domain.CaptionSegment{
			{Text: "clip内", StartMs: 1000, EndMs: 2000},
			{Text: "clip外", StartMs: 4500, EndMs: 5000},
		}

		got := Sanitize(segments, 4000, 50)
		if len(got) != 1 || got[0].Text != "clip内" {
			t.Errorf("クリップ外のセグメントが残っているのだ: %+v", got)
		}
	})

	t.Run("セグメント終端はクリップ末尾へクランプされるのだ", func(t *testing.T) {
		segments := []domain.CaptionSegment{
			{Text: "長すぎる", StartMs: 3000, EndMs: 9000},
		}

		got := Sanitize(segments, 4000, 50)
		if got[0].EndMs != 4000 {
			t.Errorf("クランプされていないのだ: %d", got[0].EndMs)
		}
	})

	t.Run("玉突きで押し出された単語もクリップ末尾へクランプされるのだ", func(t *testing.T) {
		// 末尾付近の長さゼロの単語が引き上げ＋玉突きでクリップ尺を越えるケース
		segments := []domain.CaptionSegment{
			{
				Text:    "おわり なのだ",
				StartMs: 3800,
				EndMs:   3990,
				Words: []domain.WordSegment{
					{Text: "おわり", StartMs: 3960, EndMs: 3960},
					{Text: "なのだ", StartMs: 3970, EndMs: 3990},
				},
			},
		}

		got := Sanitize(segments, 4000, 50)
		if got[0].EndMs != 4000 {
			t.Fatalf("セグメント終端がクランプされていないのだ: %d", got[0].EndMs)
		}
		for i, w := range got[0].Words {
			if w.EndMs > got[0].EndMs {
				t.Errorf("単語 %d がセグメント終端をはみ出しているのだ: [%d, %d]", i, w.StartMs, w.EndMs)
			}
			if w.StartMs > w.EndMs {
				t.Errorf("単語 %d の区間が逆転しているのだ: [%d, %d]", i, w.StartMs, w.EndMs)
			}
		}
	})

	t.Run("短すぎるセグメント自体も床まで広げられるのだ", func(t *testing.T) {
		segments := []domain.CaptionSegment{
			{Text: "一瞬", StartMs: 100, EndMs: 110},
		}

		got := Sanitize(segments, 4000, 50)
		if got[0].EndMs-got[0].StartMs < 50 {
			t.Errorf("セグメントが床を下回っているのだ: %+v", got[0])
		}
	})
}

package media

import (
	"strings"
	"testing"

	"github.com/shouni/go-anime-kit/pkg/domain"
)

func TestGenerateASS(t *testing.T) {
	captions := []domain.CaptionSegment{
		{
			Text:    "君と 見上げた",
			StartMs: 400,
			EndMs:   3600,
			Speaker: "♪",
			Words: []domain.WordSegment{
				{Text: "君と", StartMs: 400, EndMs: 2000},
				{Text: "見上げた", StartMs: 2000, EndMs: 3600},
			},
		},
	}

	ass := GenerateASS(captions, 1080, 1920)

	t.Run("スタイルヘッダーに解像度とフォントが入るのだ", func(t *testing.T) {
		for _, want := range []string{
			"PlayResX: 1080",
			"PlayResY: 1920",
			"Style: Lyric,Noto Sans,56,",
			assGold,
			assWhite,
		} {
			if !strings.Contains(ass, want) {
				t.Errorf("%q が見つからないのだ", want)
			}
		}
	})

	t.Run("各単語にセンチ秒の \\k タグが付くのだ", func(t *testing.T) {
		// 1600ms = 160cs
		if !strings.Contains(ass, `{\k160}君と`) {
			t.Errorf("カラオケタグが違うのだ:\n%s", ass)
		}
		if !strings.Contains(ass, `{\k160}見上げた`) {
			t.Errorf("2語目のカラオケタグが違うのだ:\n%s", ass)
		}
	})

	t.Run("Dialogue 行のタイムスタンプが正しいのだ", func(t *testing.T) {
		if !strings.Contains(ass, "Dialogue: 0,0:00:00.40,0:00:03.60,Lyric,") {
			t.Errorf("タイムスタンプが違うのだ:\n%s", ass)
		}
	})

	t.Run("長さゼロの単語でも最低1センチ秒が保証されるのだ", func(t *testing.T) {
		zero := []domain.CaptionSegment{
			{
				Text:    "のだ",
				StartMs: 0,
				EndMs:   100,
				Words:   []domain.WordSegment{{Text: "のだ", StartMs: 50, EndMs: 55}},
			},
		}
		out := GenerateASS(zero, 1080, 1920)
		if !strings.Contains(out, `{\k1}のだ`) {
			t.Errorf("最低値が保証されていないのだ:\n%s", out)
		}
	})

	t.Run("単語のないセグメントは全文がそのまま出るのだ", func(t *testing.T) {
		plain := []domain.CaptionSegment{{Text: "出発なのだ", StartMs: 0, EndMs: 1000}}
		out := GenerateASS(plain, 1080, 1920)
		if !strings.Contains(out, ",出発なのだ\n") {
			t.Errorf("本文がそのまま出ていないのだ:\n%s", out)
		}
	})
}

func TestMsToASSTime(t *testing.T) {
	cases := map[int64]string{
		0:       "0:00:00.00",
		400:     "0:00:00.40",
		61500:   "0:01:01.50",
		3661230: "1:01:01.23",
	}
	for ms, want := range cases {
		if got := msToASSTime(ms); got != want {
			t.Errorf("msToASSTime(%d) = %s, 期待 %s", ms, got, want)
		}
	}
}

func TestEscapeASS(t *testing.T) {
	if got := escapeASS(`a{b}c\d`); got != `a\{b\}c\\d` {
		t.Errorf("エスケープ結果が違うのだ: %s", got)
	}
}

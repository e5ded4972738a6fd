package generator

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shouni/go-anime-kit/pkg/domain"

	"golang.org/x/time/rate"
)

// countingSpeechGen は PrepareVoice の呼び出し回数を数えるテスト用の実装なのだ。
type countingSpeechGen struct {
	prepareCalls atomic.Int64
	prepareDelay time.Duration
}

func (g *countingSpeechGen) PrepareVoice(_ context.Context, char *domain.Character) (string, error) {
	g.prepareCalls.Add(1)
	if g.prepareDelay > 0 {
		time.Sleep(g.prepareDelay)
	}
	return "resource://" + char.ID, nil
}

func (g *countingSpeechGen) Synthesize(_ context.Context, req SpeechRequest) (*domain.AudioTrack, error) {
	return &domain.AudioTrack{PanelIndex: req.PanelIndex, Path: req.OutputPath, Text: req.Text}, nil
}

func testCharacters() domain.CharactersMap {
	return domain.CharactersMap{
		"zundamon": {ID: "zundamon", Name: "ずんだもん", VoiceID: "jp-child-bright-01", IsPrimary: true},
		"metan":    {ID: "metan", Name: "四国めたん", VoiceID: "jp-female-calm-02"},
	}
}

func TestAnimeComposer_PrepareVoiceResources(t *testing.T) {
	t.Run("話者ごとに1回だけ解決されるのだ", func(t *testing.T) {
		speech := &countingSpeechGen{prepareDelay: 10 * time.Millisecond}
		ac := NewAnimeComposer(nil, speech, nil, nil, testCharacters(), rate.NewLimiter(rate.Inf, 1))

		// 同じ話者が複数パネルに登場しても解決は1回で済む
		panels := []domain.Panel{
			{Index: 1, SpeakerID: "zundamon", Dialogue: "ずんだもん: やっほーなのだ"},
			{Index: 2, SpeakerID: "metan", Dialogue: "めたん: こんにちは"},
			{Index: 3, SpeakerID: "zundamon", Dialogue: "ずんだもん: 早く行くのだ"},
		}

		if err := ac.PrepareVoiceResources(context.Background(), panels); err != nil {
			t.Fatalf("事前解決に失敗なのだ: %v", err)
		}

		if got := speech.prepareCalls.Load(); got != 2 {
			t.Errorf("解決回数が違うのだ: 期待 2, 実際 %d", got)
		}
		if got := ac.VoiceResource("zundamon"); got != "resource://zundamon" {
			t.Errorf("キャッシュの内容が違うのだ: %s", got)
		}
	})

	t.Run("未登録の話者は主キャラクターへフォールバックするのだ", func(t *testing.T) {
		speech := &countingSpeechGen{}
		ac := NewAnimeComposer(nil, speech, nil, nil, testCharacters(), rate.NewLimiter(rate.Inf, 1))

		panels := []domain.Panel{
			{Index: 1, SpeakerID: "narrator", Dialogue: "ナレーター: むかしむかし"},
		}

		if err := ac.PrepareVoiceResources(context.Background(), panels); err != nil {
			t.Fatalf("事前解決に失敗なのだ: %v", err)
		}
		if got := ac.VoiceResource("zundamon"); got != "resource://zundamon" {
			t.Errorf("主キャラクターの声が解決されるべきなのだ: %q", got)
		}
	})

	t.Run("2回目の呼び出しはキャッシュで完結するのだ", func(t *testing.T) {
		speech := &countingSpeechGen{}
		ac := NewAnimeComposer(nil, speech, nil, nil, testCharacters(), rate.NewLimiter(rate.Inf, 1))

		panels := []domain.Panel{{Index: 1, SpeakerID: "metan", Dialogue: "めたん: どうも"}}
		for i := 0; i < 2; i++ {
			if err := ac.PrepareVoiceResources(context.Background(), panels); err != nil {
				t.Fatalf("事前解決に失敗なのだ: %v", err)
			}
		}
		if got := speech.prepareCalls.Load(); got != 1 {
			t.Errorf("キャッシュが効いていないのだ: %d", got)
		}
	})
}

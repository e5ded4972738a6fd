package generator

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shouni/go-anime-kit/pkg/asset"
	"github.com/shouni/go-anime-kit/pkg/domain"

	"golang.org/x/time/rate"
)

// fakeClipGen は指定パネルだけ失敗させられるテスト用の実装なのだ。
type fakeClipGen struct {
	failIndex int // 0 なら全パネル成功
}

func (g *fakeClipGen) Generate(_ context.Context, req ClipRequest) (*domain.SilentClip, error) {
	if g.failIndex != 0 && req.PanelIndex == g.failIndex {
		return nil, errors.New("backend unavailable")
	}
	return &domain.SilentClip{PanelIndex: req.PanelIndex, Path: req.OutputPath, DurationMs: req.DurationMs}, nil
}

func testRunContext(t *testing.T) domain.RunContext {
	t.Helper()
	return domain.RunContext{
		RunID:          "run-test",
		WorkDir:        t.TempDir(),
		ClipDurationMs: 4000,
		WordFloorMs:    50,
	}
}

func TestClipBatchGenerator_Execute(t *testing.T) {
	t.Run("全パネルのクリップが揃い進捗が通知されるのだ", func(t *testing.T) {
		composer := NewAnimeComposer(&fakeClipGen{}, nil, nil, nil, testCharacters(), rate.NewLimiter(rate.Inf, 1))
		cg := NewClipBatchGenerator(composer)

		var mu sync.Mutex
		progressed := 0
		cg.OnProgress = func(index, total int) {
			mu.Lock()
			progressed++
			mu.Unlock()
		}

		rc := testRunContext(t)
		panels := []domain.Panel{
			{Index: 1, VisualAnchor: "夏祭りの屋台通り"},
			{Index: 2, VisualAnchor: "金魚すくいの水槽"},
			{Index: 3, VisualAnchor: "夜空に上がる花火"},
		}

		clips, errs, err := cg.Execute(context.Background(), rc, panels)
		if err != nil {
			t.Fatalf("バッチ全体は成功すべきなのだ: %v", err)
		}

		for i, clip := range clips {
			if clip == nil {
				t.Fatalf("パネル %d のクリップが無いのだ", i+1)
			}
			if errs[i] != nil {
				t.Errorf("パネル %d にエラーが記録されているのだ: %v", i+1, errs[i])
			}
			if clip.DurationMs != 4000 {
				t.Errorf("目標尺が違うのだ: %d", clip.DurationMs)
			}
			if !asset.ClipFileRegex.MatchString(filepath.Base(clip.Path)) {
				t.Errorf("出力パスの命名が違うのだ: %s", clip.Path)
			}
		}
		if progressed != len(panels) {
			t.Errorf("進捗通知の回数が違うのだ: %d", progressed)
		}
	})

	t.Run("1パネルの失敗はスロットに記録され他は続行するのだ", func(t *testing.T) {
		composer := NewAnimeComposer(&fakeClipGen{failIndex: 2}, nil, nil, nil, testCharacters(), rate.NewLimiter(rate.Inf, 1))
		cg := NewClipBatchGenerator(composer)

		rc := testRunContext(t)
		panels := []domain.Panel{
			{Index: 1, VisualAnchor: "a"},
			{Index: 2, VisualAnchor: "b"},
			{Index: 3, VisualAnchor: "c"},
		}

		clips, errs, err := cg.Execute(context.Background(), rc, panels)
		if err != nil {
			t.Fatalf("個別失敗でバッチ全体は失敗しないのだ: %v", err)
		}

		if clips[1] != nil || errs[1] == nil {
			t.Errorf("失敗パネルのスロットが違うのだ: clip=%v err=%v", clips[1], errs[1])
		}
		if clips[0] == nil || clips[2] == nil {
			t.Error("他のパネルは成功しているべきなのだ")
		}
	})
}

func TestSpeechBatchGenerator_Execute(t *testing.T) {
	t.Run("セリフのあるパネルだけ音声が作られるのだ", func(t *testing.T) {
		speech := &countingSpeechGen{}
		composer := NewAnimeComposer(nil, speech, nil, nil, testCharacters(), rate.NewLimiter(rate.Inf, 1))
		sg := NewSpeechBatchGenerator(composer)

		rc := testRunContext(t)
		panels := []domain.Panel{
			{Index: 1, SpeakerID: "zundamon", Dialogue: "ずんだもん: 夏祭りなのだ！"},
			{Index: 2, SpeakerID: "", Dialogue: ""}, // セリフなしパネル
			{Index: 3, SpeakerID: "metan", Dialogue: "めたん: 花火きれいね"},
		}

		tracks, errs, err := sg.Execute(context.Background(), rc, panels)
		if err != nil {
			t.Fatalf("バッチ全体は成功すべきなのだ: %v", err)
		}

		if tracks[0] == nil || tracks[2] == nil {
			t.Fatal("セリフのあるパネルの音声が無いのだ")
		}
		if tracks[1] != nil || errs[1] != nil {
			t.Errorf("セリフなしパネルは音声なし・エラーなしで成立するのだ: %v, %v", tracks[1], errs[1])
		}
		if tracks[0].Text != "夏祭りなのだ！" {
			t.Errorf("話者プレフィックスが剥がされていないのだ: %q", tracks[0].Text)
		}
	})
}

func TestWithRetry(t *testing.T) {
	t.Run("一時的な失敗は再試行で回復するのだ", func(t *testing.T) {
		attempts := 0
		got, err := withRetry(context.Background(), 0, func(_ context.Context) (string, error) {
			attempts++
			if attempts < 2 {
				return "", errors.New("transient")
			}
			return "ok", nil
		})
		if err != nil || got != "ok" {
			t.Fatalf("回復すべきなのだ: got=%q err=%v", got, err)
		}
		if attempts != 2 {
			t.Errorf("試行回数が違うのだ: %d", attempts)
		}
	})

	t.Run("コンテキスト取り消しで待機を打ち切るのだ", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := withRetry(ctx, 0, func(_ context.Context) (int, error) {
			return 0, errors.New("always fails")
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("取り消しエラーが返るべきなのだ: %v", err)
		}
	})

	t.Run("試行ごとに独立した打ち切り時間が付くのだ", func(t *testing.T) {
		var deadlines int
		got, err := withRetry(context.Background(), time.Minute, func(ctx context.Context) (string, error) {
			if _, ok := ctx.Deadline(); ok {
				deadlines++
			}
			return "ok", nil
		})
		if err != nil || got != "ok" {
			t.Fatalf("成功すべきなのだ: got=%q err=%v", got, err)
		}
		if deadlines != 1 {
			t.Errorf("打ち切り時間が設定されていないのだ: %d", deadlines)
		}
	})
}

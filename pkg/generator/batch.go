package generator

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/shouni/go-anime-kit/pkg/asset"
	"github.com/shouni/go-anime-kit/pkg/domain"
	"golang.org/x/sync/errgroup"
)

const (
	// 生成 API の一時的な失敗に対するリトライ回数と間隔
	maxGenerateAttempts = 3
	retryBackoff        = 2 * time.Second
)

// ClipBatchGenerator は、パネル群の無音クリップを並列で生成します。
// 個々のパネルの失敗は対応するスロットにエラーとして記録され、バッチ全体は中断しません。
type ClipBatchGenerator struct {
	composer   *AnimeComposer
	OnProgress func(index, total int)
	// RequestTimeout は生成呼び出し1回あたりの打ち切り時間。0 なら打ち切りなし。
	RequestTimeout time.Duration
}

// NewClipBatchGenerator は ClipBatchGenerator の新しいインスタンスを初期化します。
func NewClipBatchGenerator(composer *AnimeComposer) *ClipBatchGenerator {
	return &ClipBatchGenerator{composer: composer}
}

// Execute は、並列処理を用いてパネルごとの無音クリップを生成します。
// 戻り値の2つのスライスは panels と同じ長さで、各インデックスにクリップかエラーの
// いずれか一方が入ります。コンテキストの取り消しのみがエラーとして返ります。
func (cg *ClipBatchGenerator) Execute(ctx context.Context, rc domain.RunContext, panels []domain.Panel) ([]*domain.SilentClip, []error, error) {
	clips := make([]*domain.SilentClip, len(panels))
	errs := make([]error, len(panels))
	eg, egCtx := errgroup.WithContext(ctx)

	for i, panel := range panels {
		i, panel := i, panel
		eg.Go(func() error {
			if err := cg.composer.RateLimiter.Wait(egCtx); err != nil {
				return err
			}

			logger := slog.With("panel_index", i+1, "run_id", rc.RunID)
			logger.Info("パネルクリップの生成を開始します")

			outPath, pathErr := asset.GenerateIndexedPath(filepath.Join(rc.WorkDir, asset.DefaultClipFileName), i+1)
			if pathErr != nil {
				errs[i] = fmt.Errorf("panel %d clip path resolution failed: %w", i+1, pathErr)
				return nil
			}

			startTime := time.Now()
			clip, err := withRetry(egCtx, cg.RequestTimeout, func(callCtx context.Context) (*domain.SilentClip, error) {
				return cg.composer.ClipGenerator.Generate(callCtx, ClipRequest{
					PanelIndex:   panel.Index,
					VisualAnchor: panel.VisualAnchor,
					CameraNote:   panel.CameraNote,
					ReferenceURL: panel.ReferenceURL,
					DurationMs:   rc.PanelTargetMs(),
					OutputPath:   outPath,
				})
			})
			if err != nil {
				// パネル単位の失敗は致命ではないため、スロットに記録して続行
				logger.Warn("パネルクリップの生成に失敗しました", "error", err)
				errs[i] = fmt.Errorf("panel %d clip generation failed: %w", i+1, err)
			} else {
				logger.Info("パネルクリップの生成が完了しました", "duration", time.Since(startTime).Round(time.Millisecond))
				clips[i] = clip
			}

			if cg.OnProgress != nil {
				cg.OnProgress(i, len(panels))
			}
			return nil
		})
	}

	return clips, errs, eg.Wait()
}

// SpeechBatchGenerator は、パネルごとのセリフ音声を並列で合成します。
type SpeechBatchGenerator struct {
	composer   *AnimeComposer
	OnProgress func(index, total int)
	// RequestTimeout は合成呼び出し1回あたりの打ち切り時間。0 なら打ち切りなし。
	RequestTimeout time.Duration
}

// NewSpeechBatchGenerator は SpeechBatchGenerator の新しいインスタンスを初期化します。
func NewSpeechBatchGenerator(composer *AnimeComposer) *SpeechBatchGenerator {
	return &SpeechBatchGenerator{composer: composer}
}

// Execute は、話者リソースの事前解決を行ったうえで各パネルの音声合成を並行して実行します。
func (sg *SpeechBatchGenerator) Execute(ctx context.Context, rc domain.RunContext, panels []domain.Panel) ([]*domain.AudioTrack, []error, error) {
	// リソースの事前準備（並列解決を実行）
	if err := sg.composer.PrepareVoiceResources(ctx, panels); err != nil {
		return nil, nil, err
	}

	tracks := make([]*domain.AudioTrack, len(panels))
	errs := make([]error, len(panels))
	eg, egCtx := errgroup.WithContext(ctx)

	cm := sg.composer.CharactersMap

	for i, panel := range panels {
		i, panel := i, panel
		eg.Go(func() error {
			if err := sg.composer.RateLimiter.Wait(egCtx); err != nil {
				return err
			}

			line := domain.ParseDialogue(panel.Dialogue, panel.Index)
			if line == nil || line.Text == "" {
				// セリフのないパネルは音声なしで成立する
				return nil
			}

			char := cm.GetCharacterWithDefault(panel.SpeakerID)
			voiceID := ""
			if char != nil {
				voiceID = sg.composer.VoiceResource(char.ID)
				if voiceID == "" {
					voiceID = char.VoiceID
				}
			}

			track, err := withRetry(egCtx, sg.RequestTimeout, func(callCtx context.Context) (*domain.AudioTrack, error) {
				return sg.composer.SpeechGenerator.Synthesize(callCtx, SpeechRequest{
					PanelIndex: panel.Index,
					Text:       line.Text,
					VoiceID:    voiceID,
					OutputPath: filepath.Join(rc.WorkDir, fmt.Sprintf("speech_%03d.m4a", i)),
				})
			})
			if err != nil {
				slog.Warn("セリフ音声の合成に失敗しました", "panel_index", i+1, "error", err)
				errs[i] = fmt.Errorf("panel %d speech synthesis failed: %w", i+1, err)
			} else {
				tracks[i] = track
			}

			if sg.OnProgress != nil {
				sg.OnProgress(i, len(panels))
			}
			return nil
		})
	}

	return tracks, errs, eg.Wait()
}

// withRetry は一時的な失敗に備えて fn を最大 maxGenerateAttempts 回まで実行します。
// timeout が正のとき、各試行は独立した打ち切り時間を持ちます。
func withRetry[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 1; attempt <= maxGenerateAttempts; attempt++ {
		callCtx := ctx
		cancel := context.CancelFunc(func() {})
		if timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, timeout)
		}
		result, err := fn(callCtx)
		cancel()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if attempt < maxGenerateAttempts {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(retryBackoff):
			}
		}
	}
	return zero, lastErr
}

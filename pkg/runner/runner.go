// Package runner は、パネル群と音声意図から1本の検証済み動画を組み立てる
// オーケストレーターを提供します。実行は Planning → Generating → Syncing →
// Composing → Verifying の一方向の状態遷移として進み、後戻りはしません。
package runner

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/shouni/go-anime-kit/pkg/config"
	"github.com/shouni/go-anime-kit/pkg/domain"
	"github.com/shouni/go-anime-kit/pkg/event"
	"github.com/shouni/go-anime-kit/pkg/media"
	"github.com/shouni/go-anime-kit/pkg/verify"
)

// Syncer は無音クリップと音声トラックを目標尺ちょうどに結合します。
type Syncer interface {
	Sync(ctx context.Context, clip domain.SilentClip, audio domain.AudioTrack, targetMs int64, outPath string) (*domain.SyncedClip, error)
}

// Concatenator は同期済みクリップ列を1本に結合します。force が真のとき、
// プロファイル検査を省略して全クリップを強制的に正規化してから結合します。
type Concatenator interface {
	Concat(ctx context.Context, clipPaths []string, outPath string, force bool) error
}

// CaptionBurner はキャプショントラックを映像に焼き込みます。
type CaptionBurner interface {
	Burn(ctx context.Context, videoPath string, captions []domain.CaptionSegment, outPath string) error
}

// MusicMixer は楽曲トラックを映像に合成します。
type MusicMixer interface {
	Mix(ctx context.Context, videoPath, musicPath string, volume float64, outPath string) error
}

// OutputVerifier は最終成果物を期待値と突き合わせます。
type OutputVerifier interface {
	Verify(ctx context.Context, path string, expected verify.Expectation) domain.VerificationResult
}

// 実装がインターフェースを満たしていることのコンパイル時チェック
var (
	_ Syncer         = (*media.ClipSync)(nil)
	_ Concatenator   = (*media.Concatenator)(nil)
	_ CaptionBurner  = (*media.Burner)(nil)
	_ MusicMixer     = (*media.MusicMixer)(nil)
	_ OutputVerifier = (*verify.Verifier)(nil)
)

// newRunContext は1回の実行に固有の ID・作業ディレクトリ・ポリシー値を確定させます。
func newRunContext(cfg config.Config) (domain.RunContext, error) {
	runID := uuid.NewString()
	workDir, err := os.MkdirTemp("", "anime-kit-"+runID[:8]+"-")
	if err != nil {
		return domain.RunContext{}, fmt.Errorf("作業ディレクトリの作成に失敗しました: %w", err)
	}

	return domain.RunContext{
		RunID:               runID,
		WorkDir:             workDir,
		Profile:             cfg.Profile,
		ClipDurationMs:      cfg.ClipDurationMs,
		DurationToleranceMs: cfg.DurationToleranceMs,
		WordFloorMs:         cfg.WordFloorMs,
		CaptionMarginFrac:   cfg.CaptionMarginFrac,
	}, nil
}

// startKeepalive は長時間の外部呼び出し中も無通信間隔が interval を超えないよう、
// 停止されるまで keepalive イベントを送出し続けます。
func startKeepalive(stream *event.Stream, interval time.Duration) (stop func()) {
	if interval <= 0 {
		interval = config.DefaultKeepaliveInterval
	}
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				stream.Emit(event.Event{Type: event.TypeKeepalive})
			}
		}
	}()
	return func() { close(done) }
}

// emitError は致命的エラーを終端イベントとして送出し、そのままエラーを返します。
func emitError(stream *event.Stream, runID string, err error) error {
	stream.Emit(event.Event{
		Type:    event.TypeError,
		RunID:   runID,
		Message: err.Error(),
	})
	return err
}

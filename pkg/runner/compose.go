package runner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shouni/go-remote-io/remoteio"

	"github.com/shouni/go-anime-kit/pkg/config"
	"github.com/shouni/go-anime-kit/pkg/domain"
	"github.com/shouni/go-anime-kit/pkg/event"
	"github.com/shouni/go-anime-kit/pkg/verify"
)

// composePipeline は、両モードの Runner が共有する合成・検証・出力の後段処理です。
type composePipeline struct {
	cfg      config.Config
	concat   Concatenator
	mixer    MusicMixer
	burner   CaptionBurner
	verifier OutputVerifier
	writer   remoteio.OutputWriter
}

// composeInput は後段処理への入力一式です。musicPath が空のときは楽曲合成を行いません。
type composeInput struct {
	rc           domain.RunContext
	clipPaths    []string
	captions     []domain.CaptionSegment
	musicPath    string
	musicVolume  float64
	requireAudio bool
	outPath      string
}

// finish は結合・楽曲合成・字幕焼き込み・検証・出力を実行します。
// 検証が解像度不一致で失敗した場合に限り、強制正規化での再構築を1度だけ試みます。
func (cp *composePipeline) finish(ctx context.Context, in composeInput, stream *event.Stream) (*domain.VerificationResult, error) {
	stream.Emit(event.Event{Type: event.TypeCompose, ClipCount: len(in.clipPaths)})

	finalLocal, err := cp.buildArtifact(ctx, in, false, "")
	if err != nil {
		return nil, err
	}

	expected := verify.Expectation{
		DurationMs:   in.rc.TotalTargetMs(len(in.clipPaths)),
		Width:        in.rc.Profile.Width,
		Height:       in.rc.Profile.Height,
		RequireAudio: in.requireAudio,
		ToleranceMs:  in.rc.DurationToleranceMs,
		MinFileSize:  cp.cfg.MinFileSize,
	}
	result := cp.verifier.Verify(ctx, finalLocal, expected)

	if !result.Passed && result.ResolutionFailed() {
		// 解像度不一致はジェネレーターのプロファイル混在が原因であることが多く、
		// 全クリップの強制正規化で修復できる見込みがある
		slog.InfoContext(ctx, "解像度不一致を検出したため、強制正規化で再構築します", "run_id", in.rc.RunID)

		repaired, repairErr := cp.buildArtifact(ctx, in, true, "_repaired")
		if repairErr != nil {
			slog.WarnContext(ctx, "修復ビルドに失敗しました", "error", repairErr)
		} else {
			finalLocal = repaired
			result = cp.verifier.Verify(ctx, finalLocal, expected)
		}
	}

	if err := cp.publish(ctx, finalLocal, in.outPath); err != nil {
		return nil, err
	}
	return &result, nil
}

// buildArtifact は結合→楽曲合成→字幕焼き込みのチェーンを実行し、ローカルの成果物パスを返します。
// suffix は修復ビルドの成果物を初回ビルドと別ファイルにするために使います。
func (cp *composePipeline) buildArtifact(ctx context.Context, in composeInput, force bool, suffix string) (string, error) {
	current := filepath.Join(in.rc.WorkDir, "concat"+suffix+".mp4")
	if err := cp.concat.Concat(ctx, in.clipPaths, current, force); err != nil {
		return "", fmt.Errorf("クリップの結合に失敗しました: %w", err)
	}

	if in.musicPath != "" {
		mixed := filepath.Join(in.rc.WorkDir, "mixed"+suffix+".mp4")
		if err := cp.mixer.Mix(ctx, current, in.musicPath, in.musicVolume, mixed); err != nil {
			return "", fmt.Errorf("楽曲の合成に失敗しました: %w", err)
		}
		current = mixed
	}

	if len(in.captions) > 0 {
		burned := filepath.Join(in.rc.WorkDir, "final"+suffix+".mp4")
		if err := cp.burner.Burn(ctx, current, in.captions, burned); err != nil {
			return "", fmt.Errorf("字幕の焼き込みに失敗しました: %w", err)
		}
		current = burned
	}

	return current, nil
}

// publish はローカルの成果物を最終出力先（GCS またはローカルパス）へ書き出します。
func (cp *composePipeline) publish(ctx context.Context, localPath, outPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("成果物のオープンに失敗しました: %w", err)
	}
	defer f.Close()

	if err := cp.writer.Write(ctx, outPath, f, "video/mp4"); err != nil {
		return fmt.Errorf("成果物の書き出しに失敗しました (path: %s): %w", outPath, err)
	}
	slog.InfoContext(ctx, "最終成果物を保存しました", "path", outPath)
	return nil
}

// completeEvent は終端の complete イベントを組み立てます。
func completeEvent(rc domain.RunContext, in composeInput, result *domain.VerificationResult, clipsFailed int) event.Event {
	return event.Event{
		Type:                 event.TypeComplete,
		RunID:                rc.RunID,
		FinalPath:            in.outPath,
		Verified:             result.Passed,
		VerificationFailures: result.Failures,
		HasAudio:             result.HasAudio,
		HasCaptions:          len(in.captions) > 0,
		TotalDurationMs:      result.ActualDurationMs,
		ClipCount:            len(in.clipPaths),
		ClipsFailed:          clipsFailed,
		Verification:         result,
	}
}

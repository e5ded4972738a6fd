package runner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shouni/go-remote-io/remoteio"
	"golang.org/x/sync/errgroup"

	"github.com/shouni/go-anime-kit/pkg/asset"
	"github.com/shouni/go-anime-kit/pkg/caption"
	"github.com/shouni/go-anime-kit/pkg/config"
	"github.com/shouni/go-anime-kit/pkg/domain"
	"github.com/shouni/go-anime-kit/pkg/event"
	"github.com/shouni/go-anime-kit/pkg/generator"
)

// AnimateRunner は対話モードのパイプラインを実行します。
// パネルごとにセリフ音声とクリップを並行生成し、同期・結合・字幕焼き込みを経て
// 検証済みの1本の動画を出力します。
type AnimateRunner struct {
	composePipeline
	clips   *generator.ClipBatchGenerator
	speech  *generator.SpeechBatchGenerator
	aligner generator.Aligner
	syncer  Syncer
}

// NewAnimateRunner は、依存関係を注入して初期化します。
func NewAnimateRunner(
	cfg config.Config,
	clips *generator.ClipBatchGenerator,
	speech *generator.SpeechBatchGenerator,
	aligner generator.Aligner,
	syncer Syncer,
	concat Concatenator,
	burner CaptionBurner,
	verifier OutputVerifier,
	writer remoteio.OutputWriter,
) *AnimateRunner {
	return &AnimateRunner{
		composePipeline: composePipeline{
			cfg:      cfg,
			concat:   concat,
			burner:   burner,
			verifier: verifier,
			writer:   writer,
		},
		clips:   clips,
		speech:  speech,
		aligner: aligner,
		syncer:  syncer,
	}
}

// Run は台本(StoryResponse)を受け取り、対話モードの動画を生成するのだ。
// 呼び出し側は stream から進捗を受け取り、必ず complete か error のどちらか一方で終端するのだ。
func (r *AnimateRunner) Run(ctx context.Context, story *domain.StoryResponse, outPath string, stream *event.Stream) (*domain.VerificationResult, error) {
	rc, err := newRunContext(r.cfg)
	if err != nil {
		return nil, emitError(stream, "", err)
	}
	defer os.RemoveAll(rc.WorkDir)

	panels := story.Panels
	stream.Emit(event.Event{
		Type:       event.TypeStart,
		Mode:       "dialogue",
		RunID:      rc.RunID,
		PanelCount: len(panels),
	})

	stopKeepalive := startKeepalive(stream, r.cfg.KeepaliveInterval)
	defer stopKeepalive()

	// 映像と音声は互いに独立なので、2本の枝を並行して走らせる
	var clipsOut []*domain.SilentClip
	var clipErrs []error
	var tracksOut []*domain.AudioTrack
	var trackErrs []error

	r.clips.OnProgress = func(index, total int) {
		stream.Emit(event.Event{Type: event.TypeVideoProgress, Index: index + 1, Total: total})
	}
	r.speech.OnProgress = func(index, total int) {
		stream.Emit(event.Event{Type: event.TypeTTSProgress, Index: index + 1, Total: total})
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var genErr error
		clipsOut, clipErrs, genErr = r.clips.Execute(egCtx, rc, panels)
		return genErr
	})
	eg.Go(func() error {
		var genErr error
		tracksOut, trackErrs, genErr = r.speech.Execute(egCtx, rc, panels)
		return genErr
	})
	if err := eg.Wait(); err != nil {
		return nil, emitError(stream, rc.RunID, fmt.Errorf("生成フェーズが中断されました: %w", err))
	}

	// 映像と音声を常にペアで束ね、生成に失敗したパネルはペアごと脱落させる。
	// セリフが無いだけのパネルは無音クリップとして生き残る。
	results := make([]domain.PanelResult, len(panels))
	for i := range panels {
		results[i] = domain.PanelResult{
			Panel:    panels[i],
			Video:    clipsOut[i],
			Audio:    tracksOut[i],
			VideoErr: clipErrs[i],
			AudioErr: trackErrs[i],
		}
	}
	survivors := domain.SurvivingResults(results, true)
	clipsFailed := len(panels) - len(survivors)
	if clipsFailed > 0 {
		slog.WarnContext(ctx, "一部のパネルが脱落しました", "failed", clipsFailed, "surviving", len(survivors))
	}
	if len(survivors) == 0 {
		return nil, emitError(stream, rc.RunID, fmt.Errorf("全 %d パネルの生成に失敗したため、合成できるクリップがありません", len(panels)))
	}

	// Syncing: 各ペアを目標尺ちょうどの同期済みクリップへ
	syncedPaths := make([]string, 0, len(survivors))
	syncedResults := make([]domain.PanelResult, 0, len(survivors))
	syncedBase := filepath.Join(rc.WorkDir, asset.DefaultSyncedFileName)
	for i, pr := range survivors {
		if pr.Audio == nil {
			// セリフの無いパネルは同期の対象外。目標尺で生成済みの
			// 無音クリップをそのまま合成へ進める
			syncedPaths = append(syncedPaths, pr.Video.Path)
			syncedResults = append(syncedResults, pr)
			continue
		}

		outClip, pathErr := asset.GenerateIndexedPath(syncedBase, i+1)
		if pathErr != nil {
			return nil, emitError(stream, rc.RunID, fmt.Errorf("同期済みクリップの出力パス生成に失敗しました: %w", pathErr))
		}
		synced, syncErr := r.syncer.Sync(ctx, *pr.Video, *pr.Audio, rc.PanelTargetMs(), outClip)
		if syncErr != nil {
			// 同期の失敗はそのパネル単体の致命であり、ラン全体は続行する
			slog.WarnContext(ctx, "クリップ同期に失敗したためパネルを脱落させます",
				"panel_index", pr.Panel.Index, "error", syncErr)
			clipsFailed++
			continue
		}
		syncedPaths = append(syncedPaths, synced.Path)
		syncedResults = append(syncedResults, pr)
	}
	if len(syncedPaths) == 0 {
		return nil, emitError(stream, rc.RunID, fmt.Errorf("同期に成功したクリップがありません"))
	}

	captions := r.alignCaptions(ctx, rc, syncedResults, stream)

	// 全パネルが無音のときは、最終成果物に音声ストリームを要求しない
	hasAudio := false
	for _, pr := range syncedResults {
		if pr.Audio != nil {
			hasAudio = true
			break
		}
	}

	in := composeInput{
		rc:           rc,
		clipPaths:    syncedPaths,
		captions:     captions,
		requireAudio: hasAudio,
		outPath:      outPath,
	}
	result, err := r.finish(ctx, in, stream)
	if err != nil {
		return nil, emitError(stream, rc.RunID, err)
	}

	stream.Emit(completeEvent(rc, in, result, clipsFailed))
	return result, nil
}

// alignCaptions は生成済み音声に対する強制アラインメントで字幕トラックを組み立てます。
// アラインメントの失敗はそのパネルの字幕を欠くだけで、ラン全体には影響しません。
func (r *AnimateRunner) alignCaptions(ctx context.Context, rc domain.RunContext, survivors []domain.PanelResult, stream *event.Stream) []domain.CaptionSegment {
	captions := make([]domain.CaptionSegment, 0, len(survivors))

	for pos, pr := range survivors {
		if pr.Audio == nil {
			// 無音パネルには字幕を付けない。位置だけコンポジション内で消費する
			continue
		}

		stream.Emit(event.Event{Type: event.TypeAlignProgress, Index: pos + 1, Total: len(survivors)})

		words, err := r.aligner.Align(ctx, pr.Audio.Path, pr.Audio.Text)
		if err != nil {
			slog.WarnContext(ctx, "アラインメントに失敗したため、このパネルの字幕を省略します",
				"panel_index", pr.Panel.Index, "error", err)
			continue
		}
		if len(words) == 0 {
			continue
		}

		seg := domain.CaptionSegment{
			Text:    pr.Audio.Text,
			StartMs: words[0].StartMs,
			EndMs:   words[len(words)-1].EndMs,
			Speaker: pr.Panel.SpeakerID,
			Words:   words,
		}

		// クリップ内で正規化してから、コンポジション内の自クリップの位置へずらす
		sanitized := caption.Sanitize([]domain.CaptionSegment{seg}, rc.PanelTargetMs(), rc.WordFloorMs)
		shifted := caption.Offset(sanitized, int64(pos)*rc.PanelTargetMs())
		captions = append(captions, shifted...)

		stream.Emit(event.Event{Type: event.TypeCaptionProgress, Index: pos + 1, Total: len(survivors)})
	}

	return captions
}

package runner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shouni/go-remote-io/remoteio"
	"golang.org/x/sync/errgroup"

	"github.com/shouni/go-anime-kit/pkg/caption"
	"github.com/shouni/go-anime-kit/pkg/config"
	"github.com/shouni/go-anime-kit/pkg/domain"
	"github.com/shouni/go-anime-kit/pkg/event"
	"github.com/shouni/go-anime-kit/pkg/generator"
)

// MusicRunner は音楽モードのパイプラインを実行します。
// パネルごとの無音クリップと楽曲全体を並行生成し、結合した映像へ楽曲を合成したうえで、
// パネル固定のカラオケ字幕を焼き込みます。
type MusicRunner struct {
	composePipeline
	clips *generator.ClipBatchGenerator
	music generator.MusicGenerator
}

// NewMusicRunner は、依存関係を注入して初期化します。
func NewMusicRunner(
	cfg config.Config,
	clips *generator.ClipBatchGenerator,
	music generator.MusicGenerator,
	concat Concatenator,
	mixer MusicMixer,
	burner CaptionBurner,
	verifier OutputVerifier,
	writer remoteio.OutputWriter,
) *MusicRunner {
	return &MusicRunner{
		composePipeline: composePipeline{
			cfg:      cfg,
			concat:   concat,
			mixer:    mixer,
			burner:   burner,
			verifier: verifier,
			writer:   writer,
		},
		clips: clips,
		music: music,
	}
}

// Run は台本と歌詞を受け取り、音楽モードの動画を生成するのだ。
// 歌詞の各行はパネルの時間窓に固定され、実際の歌唱タイミングには追従しないのだ。
func (r *MusicRunner) Run(ctx context.Context, story *domain.StoryResponse, lyrics, outPath string, stream *event.Stream) (*domain.VerificationResult, error) {
	rc, err := newRunContext(r.cfg)
	if err != nil {
		return nil, emitError(stream, "", err)
	}
	defer os.RemoveAll(rc.WorkDir)

	panels := story.Panels
	stream.Emit(event.Event{
		Type:       event.TypeStart,
		Mode:       "music",
		RunID:      rc.RunID,
		PanelCount: len(panels),
	})

	stopKeepalive := startKeepalive(stream, r.cfg.KeepaliveInterval)
	defer stopKeepalive()

	r.clips.OnProgress = func(index, total int) {
		stream.Emit(event.Event{Type: event.TypeVideoProgress, Index: index + 1, Total: total})
	}

	// クリップ生成と楽曲生成は独立なので並行実行する
	var clipsOut []*domain.SilentClip
	var clipErrs []error
	var musicTrack *domain.AudioTrack

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var genErr error
		clipsOut, clipErrs, genErr = r.clips.Execute(egCtx, rc, panels)
		return genErr
	})
	eg.Go(func() error {
		track, genErr := r.music.Generate(egCtx, generator.MusicRequest{
			Prompt:     story.Description,
			Lyrics:     lyrics,
			DurationMs: rc.TotalTargetMs(len(panels)),
			OutputPath: filepath.Join(rc.WorkDir, "music.m4a"),
		})
		if genErr != nil {
			// 楽曲が無くても動画そのものは成立する。失敗は警告に落とし、
			// 楽曲なしで続行して映像の成果物は必ず届ける
			slog.WarnContext(egCtx, "楽曲の生成に失敗したため、楽曲なしで続行します", "error", genErr)
			stream.Emit(event.Event{
				Type:    event.TypeWarning,
				Message: fmt.Sprintf("楽曲の生成に失敗したため、楽曲なしで続行します: %v", genErr),
			})
			return nil
		}
		musicTrack = track
		stream.Emit(event.Event{Type: event.TypeMusicProgress, Index: 1, Total: 1})
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, emitError(stream, rc.RunID, err)
	}

	results := make([]domain.PanelResult, len(panels))
	for i := range panels {
		results[i] = domain.PanelResult{
			Panel:    panels[i],
			Video:    clipsOut[i],
			VideoErr: clipErrs[i],
		}
	}
	survivors := domain.SurvivingResults(results, false)
	clipsFailed := len(panels) - len(survivors)
	if clipsFailed > 0 {
		slog.WarnContext(ctx, "一部のパネルが脱落しました", "failed", clipsFailed, "surviving", len(survivors))
	}
	if len(survivors) == 0 {
		return nil, emitError(stream, rc.RunID, fmt.Errorf("全 %d パネルの生成に失敗したため、合成できるクリップがありません", len(panels)))
	}

	clipPaths := make([]string, len(survivors))
	for i, pr := range survivors {
		clipPaths[i] = pr.Video.Path
	}

	captions := r.lockCaptions(rc, lyrics, len(survivors), stream)

	// 楽曲の生成に失敗していた場合、musicPath は空のまま合成をスキップする
	musicPath := ""
	if musicTrack != nil {
		musicPath = musicTrack.Path
	}

	in := composeInput{
		rc:           rc,
		clipPaths:    clipPaths,
		captions:     captions,
		musicPath:    musicPath,
		musicVolume:  r.cfg.MusicVolume,
		requireAudio: musicTrack != nil,
		outPath:      outPath,
	}
	result, err := r.finish(ctx, in, stream)
	if err != nil {
		return nil, emitError(stream, rc.RunID, err)
	}

	stream.Emit(completeEvent(rc, in, result, clipsFailed))
	return result, nil
}

// lockCaptions は歌詞の各行を生き残ったパネルの時間窓に固定した字幕トラックを返します。
func (r *MusicRunner) lockCaptions(rc domain.RunContext, lyrics string, panelCount int, stream *event.Stream) []domain.CaptionSegment {
	lines := domain.ExtractLyricsLines(lyrics)
	if len(lines) == 0 {
		return nil
	}

	captions := caption.LockToPanels(lines, caption.LockOptions{
		PanelCount:      panelCount,
		PanelDurationMs: rc.PanelTargetMs(),
		TotalDurationMs: rc.TotalTargetMs(panelCount),
		MarginFrac:      rc.CaptionMarginFrac,
	})
	stream.Emit(event.Event{Type: event.TypeCaptionProgress, Index: len(captions), Total: len(captions)})
	return captions
}

package media

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/shouni/go-anime-kit/pkg/domain"
)

// ClipSync は無音クリップ1本と音声トラック1本を目標尺ちょうどに結合します。
// 映像トラックが尺の基準であり、音声が短ければ無音で埋め、長ければ切り詰めます。
type ClipSync struct {
	prober *Prober
	run    CommandRunner
}

// NewClipSync は ClipSync を初期化します。
func NewClipSync(prober *Prober, runner CommandRunner) *ClipSync {
	if runner == nil {
		runner = ExecRunner
	}
	return &ClipSync{prober: prober, run: runner}
}

// Sync はクリップと音声を結合し、targetMs ちょうどの SyncedClip を outPath に書き出します。
// 入力が読めない・尺ゼロの場合は SyncError を返します。該当パネルのみの失敗であり、
// 呼び出し側はラン全体を中断してはなりません。
func (cs *ClipSync) Sync(ctx context.Context, clip domain.SilentClip, audio domain.AudioTrack, targetMs int64, outPath string) (*domain.SyncedClip, error) {
	clipProbe, err := cs.prober.Probe(ctx, clip.Path)
	if err != nil {
		return nil, &SyncError{Path: clip.Path, Reason: "clip unreadable", Err: err}
	}
	if clipProbe.DurationMs == 0 {
		return nil, &SyncError{Path: clip.Path, Reason: "clip has zero duration"}
	}

	audioProbe, err := cs.prober.Probe(ctx, audio.Path)
	if err != nil {
		return nil, &SyncError{Path: audio.Path, Reason: "audio unreadable", Err: err}
	}
	if audioProbe.DurationMs == 0 {
		return nil, &SyncError{Path: audio.Path, Reason: "audio has zero duration"}
	}

	audioPath := audio.Path
	if audioProbe.DurationMs < targetMs {
		// 短い音声は末尾に無音を足して目標尺に揃える（タイムストレッチはしない）
		padded := paddedAudioPath(outPath)
		if err := cs.padAudio(ctx, audio.Path, padded, targetMs); err != nil {
			return nil, err
		}
		audioPath = padded
	}

	// 無音ソースへの結合はストリーム単位のアタッチで行う。
	// 音声ストリームを持たないクリップに amix 系フィルタを適用してはならない。
	// これは最適化ではなく正しさの要件である。
	args := attachArgs(clip.Path, audioPath, targetMs, outPath)

	slog.InfoContext(ctx, "クリップと音声を結合します",
		"panel", clip.PanelIndex,
		"clip_ms", clipProbe.DurationMs,
		"audio_ms", audioProbe.DurationMs,
		"target_ms", targetMs,
	)

	if _, stderr, err := cs.run(ctx, "ffmpeg", args...); err != nil {
		return nil, &SyncError{Path: clip.Path, Reason: "ffmpeg attach failed", Stderr: stderrTail(stderr, 500), Err: err}
	}
	cs.prober.Invalidate(outPath)

	return &domain.SyncedClip{
		Path:       outPath,
		DurationMs: targetMs,
		PanelIndex: clip.PanelIndex,
		HasAudio:   true,
	}, nil
}

// padAudio は apad フィルタで音声を目標尺まで無音延長します。
func (cs *ClipSync) padAudio(ctx context.Context, src, dst string, targetMs int64) error {
	args := []string{
		"-y",
		"-i", src,
		"-af", fmt.Sprintf("apad=whole_dur=%s", msToSeconds(targetMs)),
		"-c:a", "pcm_s16le",
		dst,
	}
	if _, stderr, err := cs.run(ctx, "ffmpeg", args...); err != nil {
		return &SyncError{Path: src, Reason: "audio pad failed", Stderr: stderrTail(stderr, 500), Err: err}
	}
	return nil
}

// attachArgs は映像コピー＋音声アタッチのコマンド引数を組み立てます。
// -t で目標尺に正確に切り詰めるため、音声が長すぎる場合もここで吸収されます。
func attachArgs(videoPath, audioPath string, targetMs int64, outPath string) []string {
	return []string{
		"-y",
		"-i", videoPath,
		"-i", audioPath,
		"-c:v", "copy",
		"-c:a", "aac",
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-t", msToSeconds(targetMs),
		outPath,
	}
}

// paddedAudioPath は出力クリップの隣に置くパディング済み音声の一時パスを返すのだ。
func paddedAudioPath(outPath string) string {
	dir := filepath.Dir(outPath)
	base := filepath.Base(outPath)
	ext := filepath.Ext(base)
	return filepath.Join(dir, base[:len(base)-len(ext)]+"_padded.wav")
}

// msToSeconds はミリ秒を ffmpeg に渡す秒表記へ変換します。
func msToSeconds(ms int64) string {
	return fmt.Sprintf("%d.%03d", ms/1000, ms%1000)
}

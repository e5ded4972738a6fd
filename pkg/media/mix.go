package media

import (
	"context"
	"fmt"
	"log/slog"
)

// MusicMixer は結合済み動画へ音楽トラックを付与します。
// 動画側に既存の音声ストリームがある場合のみ amix を使い、
// 無音の動画にはストリームアタッチで付与します。無音ソースへの
// amix はエラーになるため、観測してから分岐します。
type MusicMixer struct {
	prober *Prober
	run    CommandRunner
}

// NewMusicMixer は MusicMixer を初期化します。
func NewMusicMixer(prober *Prober, runner CommandRunner) *MusicMixer {
	if runner == nil {
		runner = ExecRunner
	}
	return &MusicMixer{prober: prober, run: runner}
}

// Mix は videoPath へ musicPath の音楽を volume (0.0〜1.0) で付与し、outPath に書き出します。
func (m *MusicMixer) Mix(ctx context.Context, videoPath, musicPath string, volume float64, outPath string) error {
	probe, err := m.prober.Probe(ctx, videoPath)
	if err != nil {
		return fmt.Errorf("音楽付与前の観測に失敗しました (path=%s): %w", videoPath, err)
	}

	var args []string
	if probe.HasAudio {
		args = amixArgs(videoPath, musicPath, volume, outPath)
	} else {
		args = attachMusicArgs(videoPath, musicPath, outPath)
	}

	slog.InfoContext(ctx, "音楽トラックを付与します",
		"video", videoPath, "music", musicPath, "base_has_audio", probe.HasAudio)

	if _, stderr, err := m.run(ctx, "ffmpeg", args...); err != nil {
		return fmt.Errorf("音楽付与に失敗しました (stderr=%s): %w", stderrTail(stderr, 500), err)
	}
	m.prober.Invalidate(outPath)
	return nil
}

// amixArgs は既存音声と音楽をミックスする引数を組み立てます。尺は動画側が基準です。
func amixArgs(videoPath, musicPath string, volume float64, outPath string) []string {
	filter := fmt.Sprintf("[1:a]volume=%.2f[music];[0:a][music]amix=inputs=2:duration=first[aout]", volume)
	return []string{
		"-y",
		"-i", videoPath,
		"-i", musicPath,
		"-filter_complex", filter,
		"-map", "0:v",
		"-map", "[aout]",
		"-c:v", "copy",
		"-c:a", "aac",
		"-shortest",
		outPath,
	}
}

// attachMusicArgs は無音動画への音楽アタッチの引数を組み立てます。
func attachMusicArgs(videoPath, musicPath, outPath string) []string {
	return []string{
		"-y",
		"-i", videoPath,
		"-i", musicPath,
		"-c:v", "copy",
		"-c:a", "aac",
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-shortest",
		outPath,
	}
}

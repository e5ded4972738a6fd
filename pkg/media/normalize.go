package media

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/go-anime-kit/pkg/domain"
)

// Normalizer はクリップを正準プロファイル（解像度・色空間）へ揃えます。
// 観測してから動く: すでに一致しているクリップはそのまま返します（冪等性）。
type Normalizer struct {
	prober  *Prober
	run     CommandRunner
	profile domain.TargetProfile
}

// NewNormalizer は Normalizer を初期化します。
func NewNormalizer(prober *Prober, runner CommandRunner, profile domain.TargetProfile) *Normalizer {
	if runner == nil {
		runner = ExecRunner
	}
	return &Normalizer{prober: prober, run: runner, profile: profile}
}

// Matches は観測結果が正準プロファイルに一致しているかを判定します。
// color_space / color_range はコンテナによっては未記録のことがあるため、
// 空文字は「不一致」として扱い、明示的に再エンコードさせます。
func (n *Normalizer) Matches(probe *ProbeResult) bool {
	return probe.Width == n.profile.Width &&
		probe.Height == n.profile.Height &&
		probe.PixFmt == n.profile.PixFmt &&
		probe.ColorSpace == n.profile.ColorSpace &&
		probe.ColorRange == n.profile.ColorRange
}

// Normalize はクリップを観測し、必要な場合のみ outPath へ正規化して返します。
// 一致していれば入力のクリップをそのまま返します。
func (n *Normalizer) Normalize(ctx context.Context, clip domain.SilentClip, outPath string) (domain.SilentClip, error) {
	probe, err := n.prober.Probe(ctx, clip.Path)
	if err != nil {
		return clip, fmt.Errorf("正規化前の観測に失敗しました (path=%s): %w", clip.Path, err)
	}

	if n.Matches(probe) {
		return clip, nil
	}

	slog.InfoContext(ctx, "クリップを正準プロファイルへ正規化します",
		"path", clip.Path,
		"from", fmt.Sprintf("%dx%d %s/%s", probe.Width, probe.Height, probe.ColorSpace, probe.ColorRange),
		"to", fmt.Sprintf("%dx%d %s/%s", n.profile.Width, n.profile.Height, n.profile.ColorSpace, n.profile.ColorRange),
	)

	args := normalizeArgs(clip.Path, outPath, n.profile, probe.HasAudio)
	if _, stderr, err := n.run(ctx, "ffmpeg", args...); err != nil {
		return clip, fmt.Errorf("正規化の実行に失敗しました (path=%s, stderr=%s): %w", clip.Path, stderrTail(stderr, 500), err)
	}
	n.prober.Invalidate(outPath)

	normalized := clip
	normalized.Path = outPath
	normalized.Width = n.profile.Width
	normalized.Height = n.profile.Height
	normalized.PixFmt = n.profile.PixFmt
	normalized.ColorSpace = n.profile.ColorSpace
	normalized.ColorRange = n.profile.ColorRange
	return normalized, nil
}

// NormalizePath はパス単位の正規化です。音声ストリームの有無は観測結果に従います。
// 一致していれば src をそのまま返すため、戻り値のパスが出力先とは限りません。
func (n *Normalizer) NormalizePath(ctx context.Context, src, dst string) (string, error) {
	probe, err := n.prober.Probe(ctx, src)
	if err != nil {
		return "", fmt.Errorf("正規化前の観測に失敗しました (path=%s): %w", src, err)
	}
	if n.Matches(probe) {
		return src, nil
	}

	args := normalizeArgs(src, dst, n.profile, probe.HasAudio)
	if _, stderr, err := n.run(ctx, "ffmpeg", args...); err != nil {
		return "", fmt.Errorf("正規化の実行に失敗しました (path=%s, stderr=%s): %w", src, stderrTail(stderr, 500), err)
	}
	n.prober.Invalidate(dst)
	return dst, nil
}

// normalizeArgs は crop-to-fill 拡縮と明示的な色変換のコマンド引数を組み立てます。
// レターボックスは使わない。アスペクト比が異なる場合は拡大してから中央を切り出す。
// 色変換は scale の out_color_matrix / out_range で画素そのものを変換する。
// メタデータのタグ付けだけでは bt601 やフルレンジの入力が誤表示のまま残り、
// 混在プロファイルの結合で出力が壊れる。
func normalizeArgs(src, dst string, profile domain.TargetProfile, hasAudio bool) []string {
	vf := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=increase:out_color_matrix=%s:out_range=%s,crop=%d:%d,setsar=1,format=%s",
		profile.Width, profile.Height,
		profile.ColorSpace, profile.ColorRange,
		profile.Width, profile.Height,
		profile.PixFmt,
	)

	args := []string{
		"-y",
		"-i", src,
		"-vf", vf,
		"-c:v", "libx264", "-preset", "fast", "-crf", "18",
		"-color_range", profile.ColorRange,
		"-colorspace", profile.ColorSpace,
		"-color_trc", profile.ColorSpace,
		"-color_primaries", profile.ColorSpace,
		"-movflags", "+faststart",
	}
	if hasAudio {
		args = append(args, "-c:a", "aac")
	} else {
		args = append(args, "-an")
	}
	return append(args, dst)
}

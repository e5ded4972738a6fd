package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/shouni/go-anime-kit/pkg/domain"
)

// Burner はキャプショントラックを結合済み動画へ焼き込みます。
// タイミングはコンポジション全体基準で渡されることが前提です。
// パネル基準のまま渡すと2枚目以降のキャプションがすべて先頭に寄ります。
type Burner struct {
	prober  *Prober
	run     CommandRunner
	profile domain.TargetProfile
}

// NewBurner は Burner を初期化します。
func NewBurner(prober *Prober, runner CommandRunner, profile domain.TargetProfile) *Burner {
	if runner == nil {
		runner = ExecRunner
	}
	return &Burner{prober: prober, run: runner, profile: profile}
}

// Burn は captions を video に焼き込み、outPath に書き出します。
// 字幕フィルタは再エンコードを伴うため、色特性はここでも明示的に指定します。
func (b *Burner) Burn(ctx context.Context, videoPath string, captions []domain.CaptionSegment, outPath string) error {
	if len(captions) == 0 {
		return fmt.Errorf("焼き込むキャプションがありません (video=%s)", videoPath)
	}

	assContent := GenerateASS(captions, b.profile.Width, b.profile.Height)
	assPath := strings.TrimSuffix(outPath, filepath.Ext(outPath)) + ".ass"
	if err := os.WriteFile(assPath, []byte(assContent), 0o644); err != nil {
		return fmt.Errorf("ASS ファイルの書き出しに失敗しました: %w", err)
	}
	defer os.Remove(assPath)

	slog.InfoContext(ctx, "キャプションを焼き込みます", "segments", len(captions), "video", videoPath)

	args := burnArgs(videoPath, assPath, outPath, b.profile)
	if _, stderr, err := b.run(ctx, "ffmpeg", args...); err != nil {
		return fmt.Errorf("キャプション焼き込みに失敗しました (stderr=%s): %w", stderrTail(stderr, 500), err)
	}
	b.prober.Invalidate(outPath)
	return nil
}

// burnArgs は subtitles フィルタによる焼き込みの引数を組み立てます。
func burnArgs(videoPath, assPath, outPath string, profile domain.TargetProfile) []string {
	return []string{
		"-y",
		"-i", videoPath,
		"-vf", fmt.Sprintf("subtitles=%s", escapeFilterPath(assPath)),
		"-c:v", "libx264", "-preset", "fast", "-crf", "23",
		"-pix_fmt", profile.PixFmt,
		"-color_range", profile.ColorRange,
		"-colorspace", profile.ColorSpace,
		"-color_trc", profile.ColorSpace,
		"-color_primaries", profile.ColorSpace,
		"-c:a", "copy",
		outPath,
	}
}

// escapeFilterPath は ffmpeg フィルタ引数内のパスをエスケープするのだ。
// コロンとバックスラッシュはフィルタ構文と衝突するのだ。
func escapeFilterPath(path string) string {
	path = strings.ReplaceAll(path, `\`, `\\`)
	return strings.ReplaceAll(path, ":", `\:`)
}

package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Concatenator は順序付きクリップ列を1本の連続した動画へ結合します。
// 全クリップのプロファイルが一致していれば再エンコードなしのストリームコピー、
// 1つでも不一致があれば全クリップを正規化してから結合します。
// この自動判定は必須であり、プロファイル混在のまま結合してはなりません。
type Concatenator struct {
	prober     *Prober
	run        CommandRunner
	normalizer *Normalizer
}

// NewConcatenator は Concatenator を初期化します。
func NewConcatenator(prober *Prober, runner CommandRunner, normalizer *Normalizer) *Concatenator {
	if runner == nil {
		runner = ExecRunner
	}
	return &Concatenator{prober: prober, run: runner, normalizer: normalizer}
}

// Concat はクリップ列を outPath へ結合します。force が真の場合は一致判定を
// 省略して必ず正規化を通します（検証失敗後の修復リトライ用）。
func (c *Concatenator) Concat(ctx context.Context, clipPaths []string, outPath string, force bool) error {
	if len(clipPaths) < 1 {
		return &ConcatError{Reason: "no clips supplied"}
	}

	needsNormalize := force
	if !needsNormalize {
		mismatch, err := c.detectMismatch(ctx, clipPaths)
		if err != nil {
			return err
		}
		needsNormalize = mismatch
	}

	toConcat := clipPaths
	if needsNormalize {
		slog.InfoContext(ctx, "プロファイル不一致を検出したため、全クリップを正規化して結合します",
			"clips", len(clipPaths), "forced", force)

		normalized := make([]string, 0, len(clipPaths))
		for i, path := range clipPaths {
			dst := normalizedClipPath(outPath, i)
			out, err := c.normalizer.NormalizePath(ctx, path, dst)
			if err != nil {
				return &ConcatError{Reason: fmt.Sprintf("normalize clip %d", i), Err: err}
			}
			normalized = append(normalized, out)
		}
		toConcat = normalized
	}

	listPath, err := writeConcatList(outPath, toConcat)
	if err != nil {
		return &ConcatError{Reason: "write concat list", Err: err}
	}
	defer os.Remove(listPath)

	args := concatArgs(listPath, outPath)
	if _, stderr, err := c.run(ctx, "ffmpeg", args...); err != nil {
		return &ConcatError{Reason: "ffmpeg concat failed", Stderr: stderrTail(stderr, 500), Err: err}
	}
	c.prober.Invalidate(outPath)

	slog.InfoContext(ctx, "クリップ結合が完了しました", "clips", len(toConcat), "out", outPath)
	return nil
}

// detectMismatch は全クリップを観測し、プロファイルの不一致があるかを返します。
// 観測に失敗するクリップがあれば、それ自体が結合の致命エラーです。
func (c *Concatenator) detectMismatch(ctx context.Context, clipPaths []string) (bool, error) {
	for _, path := range clipPaths {
		probe, err := c.prober.Probe(ctx, path)
		if err != nil {
			return false, &ConcatError{Reason: fmt.Sprintf("cannot open clip %s", path), Err: err}
		}
		if !c.normalizer.Matches(probe) {
			return true, nil
		}
	}
	return false, nil
}

// concatArgs は concat demuxer によるストリームコピー結合の引数を組み立てます。
func concatArgs(listPath, outPath string) []string {
	return []string{
		"-y",
		"-f", "concat", "-safe", "0",
		"-i", listPath,
		"-c", "copy",
		outPath,
	}
}

// writeConcatList は concat demuxer 用のリストファイルを出力先の隣に書き出すのだ。
func writeConcatList(outPath string, clipPaths []string) (string, error) {
	var sb strings.Builder
	for _, path := range clipPaths {
		fmt.Fprintf(&sb, "file '%s'\n", path)
	}

	listPath := strings.TrimSuffix(outPath, filepath.Ext(outPath)) + "_concat.txt"
	if err := os.WriteFile(listPath, []byte(sb.String()), 0o644); err != nil {
		return "", err
	}
	return listPath, nil
}

// normalizedClipPath は正規化済み中間クリップの出力パスを返すのだ。
func normalizedClipPath(outPath string, index int) string {
	base := strings.TrimSuffix(outPath, filepath.Ext(outPath))
	return fmt.Sprintf("%s_norm_%03d.mp4", base, index)
}

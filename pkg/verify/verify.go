// Package verify は最終成果物を ffprobe で観測し、期待値との突き合わせを行います。
package verify

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/shouni/go-anime-kit/pkg/domain"
	"github.com/shouni/go-anime-kit/pkg/media"
)

// DefaultMinFileSize は壊れたゼロ近傍ファイルを弾くための最小サイズです。
const DefaultMinFileSize = 10_000

// Expectation は1回の検証で突き合わせる期待値の組です。
type Expectation struct {
	DurationMs   int64
	Width        int
	Height       int
	RequireAudio bool
	// ToleranceMs は尺の許容差。多数のクリップにまたがる
	// パディング・切り詰めの丸め誤差を吸収するためのポリシー値。
	ToleranceMs int64
	MinFileSize int64
}

// Verifier は成果物の構造的な正しさ（尺・解像度・ストリーム構成）を検査します。
// 内容の品質は関知しません。
type Verifier struct {
	prober *media.Prober
}

// NewVerifier は Verifier を初期化します。
func NewVerifier(prober *media.Prober) *Verifier {
	return &Verifier{prober: prober}
}

// Verify は path の成果物を観測し、expected と突き合わせた結果を返します。
// 戻り値の VerificationResult は不変であり、リトライ後は新しい結果で置き換えます。
func (v *Verifier) Verify(ctx context.Context, path string, expected Expectation) domain.VerificationResult {
	result := domain.VerificationResult{Passed: true}

	info, err := os.Stat(path)
	if err != nil {
		result.Passed = false
		result.Failures = append(result.Failures, fmt.Sprintf("file not found: %s", path))
		return result
	}
	result.Checks = append(result.Checks, "file_exists")

	result.FileSizeBytes = info.Size()
	minSize := expected.MinFileSize
	if minSize == 0 {
		minSize = DefaultMinFileSize
	}
	if result.FileSizeBytes < minSize {
		result.Passed = false
		result.Failures = append(result.Failures,
			fmt.Sprintf("file too small: %d bytes (min %d)", result.FileSizeBytes, minSize))
	} else {
		result.Checks = append(result.Checks, fmt.Sprintf("file_size=%d", result.FileSizeBytes))
	}

	probe, err := v.prober.Probe(ctx, path)
	if err != nil {
		result.Passed = false
		result.Failures = append(result.Failures, fmt.Sprintf("probe failed: %v", err))
		return result
	}

	result.HasVideo = probe.HasVideo
	result.HasAudio = probe.HasAudio
	result.ActualDurationMs = probe.DurationMs
	result.ActualWidth = probe.Width
	result.ActualHeight = probe.Height

	if !probe.HasVideo {
		result.Passed = false
		result.Failures = append(result.Failures, "no video stream found")
		return result
	}
	result.Checks = append(result.Checks, "has_video_stream")

	if expected.RequireAudio && !probe.HasAudio {
		result.Passed = false
		result.Failures = append(result.Failures, "no audio stream found (required)")
	} else if probe.HasAudio {
		result.Checks = append(result.Checks, "has_audio_stream")
	}

	if expected.DurationMs > 0 {
		diff := probe.DurationMs - expected.DurationMs
		if diff < 0 {
			diff = -diff
		}
		if diff > expected.ToleranceMs {
			result.Passed = false
			result.Failures = append(result.Failures, fmt.Sprintf(
				"duration mismatch: expected %dms, got %dms (tolerance %dms)",
				expected.DurationMs, probe.DurationMs, expected.ToleranceMs))
		} else {
			result.Checks = append(result.Checks, fmt.Sprintf("duration=%dms", probe.DurationMs))
		}
	}

	if expected.Width > 0 && expected.Height > 0 {
		// 解像度は完全一致のみ合格とする
		if probe.Width != expected.Width || probe.Height != expected.Height {
			result.Passed = false
			result.Failures = append(result.Failures, fmt.Sprintf(
				"resolution mismatch: expected %dx%d, got %dx%d",
				expected.Width, expected.Height, probe.Width, probe.Height))
		} else {
			result.Checks = append(result.Checks, fmt.Sprintf("resolution=%dx%d", probe.Width, probe.Height))
		}
	}

	if result.Passed {
		slog.InfoContext(ctx, "検証に合格しました", "path", path, "checks", result.Checks)
	} else {
		slog.WarnContext(ctx, "検証に失敗しました", "path", path, "failures", result.Failures)
	}

	return result
}

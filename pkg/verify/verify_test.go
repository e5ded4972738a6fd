package verify

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shouni/go-anime-kit/pkg/media"
)

// writeDummyFile は指定サイズのダミーファイルを作って返すのだ。
func writeDummyFile(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "final.mp4")
	if err := os.WriteFile(path, bytes.Repeat([]byte{0xAB}, size), 0o644); err != nil {
		t.Fatalf("ダミーファイルの作成に失敗なのだ: %v", err)
	}
	return path
}

// probeFixture は検証対象1本分の ffprobe 出力を組み立てるのだ。
func probeFixture(durationSec float64, width, height int, hasAudio bool) string {
	streams := fmt.Sprintf(
		`{"codec_type": "video", "width": %d, "height": %d, "pix_fmt": "yuv420p", "color_space": "bt709", "color_range": "tv"}`,
		width, height)
	if hasAudio {
		streams += `, {"codec_type": "audio", "codec_name": "aac"}`
	}
	return fmt.Sprintf(`{"streams": [%s], "format": {"duration": "%.3f", "size": "524288"}}`, streams, durationSec)
}

func fixedProber(json string) *media.Prober {
	return media.NewProber(func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		return []byte(json), nil, nil
	})
}

func TestVerifier_Verify(t *testing.T) {
	expected := Expectation{
		DurationMs:   16000,
		Width:        1080,
		Height:       1920,
		RequireAudio: true,
		ToleranceMs:  2000,
	}

	t.Run("すべての検査に合格するのだ", func(t *testing.T) {
		path := writeDummyFile(t, 20_000)
		v := NewVerifier(fixedProber(probeFixture(16.1, 1080, 1920, true)))

		result := v.Verify(context.Background(), path, expected)

		if !result.Passed {
			t.Fatalf("合格すべきなのだ: %v", result.Failures)
		}
		if !result.HasVideo || !result.HasAudio {
			t.Errorf("ストリーム構成の記録が違うのだ: video=%v audio=%v", result.HasVideo, result.HasAudio)
		}
		if result.ActualDurationMs != 16100 {
			t.Errorf("実測尺が違うのだ: %d", result.ActualDurationMs)
		}
	})

	t.Run("ファイルが無ければ即失敗なのだ", func(t *testing.T) {
		v := NewVerifier(fixedProber(probeFixture(16.0, 1080, 1920, true)))
		result := v.Verify(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"), expected)

		if result.Passed {
			t.Fatal("不合格であるべきなのだ")
		}
		if len(result.Failures) != 1 || !strings.Contains(result.Failures[0], "file not found") {
			t.Errorf("失敗理由が違うのだ: %v", result.Failures)
		}
	})

	t.Run("極端に小さいファイルは破損とみなすのだ", func(t *testing.T) {
		path := writeDummyFile(t, 500)
		v := NewVerifier(fixedProber(probeFixture(16.0, 1080, 1920, true)))

		result := v.Verify(context.Background(), path, expected)

		if result.Passed {
			t.Fatal("不合格であるべきなのだ")
		}
		if !strings.Contains(result.Failures[0], "file too small") {
			t.Errorf("失敗理由が違うのだ: %v", result.Failures)
		}
	})

	t.Run("許容差ちょうどの尺は合格なのだ", func(t *testing.T) {
		path := writeDummyFile(t, 20_000)
		// 16000ms 期待に対して 18000ms。差はちょうど 2000ms で許容内なのだ
		v := NewVerifier(fixedProber(probeFixture(18.0, 1080, 1920, true)))

		result := v.Verify(context.Background(), path, expected)
		if !result.Passed {
			t.Fatalf("合格すべきなのだ: %v", result.Failures)
		}
	})

	t.Run("許容差を超える尺は不合格なのだ", func(t *testing.T) {
		path := writeDummyFile(t, 20_000)
		v := NewVerifier(fixedProber(probeFixture(18.5, 1080, 1920, true)))

		result := v.Verify(context.Background(), path, expected)
		if result.Passed {
			t.Fatal("不合格であるべきなのだ")
		}
		if !strings.Contains(result.Failures[0], "duration mismatch") {
			t.Errorf("失敗理由が違うのだ: %v", result.Failures)
		}
		if result.ResolutionFailed() {
			t.Error("尺の失敗は解像度失敗として扱わないのだ")
		}
	})

	t.Run("解像度不一致は修復リトライの対象として判別できるのだ", func(t *testing.T) {
		path := writeDummyFile(t, 20_000)
		v := NewVerifier(fixedProber(probeFixture(16.0, 720, 1280, true)))

		result := v.Verify(context.Background(), path, expected)
		if result.Passed {
			t.Fatal("不合格であるべきなのだ")
		}
		if !result.ResolutionFailed() {
			t.Errorf("解像度失敗として判別されるべきなのだ: %v", result.Failures)
		}
	})

	t.Run("音声必須なのに無音なら不合格なのだ", func(t *testing.T) {
		path := writeDummyFile(t, 20_000)
		v := NewVerifier(fixedProber(probeFixture(16.0, 1080, 1920, false)))

		result := v.Verify(context.Background(), path, expected)
		if result.Passed {
			t.Fatal("不合格であるべきなのだ")
		}
		if !strings.Contains(strings.Join(result.Failures, "; "), "no audio stream") {
			t.Errorf("失敗理由が違うのだ: %v", result.Failures)
		}
	})

	t.Run("音声任意なら無音でも合格なのだ", func(t *testing.T) {
		path := writeDummyFile(t, 20_000)
		v := NewVerifier(fixedProber(probeFixture(16.0, 1080, 1920, false)))

		noAudio := expected
		noAudio.RequireAudio = false
		result := v.Verify(context.Background(), path, noAudio)
		if !result.Passed {
			t.Fatalf("合格すべきなのだ: %v", result.Failures)
		}
	})
}

package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shouni/go-anime-kit/pkg/domain"
)

func TestConcatenator_Concat(t *testing.T) {
	t.Run("全クリップが一致していればストリームコピーで結合するのだ", func(t *testing.T) {
		dir := t.TempDir()
		outPath := filepath.Join(dir, "concat.mp4")

		var ffmpegCalls [][]string
		var listContent string
		fake := func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
			if name == "ffprobe" {
				return []byte(fakeProbeJSON(4.0, true)), nil, nil
			}
			// リストファイルは defer で消えるため、実行時点の内容を控えておく
			for i, a := range args {
				if a == "-i" && i+1 < len(args) {
					if data, err := os.ReadFile(args[i+1]); err == nil {
						listContent = string(data)
					}
				}
			}
			ffmpegCalls = append(ffmpegCalls, args)
			return nil, nil, nil
		}

		prober := NewProber(fake)
		normalizer := NewNormalizer(prober, fake, domain.DefaultProfile())
		c := NewConcatenator(prober, fake, normalizer)

		clips := []string{"synced_000.mp4", "synced_001.mp4"}
		if err := c.Concat(context.Background(), clips, outPath, false); err != nil {
			t.Fatalf("結合失敗なのだ: %v", err)
		}

		if len(ffmpegCalls) != 1 {
			t.Fatalf("正規化なしなら ffmpeg は1回のはずなのだ: %d", len(ffmpegCalls))
		}
		joined := strings.Join(ffmpegCalls[0], " ")
		for _, want := range []string{"-f concat", "-safe 0", "-c copy"} {
			if !strings.Contains(joined, want) {
				t.Errorf("%q が含まれていないのだ: %s", want, joined)
			}
		}
		if !strings.Contains(listContent, "file 'synced_000.mp4'") ||
			!strings.Contains(listContent, "file 'synced_001.mp4'") {
			t.Errorf("リストファイルの内容が違うのだ: %s", listContent)
		}
	})

	t.Run("1つでもプロファイル不一致なら全クリップを正規化するのだ", func(t *testing.T) {
		dir := t.TempDir()
		outPath := filepath.Join(dir, "concat.mp4")

		mismatched := `{"streams": [{"codec_type": "video", "width": 720, "height": 1280, "pix_fmt": "yuv420p", "color_space": "bt709", "color_range": "tv"}], "format": {"duration": "4.000", "size": "100000"}}`

		var normalizeCount int
		fake := func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
			if name == "ffprobe" {
				path := args[len(args)-1]
				if path == "bad.mp4" {
					return []byte(mismatched), nil, nil
				}
				return []byte(fakeProbeJSON(4.0, true)), nil, nil
			}
			if hasArg(args, "-vf") {
				normalizeCount++
			}
			return nil, nil, nil
		}

		prober := NewProber(fake)
		normalizer := NewNormalizer(prober, fake, domain.DefaultProfile())
		c := NewConcatenator(prober, fake, normalizer)

		if err := c.Concat(context.Background(), []string{"good.mp4", "bad.mp4"}, outPath, false); err != nil {
			t.Fatalf("結合失敗なのだ: %v", err)
		}

		// good.mp4 は一致しているので NormalizePath がそのまま返し、bad.mp4 だけ再エンコードされる
		if normalizeCount != 1 {
			t.Errorf("正規化の実行回数が違うのだ: %d", normalizeCount)
		}
	})

	t.Run("force 指定では一致判定を省略して必ず正規化を通すのだ", func(t *testing.T) {
		dir := t.TempDir()
		outPath := filepath.Join(dir, "concat.mp4")

		probeCount := 0
		fake := func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
			if name == "ffprobe" {
				probeCount++
				// force でも NormalizePath 内の観測で一致すれば再エンコードしない
				return []byte(fakeProbeJSON(4.0, true)), nil, nil
			}
			return nil, nil, nil
		}

		prober := NewProber(fake)
		normalizer := NewNormalizer(prober, fake, domain.DefaultProfile())
		c := NewConcatenator(prober, fake, normalizer)

		if err := c.Concat(context.Background(), []string{"a.mp4", "b.mp4"}, outPath, true); err != nil {
			t.Fatalf("結合失敗なのだ: %v", err)
		}
		if probeCount != 2 {
			t.Errorf("クリップごとの観測回数が違うのだ: %d", probeCount)
		}
	})

	t.Run("クリップが空なら ConcatError になるのだ", func(t *testing.T) {
		c := NewConcatenator(NewProber(nil), nil, nil)
		err := c.Concat(context.Background(), nil, "out.mp4", false)

		var concatErr *ConcatError
		if !errors.As(err, &concatErr) {
			t.Fatalf("ConcatError であるべきなのだ: %v", err)
		}
	})
}

func hasArg(args []string, want string) bool {
	for _, a := range args {
		if a == want {
			return true
		}
	}
	return false
}

func TestNormalizedClipPath(t *testing.T) {
	got := normalizedClipPath("/tmp/run/concat.mp4", 2)
	want := "/tmp/run/concat_norm_002.mp4"
	if got != want {
		t.Errorf("期待: %s, 実際: %s", want, got)
	}
}

func TestNormalizeArgs(t *testing.T) {
	t.Run("crop-to-fill と画素レベルの色変換が入るのだ", func(t *testing.T) {
		args := normalizeArgs("in.mp4", "out.mp4", domain.DefaultProfile(), false)
		joined := strings.Join(args, " ")

		// タグ付けフラグだけでは画素は変換されないので、scale 側の
		// out_color_matrix / out_range が必ずフィルター列に入っていること
		for _, want := range []string{
			"scale=1080:1920:force_original_aspect_ratio=increase:out_color_matrix=bt709:out_range=tv,crop=1080:1920,setsar=1,format=yuv420p",
			"-colorspace bt709",
			"-color_range tv",
			"-an",
		} {
			if !strings.Contains(joined, want) {
				t.Errorf("%q が含まれていないのだ: %s", want, joined)
			}
		}
	})

	t.Run("音声付きソースでは -an ではなく aac になるのだ", func(t *testing.T) {
		joined := strings.Join(normalizeArgs("in.mp4", "out.mp4", domain.DefaultProfile(), true), " ")
		if strings.Contains(joined, "-an") {
			t.Errorf("音声が破棄されてしまうのだ: %s", joined)
		}
		if !strings.Contains(joined, "-c:a aac") {
			t.Errorf("音声コーデック指定が無いのだ: %s", joined)
		}
	})
}

func TestEscapeFilterPath(t *testing.T) {
	if got := escapeFilterPath(`C:\tmp\a.ass`); got != `C\:\\tmp\\a.ass` {
		t.Errorf("エスケープ結果が違うのだ: %s", got)
	}
}

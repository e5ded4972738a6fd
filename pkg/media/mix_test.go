package media

import (
	"context"
	"strings"
	"testing"
)

func TestMusicMixer_Mix(t *testing.T) {
	t.Run("既存音声があるときだけ amix を使うのだ", func(t *testing.T) {
		var ffmpegArgs []string
		fake := func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
			if name == "ffprobe" {
				return []byte(fakeProbeJSON(16.0, true)), nil, nil
			}
			ffmpegArgs = args
			return nil, nil, nil
		}

		m := NewMusicMixer(NewProber(fake), fake)
		if err := m.Mix(context.Background(), "concat.mp4", "music.m4a", 0.30, "mixed.mp4"); err != nil {
			t.Fatalf("ミックス失敗なのだ: %v", err)
		}

		joined := strings.Join(ffmpegArgs, " ")
		if !strings.Contains(joined, "volume=0.30") {
			t.Errorf("音量指定が違うのだ: %s", joined)
		}
		if !strings.Contains(joined, "amix=inputs=2:duration=first") {
			t.Errorf("amix 指定が違うのだ: %s", joined)
		}
	})

	t.Run("無音の動画にはアタッチで付与するのだ", func(t *testing.T) {
		var ffmpegArgs []string
		fake := func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
			if name == "ffprobe" {
				return []byte(fakeProbeJSON(16.0, false)), nil, nil
			}
			ffmpegArgs = args
			return nil, nil, nil
		}

		m := NewMusicMixer(NewProber(fake), fake)
		if err := m.Mix(context.Background(), "silent.mp4", "music.m4a", 0.30, "mixed.mp4"); err != nil {
			t.Fatalf("ミックス失敗なのだ: %v", err)
		}

		joined := strings.Join(ffmpegArgs, " ")
		if strings.Contains(joined, "amix") {
			t.Errorf("無音ソースに amix を使ってはいけないのだ: %s", joined)
		}
		for _, want := range []string{"-map 0:v:0", "-map 1:a:0", "-shortest"} {
			if !strings.Contains(joined, want) {
				t.Errorf("%q が含まれていないのだ: %s", want, joined)
			}
		}
	})
}

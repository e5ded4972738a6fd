package media

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/shouni/go-anime-kit/pkg/domain"
)

// fakeProbeJSON は指定の尺と構成を持つ ffprobe 出力を組み立てるのだ。
func fakeProbeJSON(durationSec float64, hasAudio bool) string {
	streams := `{"codec_type": "video", "width": 1080, "height": 1920, "pix_fmt": "yuv420p", "color_space": "bt709", "color_range": "tv"}`
	if hasAudio {
		streams += `, {"codec_type": "audio", "codec_name": "aac"}`
	}
	return fmt.Sprintf(`{"streams": [%s], "format": {"duration": "%.3f", "size": "100000"}}`, streams, durationSec)
}

func TestClipSync_Sync(t *testing.T) {
	t.Run("短い音声はパディングしてから結合するのだ", func(t *testing.T) {
		var ffmpegCalls [][]string
		fake := func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
			if name == "ffprobe" {
				path := args[len(args)-1]
				if strings.HasSuffix(path, ".m4a") {
					return []byte(fakeProbeJSON(2.5, true)), nil, nil // 音声は2.5秒しかない
				}
				return []byte(fakeProbeJSON(4.0, false)), nil, nil
			}
			ffmpegCalls = append(ffmpegCalls, args)
			return nil, nil, nil
		}

		cs := NewClipSync(NewProber(fake), fake)
		clip := domain.SilentClip{Path: "clip_000.mp4", PanelIndex: 1}
		audio := domain.AudioTrack{Path: "speech_000.m4a", PanelIndex: 1}

		synced, err := cs.Sync(context.Background(), clip, audio, 4000, "out/synced_000.mp4")
		if err != nil {
			t.Fatalf("同期失敗なのだ: %v", err)
		}

		if len(ffmpegCalls) != 2 {
			t.Fatalf("ffmpeg の呼び出し回数が違うのだ: %d", len(ffmpegCalls))
		}

		// 1回目: apad による無音延長
		padArgs := strings.Join(ffmpegCalls[0], " ")
		if !strings.Contains(padArgs, "apad=whole_dur=4.000") {
			t.Errorf("パディング指定が違うのだ: %s", padArgs)
		}

		// 2回目: 映像コピー＋音声アタッチ、-t で目標尺に固定
		attach := strings.Join(ffmpegCalls[1], " ")
		for _, want := range []string{"-c:v copy", "-c:a aac", "-map 0:v:0", "-map 1:a:0", "-t 4.000", "_padded.wav"} {
			if !strings.Contains(attach, want) {
				t.Errorf("結合コマンドに %q が含まれていないのだ: %s", want, attach)
			}
		}

		if synced.DurationMs != 4000 || !synced.HasAudio || synced.PanelIndex != 1 {
			t.Errorf("SyncedClip の内容が違うのだ: %+v", synced)
		}
	})

	t.Run("長い音声はパディングせず -t の切り詰めに任せるのだ", func(t *testing.T) {
		var ffmpegCalls [][]string
		fake := func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
			if name == "ffprobe" {
				return []byte(fakeProbeJSON(6.0, true)), nil, nil
			}
			ffmpegCalls = append(ffmpegCalls, args)
			return nil, nil, nil
		}

		cs := NewClipSync(NewProber(fake), fake)
		_, err := cs.Sync(context.Background(),
			domain.SilentClip{Path: "clip.mp4"},
			domain.AudioTrack{Path: "speech.m4a"},
			4000, "synced.mp4")
		if err != nil {
			t.Fatalf("同期失敗なのだ: %v", err)
		}

		if len(ffmpegCalls) != 1 {
			t.Errorf("パディングが不要なのに実行されているのだ: %d 回", len(ffmpegCalls))
		}
	})

	t.Run("尺ゼロの入力は SyncError になるのだ", func(t *testing.T) {
		fake := func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
			return []byte(fakeProbeJSON(0, false)), nil, nil
		}

		cs := NewClipSync(NewProber(fake), fake)
		_, err := cs.Sync(context.Background(),
			domain.SilentClip{Path: "broken.mp4"},
			domain.AudioTrack{Path: "speech.m4a"},
			4000, "synced.mp4")

		var syncErr *SyncError
		if !errors.As(err, &syncErr) {
			t.Fatalf("SyncError であるべきなのだ: %v", err)
		}
		if syncErr.Path != "broken.mp4" {
			t.Errorf("エラー対象のパスが違うのだ: %s", syncErr.Path)
		}
	})
}

func TestMsToSeconds(t *testing.T) {
	cases := map[int64]string{
		4000:  "4.000",
		4012:  "4.012",
		500:   "0.500",
		16005: "16.005",
	}
	for ms, want := range cases {
		if got := msToSeconds(ms); got != want {
			t.Errorf("msToSeconds(%d) = %s, 期待 %s", ms, got, want)
		}
	}
}

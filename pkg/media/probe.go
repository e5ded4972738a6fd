package media

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
)

const (
	probeCacheTTL   = 10 * time.Minute
	probeCacheSweep = 30 * time.Minute
)

// ProbeResult は ffprobe による1ファイル分の観測結果です。
type ProbeResult struct {
	Width         int
	Height        int
	DurationMs    int64
	HasVideo      bool
	HasAudio      bool
	PixFmt        string
	ColorSpace    string
	ColorRange    string
	VideoCodec    string
	FileSizeBytes int64
}

// probePayload は ffprobe の JSON 出力に対応する内部構造なのだ。
type probePayload struct {
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		PixFmt     string `json:"pix_fmt"`
		ColorSpace string `json:"color_space"`
		ColorRange string `json:"color_range"`
		Duration   string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
		Size     string `json:"size"`
	} `json:"format"`
}

// Prober はファイルの解像度・尺・ストリーム構成を観測します。
// 同一ランの中で同じファイルを何度も観測するため、結果はTTL付きでキャッシュされます。
type Prober struct {
	run      CommandRunner
	memoized *cache.Cache
}

// NewProber は Prober を初期化します。runner に nil を渡すと os/exec 実装が使われます。
func NewProber(runner CommandRunner) *Prober {
	if runner == nil {
		runner = ExecRunner
	}
	return &Prober{
		run:      runner,
		memoized: cache.New(probeCacheTTL, probeCacheSweep),
	}
}

// Probe は指定されたメディアファイルを観測して ProbeResult を返します。
func (p *Prober) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	if cached, ok := p.memoized.Get(path); ok {
		res := cached.(ProbeResult)
		return &res, nil
	}

	stdout, stderr, err := p.run(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "stream=width,height,codec_type,codec_name,duration,pix_fmt,color_space,color_range",
		"-show_entries", "format=duration,size",
		"-of", "json",
		path,
	)
	if err != nil {
		return nil, fmt.Errorf("ffprobe が失敗しました (path=%s, stderr=%s): %w", path, stderrTail(stderr, 200), err)
	}

	result, err := parseProbeOutput(stdout)
	if err != nil {
		return nil, fmt.Errorf("ffprobe 出力の解析に失敗しました (path=%s): %w", path, err)
	}

	// format.size が取れない場合は stat にフォールバックする
	if result.FileSizeBytes == 0 {
		if info, statErr := os.Stat(path); statErr == nil {
			result.FileSizeBytes = info.Size()
		}
	}

	p.memoized.Set(path, *result, cache.DefaultExpiration)
	return result, nil
}

// Invalidate は指定パスのキャッシュを破棄するのだ。ファイルを上書きしたら必ず呼ぶのだ。
func (p *Prober) Invalidate(path string) {
	p.memoized.Delete(path)
}

// parseProbeOutput は ffprobe の JSON バイト列を ProbeResult に変換します。
func parseProbeOutput(data []byte) (*ProbeResult, error) {
	var payload probePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}

	result := &ProbeResult{}
	var streamDuration float64

	for _, s := range payload.Streams {
		switch s.CodecType {
		case "video":
			// 最初の映像ストリームを採用する
			if !result.HasVideo {
				result.HasVideo = true
				result.Width = s.Width
				result.Height = s.Height
				result.PixFmt = s.PixFmt
				result.ColorSpace = s.ColorSpace
				result.ColorRange = s.ColorRange
				result.VideoCodec = s.CodecName
				if d, err := strconv.ParseFloat(s.Duration, 64); err == nil {
					streamDuration = d
				}
			}
		case "audio":
			result.HasAudio = true
			if !result.HasVideo {
				if d, err := strconv.ParseFloat(s.Duration, 64); err == nil && streamDuration == 0 {
					streamDuration = d
				}
			}
		}
	}

	// 尺は format 側を優先する（結合済みファイルではそちらが信頼できる）
	// 秒→ミリ秒は切り捨てではなく四捨五入する（4.012s を 4011ms にしない）
	if d, err := strconv.ParseFloat(payload.Format.Duration, 64); err == nil && d > 0 {
		result.DurationMs = int64(math.Round(d * 1000))
	} else {
		result.DurationMs = int64(math.Round(streamDuration * 1000))
	}

	if size, err := strconv.ParseInt(payload.Format.Size, 10, 64); err == nil {
		result.FileSizeBytes = size
	}

	return result, nil
}

package config

import (
	"time"

	"github.com/shouni/go-anime-kit/pkg/domain"
)

// デフォルト値の定義
const (
	DefaultClipDurationMs      = 4000
	DefaultDurationToleranceMs = 2000
	DefaultWordFloorMs         = 50
	DefaultCaptionMarginFrac   = 0.10
	DefaultMusicVolume         = 0.30
	DefaultMinFileSize         = 10_000
	DefaultRateInterval        = 10 * time.Second
	DefaultRequestTimeout      = 5 * time.Minute
	DefaultKeepaliveInterval   = 15 * time.Second
)

// Config は Go Anime Kit の各 Runner を動作させるための基本設定です。
type Config struct {
	// --- External Generator Settings ---
	ClipGeneratorBin   string
	SpeechGeneratorBin string
	MusicGeneratorBin  string
	AlignerBin         string

	// --- Composition Settings ---
	Profile        domain.TargetProfile
	ClipDurationMs int64
	MusicVolume    float64

	// --- Policy Settings ---
	// 許容差とフロア値は導出根拠のない運用上のポリシーであり、
	// テスト等で締めたい場合に備えて設定値として持ちます。
	DurationToleranceMs int64
	WordFloorMs         int64
	CaptionMarginFrac   float64
	MinFileSize         int64

	// --- Rate & Timeout Settings ---
	RateInterval      time.Duration
	RequestTimeout    time.Duration
	KeepaliveInterval time.Duration
}

// DefaultConfig は推奨されるデフォルト設定を返すヘルパー関数です。
func DefaultConfig() Config {
	return Config{
		Profile:             domain.DefaultProfile(),
		ClipDurationMs:      DefaultClipDurationMs,
		MusicVolume:         DefaultMusicVolume,
		DurationToleranceMs: DefaultDurationToleranceMs,
		WordFloorMs:         DefaultWordFloorMs,
		CaptionMarginFrac:   DefaultCaptionMarginFrac,
		MinFileSize:         DefaultMinFileSize,
		RateInterval:        DefaultRateInterval,
		RequestTimeout:      DefaultRequestTimeout,
		KeepaliveInterval:   DefaultKeepaliveInterval,
	}
}

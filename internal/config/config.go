package config

import (
	"time"

	"github.com/shouni/go-utils/envutil"
)

// デフォルト値の定義なのだ
const (
	DefaultClipGeneratorBin   = "anime-clip-gen"
	DefaultSpeechGeneratorBin = "anime-tts"
	DefaultMusicGeneratorBin  = "anime-music-gen"
	DefaultAlignerBin         = "anime-align"
	DefaultHTTPTimeout        = 30 * time.Second
	DefaultCharactersFile     = "examples/characters.json" // キャラクターの声・参照情報を定義したJSONパス
	DefaultOutputFile         = "output/final_video.mp4"          // 最終成果物のデフォルト保存先なのだ
	DefaultListenAddr         = ":8080"
)

// Config はアプリケーション全体の環境設定（外部ジェネレーターの場所など）を保持する構造体なのだ。
type Config struct {
	ClipGeneratorBin   string
	SpeechGeneratorBin string
	MusicGeneratorBin  string
	AlignerBin         string

	Options GenerateOptions
}

// LoadConfig は環境変数から設定を読み込み、構造体を返すのだ！
func LoadConfig() *Config {
	cfg := &Config{
		ClipGeneratorBin:   envutil.GetEnv("CLIP_GENERATOR_BIN", DefaultClipGeneratorBin),
		SpeechGeneratorBin: envutil.GetEnv("SPEECH_GENERATOR_BIN", DefaultSpeechGeneratorBin),
		MusicGeneratorBin:  envutil.GetEnv("MUSIC_GENERATOR_BIN", DefaultMusicGeneratorBin),
		AlignerBin:         envutil.GetEnv("ALIGNER_BIN", DefaultAlignerBin),
	}
	return cfg
}

// GenerateOptions は CLI フラグから渡される実行時のパラメータなのだ。
type GenerateOptions struct {
	// ソース入力関連
	ScriptURL       string // --script-url
	ScriptFile      string // --script-file
	LyricsFile      string // --lyrics-file
	OutputFile      string // --output-file
	CharacterConfig string

	// 合成挙動設定
	ClipDurationMs int64   // --clip-duration-ms
	MusicVolume    float64 // --music-volume

	// サーバー関連
	ListenAddr string // --listen

	// 実行制御
	HTTPTimeout time.Duration // --http-timeout
}

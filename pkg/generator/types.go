package generator

import "github.com/shouni/go-anime-kit/pkg/domain"

// ClipAspectRatio は縦型ショート動画の標準アスペクト比です。
const ClipAspectRatio = "9:16"

// ClipRequest は1枚のパネルから無音クリップを生成するための要求です。
type ClipRequest struct {
	PanelIndex   int
	VisualAnchor string
	CameraNote   string
	ReferenceURL string
	DurationMs   int64
	OutputPath   string
}

// SpeechRequest は1パネル分のセリフ音声を合成するための要求です。
type SpeechRequest struct {
	PanelIndex int
	Text       string
	VoiceID    string
	OutputPath string
}

// MusicRequest は楽曲全体を1本の音声として生成するための要求です。
type MusicRequest struct {
	Prompt     string
	Lyrics     string
	DurationMs int64
	OutputPath string
}

// AlignResult は音声とテキストの強制アラインメントの結果です。
type AlignResult struct {
	Words []domain.WordSegment `json:"words"`
}

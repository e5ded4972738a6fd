package generator

import (
	"context"

	"github.com/shouni/go-anime-kit/pkg/domain"
)

// ClipGenerator は、1枚のパネルから無音の動画クリップを生成するためのインターフェースを定義します。
type ClipGenerator interface {
	Generate(ctx context.Context, req ClipRequest) (*domain.SilentClip, error)
}

// SpeechGenerator は、セリフのテキストからパネル単位の音声トラックを合成します。
// PrepareVoice は話者の音声リソースを事前に解決し、以後の合成で再利用できる識別子を返します。
type SpeechGenerator interface {
	PrepareVoice(ctx context.Context, char *domain.Character) (string, error)
	Synthesize(ctx context.Context, req SpeechRequest) (*domain.AudioTrack, error)
}

// MusicGenerator は、歌詞とプロンプトから楽曲全体の音声トラックを生成します。
type MusicGenerator interface {
	Generate(ctx context.Context, req MusicRequest) (*domain.AudioTrack, error)
}

// Aligner は、音声ファイルとテキストから単語単位のタイムスタンプを推定します。
type Aligner interface {
	Align(ctx context.Context, audioPath, text string) ([]domain.WordSegment, error)
}

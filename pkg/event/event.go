// Package event は、パイプラインの進捗を呼び出し側へ届けるための
// 型付きイベントストリームを提供します。コールバック渡しではなく、
// 有限で終端イベントを1つだけ持つ列として消費される設計です。
package event

import "github.com/shouni/go-anime-kit/pkg/domain"

// Type はイベントの種別です。
type Type string

const (
	TypeStart           Type = "start"
	TypeTTSProgress     Type = "tts_progress"
	TypeVideoProgress   Type = "video_progress"
	TypeMusicProgress   Type = "music_progress"
	TypeAlignProgress   Type = "align_progress"
	TypeCaptionProgress Type = "caption_progress"
	TypeCompose         Type = "compose"
	TypeWarning         Type = "warning"
	TypeKeepalive       Type = "keepalive"
	TypeComplete        Type = "complete"
	TypeError           Type = "error"
)

// Event はストリームに流れる1件の進捗通知です。
// 種別ごとに使用されるフィールドが異なるため、未使用のものは省略されます。
type Event struct {
	Type    Type   `json:"type"`
	Message string `json:"message,omitempty"`

	// start
	Mode       string `json:"mode,omitempty"`
	PanelCount int    `json:"panel_count,omitempty"`

	// ブランチ進捗
	Index int `json:"index,omitempty"`
	Total int `json:"total,omitempty"`

	// complete
	RunID                string                     `json:"run_id,omitempty"`
	FinalPath            string                     `json:"final_path,omitempty"`
	Verified             bool                       `json:"verified,omitempty"`
	VerificationFailures []string                   `json:"verification_failures,omitempty"`
	HasAudio             bool                       `json:"has_audio,omitempty"`
	HasCaptions          bool                       `json:"has_captions,omitempty"`
	TotalDurationMs      int64                      `json:"total_duration_ms,omitempty"`
	ClipCount            int                        `json:"clip_count,omitempty"`
	ClipsFailed          int                        `json:"clips_failed,omitempty"`
	Verification         *domain.VerificationResult `json:"verification,omitempty"`
}

// IsTerminal は complete / error のいずれかであるかを返します。
func (e Event) IsTerminal() bool {
	return e.Type == TypeComplete || e.Type == TypeError
}

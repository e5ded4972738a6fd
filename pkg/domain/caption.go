package domain

// WordSegment は単語1つ分のタイミングです。ミリ秒はコンポジション全体基準です。
type WordSegment struct {
	Text    string `json:"text"`
	StartMs int64  `json:"start_ms"`
	EndMs   int64  `json:"end_ms"`
}

// CaptionSegment は1行分のキャプションと、その中の単語タイミングを保持します。
// 不変条件: すべてのセグメント・単語で start < end。単語同士は重ならず、
// セグメント内で単調増加します。
type CaptionSegment struct {
	Text    string        `json:"text"`
	StartMs int64         `json:"start_ms"`
	EndMs   int64         `json:"end_ms"`
	Speaker string        `json:"speaker,omitempty"`
	Words   []WordSegment `json:"words,omitempty"`
}

// DurationMs はセグメントの表示時間を返します。
func (cs CaptionSegment) DurationMs() int64 {
	return cs.EndMs - cs.StartMs
}

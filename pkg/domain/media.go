package domain

// TargetProfile は出力映像の正準プロファイル（解像度とカラー特性）を定義します。
// 上流のジェネレーターは複数のプロファイルを混在させて出力することが分かっているため、
// 結合前には必ずこのプロファイルへ正規化されます。
type TargetProfile struct {
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	PixFmt     string `json:"pix_fmt"`
	ColorSpace string `json:"color_space"`
	ColorRange string `json:"color_range"`
}

// DefaultProfile は 9:16 縦型動画の正準プロファイルを返します。
func DefaultProfile() TargetProfile {
	return TargetProfile{
		Width:      1080,
		Height:     1920,
		PixFmt:     "yuv420p",
		ColorSpace: "bt709",
		ColorRange: "tv",
	}
}

// SilentClip は映像のみ（音声ストリームなし）のクリップを表します。
type SilentClip struct {
	Path       string `json:"path"`
	DurationMs int64  `json:"duration_ms"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	PixFmt     string `json:"pix_fmt"`
	ColorSpace string `json:"color_space"`
	ColorRange string `json:"color_range"`
	PanelIndex int    `json:"panel_index"`
}

// AudioTrack は音声ファイルとその長さを表します。読み取り専用で扱われます。
// Text には実際に音声化されたテキストを保持し、後段の強制アラインメントで使用します。
type AudioTrack struct {
	Path       string `json:"path"`
	DurationMs int64  `json:"duration_ms"`
	SampleRate int    `json:"sample_rate"`
	SpeakerID  string `json:"speaker_id"`
	PanelIndex int    `json:"panel_index"`
	Text       string `json:"text,omitempty"`
}

// SyncedClip は SilentClip と AudioTrack を目標尺ちょうどに結合した派生成果物です。
// 一度書き込まれた後は変更されず、ランの一時ディレクトリと共に削除されます。
type SyncedClip struct {
	Path       string `json:"path"`
	DurationMs int64  `json:"duration_ms"`
	PanelIndex int    `json:"panel_index"`
	HasAudio   bool   `json:"has_audio"`
}

// Composition は結合済みクリップ・キャプショントラック・検証期待値の組です。
type Composition struct {
	Clips            []SyncedClip     `json:"clips"`
	Captions         []CaptionSegment `json:"captions"`
	TargetDurationMs int64            `json:"target_duration_ms"`
	Profile          TargetProfile    `json:"profile"`
	RequireAudio     bool             `json:"require_audio"`
}

// VerificationResult は Verifier の1回の実行結果です。生成後は変更されず、
// 修復リトライ後は新しい結果で置き換えられます。
type VerificationResult struct {
	Passed           bool     `json:"passed"`
	Checks           []string `json:"checks"`
	Failures         []string `json:"failures"`
	ActualDurationMs int64    `json:"actual_duration_ms"`
	ActualWidth      int      `json:"actual_width"`
	ActualHeight     int      `json:"actual_height"`
	HasVideo         bool     `json:"has_video"`
	HasAudio         bool     `json:"has_audio"`
	FileSizeBytes    int64    `json:"file_size_bytes"`
}

// ResolutionFailed は失敗理由の中に解像度不一致が含まれるかを返します。
// オーケストレーターはこの場合に限り、強制正規化での再結合を1度だけ試みます。
func (vr VerificationResult) ResolutionFailed() bool {
	for _, f := range vr.Failures {
		if len(f) >= 10 && f[:10] == "resolution" {
			return true
		}
	}
	return false
}

package domain

// StoryResponse は台本生成エージェントから渡される物語全体の構造です。
type StoryResponse struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Panels      []Panel `json:"panels"`
}

// Panel は1コマ分のキーフレーム画像と、そのコマに紐づくセリフ・演出情報を保持します。
// パイプライン開始前に外部コラボレーターが生成する、不変の入力単位です。
type Panel struct {
	Index        int    `json:"index"`
	VisualAnchor string `json:"visual_anchor"`
	Dialogue     string `json:"dialogue"`
	SpeakerID    string `json:"speaker_id"`
	ReferenceURL string `json:"reference_url"`
	CameraNote   string `json:"camera_note"`
}

// Panels は補助メソッドを提供するためのスライス別名です。
type Panels []Panel

// DialogueLine はパネルのセリフ文字列を話者と本文に分解した結果なのだ。
type DialogueLine struct {
	Speaker    string `json:"speaker"`
	Text       string `json:"text"`
	PanelIndex int    `json:"panel_index"`
}

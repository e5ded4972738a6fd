package domain

// PanelResult はパネル1つ分の生成結果（映像と音声）を常にペアで保持します。
// 片方だけが欠けた状態で後段に進むと、以降のすべてのクリップが静かにズレていく。
// 過去にそれが実際に起きた欠陥クラスであり、このペア型はそれを構造的に不可能にするためにある。
type PanelResult struct {
	Panel Panel
	Video *SilentClip
	Audio *AudioTrack

	// VideoErr / AudioErr はそのパネル単体の失敗理由（非致命）なのだ。
	VideoErr error
	AudioErr error
}

// Complete は Syncing に進めるかを1回の判定に畳み込むのだ。
// 映像はどちらのモードでも必須なのだ。requireAudio が真のとき（対話モード）は、
// 音声生成を試みて失敗したパネル（AudioErr あり）だけが脱落するのだ。
// セリフが無く音声を持たないだけのパネルは、無音クリップとして成立するのだ。
func (pr PanelResult) Complete(requireAudio bool) bool {
	if pr.Video == nil {
		return false
	}
	if requireAudio && pr.Audio == nil && pr.AudioErr != nil {
		return false
	}
	return true
}

// SurvivingResults は両方の枝が完了した後、ペア判定を通過した結果だけを
// パネル順のまま返します。映像の無いパネルと、セリフがあるのに音声生成が
// 失敗したパネルは、ここでペアごと脱落します。
func SurvivingResults(results []PanelResult, requireAudio bool) []PanelResult {
	survivors := make([]PanelResult, 0, len(results))
	for _, r := range results {
		if r.Complete(requireAudio) {
			survivors = append(survivors, r)
		}
	}
	return survivors
}

// RunContext は1回のパイプライン実行に属するすべての状態を明示的に持ち回る構造体です。
// 暗黙の「現在のセッション」に依存しないことが設計上の要請です。
type RunContext struct {
	RunID   string
	WorkDir string
	Profile TargetProfile

	// ポリシー値。固定定数ではなく実行ごとに設定できる。
	ClipDurationMs      int64
	DurationToleranceMs int64
	WordFloorMs         int64
	CaptionMarginFrac   float64
}

// PanelTargetMs は各パネルの目標尺を返します。
func (rc RunContext) PanelTargetMs() int64 {
	return rc.ClipDurationMs
}

// TotalTargetMs はパネル数から期待される合計尺を返します。
func (rc RunContext) TotalTargetMs(panelCount int) int64 {
	return rc.ClipDurationMs * int64(panelCount)
}

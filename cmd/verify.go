package cmd

import (
	"fmt"

	"github.com/shouni/go-anime-kit/internal/config"
	"github.com/shouni/go-anime-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

var verifyExpectedMs int64

// verifyCmd は、既存の動画ファイルを単体で検査するのだ。
var verifyCmd = &cobra.Command{
	Use:   "verify <video-file>",
	Short: "動画ファイルの尺・解像度・ストリーム構成を検査するのだ。",
	Long: `ffprobe による観測結果を期待値と突き合わせ、検査結果を JSON で出力するのだ。
合成を伴わない単体検査なので、生成済みの成果物の再確認に使えるのだよ。`,
	Args: cobra.ExactArgs(1),
	RunE: verifyCommand,
}

func init() {
	verifyCmd.Flags().Int64Var(&verifyExpectedMs, "expected-ms", 0, "期待する総尺（ミリ秒、0で尺検査をスキップ）なのだ。")
}

func verifyCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg := config.LoadConfig()
	cfg.Options = opts

	if err := pipeline.ExecuteVerify(ctx, cfg, args[0], verifyExpectedMs); err != nil {
		return fmt.Errorf("検査に失敗したのだ: %w", err)
	}
	return nil
}

package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-anime-kit/internal/config"
	"github.com/shouni/go-anime-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// animateCmd は、台本からセリフ入り動画の合成を実行するのだ。
var animateCmd = &cobra.Command{
	Use:   "animate",
	Short: "台本からセリフ入りの縦型動画を合成するのだ。",
	Long: `台本（JSON）のパネルごとにクリップとセリフ音声を並行生成し、
同期・結合・字幕焼き込みを経て検証済みの1本の動画を出力するのだ。`,
	RunE: animateCommand,
}

func animateCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// 1. 入力ソースの必須チェック。URL指定はリーダーがそのまま解決できる
	if opts.ScriptFile == "" && opts.ScriptURL != "" {
		opts.ScriptFile = opts.ScriptURL
	}
	if opts.ScriptFile == "" && !isStdin() {
		return fmt.Errorf("台本（--script-file か --script-url）を指定してほしいのだ")
	}

	// 2. 環境変数等から基本設定をロードするのだ
	cfg := config.LoadConfig()
	cfg.Options = opts

	slog.Info("動画合成パイプラインを起動するのだ！",
		"mode", "dialogue",
		"script", opts.ScriptFile,
		"output", opts.OutputFile)

	// 3. 実行
	if err := pipeline.ExecuteDialogue(ctx, cfg); err != nil {
		return fmt.Errorf("パイプライン実行中にエラーが発生したのだ: %w", err)
	}

	slog.Info("すべての合成工程が完了したのだ！")
	return nil
}

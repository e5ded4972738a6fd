package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-anime-kit/internal/config"
	"github.com/shouni/go-anime-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// musicCmd は、台本と歌詞からミュージックビデオの合成を実行するのだ。
var musicCmd = &cobra.Command{
	Use:   "music",
	Short: "台本と歌詞からカラオケ字幕付きのMVを合成するのだ。",
	Long: `パネルごとの無音クリップと楽曲全体を並行生成し、結合した映像へ楽曲を合成するのだ。
歌詞の各行はパネルの時間窓に固定され、カラオケ風のワイプ字幕として焼き込まれるのだよ。`,
	RunE: musicCommand,
}

func musicCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if opts.ScriptFile == "" && opts.ScriptURL != "" {
		opts.ScriptFile = opts.ScriptURL
	}
	if opts.ScriptFile == "" {
		return fmt.Errorf("台本（--script-file か --script-url）を指定してほしいのだ")
	}
	if opts.LyricsFile == "" {
		return fmt.Errorf("歌詞（--lyrics-file）を指定してほしいのだ")
	}

	// music コマンドでは --output-file 未指定時のデフォルトをMV用に変える
	if !cmd.Flags().Changed("output-file") {
		opts.OutputFile = "output/music_video.mp4"
	}

	cfg := config.LoadConfig()
	cfg.Options = opts

	slog.Info("MV合成パイプラインを起動するのだ！",
		"mode", "music",
		"script", opts.ScriptFile,
		"lyrics", opts.LyricsFile,
		"output", opts.OutputFile)

	if err := pipeline.ExecuteMusic(ctx, cfg); err != nil {
		return fmt.Errorf("パイプライン実行中にエラーが発生したのだ: %w", err)
	}

	slog.Info("MVの合成が完了したのだ！", "output_file", opts.OutputFile)
	return nil
}

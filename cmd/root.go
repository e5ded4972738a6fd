package cmd

import (
	"log/slog"
	"os"

	"github.com/shouni/go-anime-kit/internal/config"
	kitconfig "github.com/shouni/go-anime-kit/pkg/config"

	clibase "github.com/shouni/go-cli-base"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// opts は CLI フラグの値を集約する実行時オプションなのだ。
var opts config.GenerateOptions

// addAppFlags は、アプリケーション全般に適用されるグローバルフラグを定義するのだ。
func addAppFlags(rootCmd *cobra.Command) {
	// --- ソース入力関連 ---
	rootCmd.PersistentFlags().StringVarP(&opts.ScriptURL, "script-url", "u", "", "台本を取得するためのURLなのだ。")
	rootCmd.PersistentFlags().StringVarP(&opts.ScriptFile, "script-file", "f", "", "台本JSONファイルのパス（ローカル or gs://...）なのだ。")
	rootCmd.PersistentFlags().StringVarP(&opts.LyricsFile, "lyrics-file", "l", "", "歌詞ファイルのパス（音楽モード用）なのだ。")

	// --- 生成結果の出力設定 ---
	rootCmd.PersistentFlags().StringVarP(&opts.OutputFile, "output-file", "o", config.DefaultOutputFile, "保存パス（ローカル or gs://...）なのだ。")

	// --- 合成挙動設定 ---
	rootCmd.PersistentFlags().Int64Var(&opts.ClipDurationMs, "clip-duration-ms", kitconfig.DefaultClipDurationMs, "パネル1枚あたりの目標尺（ミリ秒）なのだ。")
	rootCmd.PersistentFlags().Float64Var(&opts.MusicVolume, "music-volume", kitconfig.DefaultMusicVolume, "合成する楽曲の音量（0.0〜1.0）なのだ。")
	rootCmd.PersistentFlags().DurationVar(&opts.HTTPTimeout, "http-timeout", config.DefaultHTTPTimeout, "Webリクエストのタイムアウトなのだ。")

	// --- キャラクター設定 ---
	animateCmd.Flags().StringVarP(&opts.CharacterConfig, "char-config", "c", config.DefaultCharactersFile, "キャラクターの声・参照情報を定義したJSONパスなのだ。")

	// --- サーバー関連 ---
	serveCmd.Flags().StringVar(&opts.ListenAddr, "listen", config.DefaultListenAddr, "APIサーバーの待ち受けアドレスなのだ。")
}

// preRunAppE は、コマンド実行前に環境設定の読み込みを行うのだ。
func preRunAppE(cmd *cobra.Command, args []string) error {
	// .env があれば読み込む。無くてもエラーにはしないのだ
	if err := godotenv.Load(); err == nil {
		slog.Debug(".env を読み込んだのだ")
	}
	return nil
}

// Execute は、アプリケーションのメインエントリポイントなのだ。
// main.go から呼び出されて、cobra のコマンドライン解析を開始するのだよ。
func Execute() {
	clibase.Execute(
		"go-anime-kit",
		addAppFlags,
		preRunAppE,
		animateCmd,
		musicCmd,
		verifyCmd,
		serveCmd,
	)
}

func isStdin() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

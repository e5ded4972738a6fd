package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-anime-kit/internal/config"
	"github.com/shouni/go-anime-kit/internal/server"

	"github.com/spf13/cobra"
)

// serveCmd は、WebSocket で進捗を中継する API サーバーを起動するのだ。
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "動画合成パイプラインの API サーバーを起動するのだ。",
	Long: `WebSocket 接続ごとに1回のパイプライン実行を引き受け、進捗イベントを
JSON のまま接続先へ中継するのだ。終端は必ず complete か error になるのだよ。`,
	RunE: serveCommand,
}

func serveCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg := config.LoadConfig()
	cfg.Options = opts

	slog.Info("APIサーバーモードで起動するのだ！", "listen", opts.ListenAddr)

	if err := server.New(cfg).ListenAndServe(ctx); err != nil {
		return fmt.Errorf("APIサーバーの実行中にエラーが発生したのだ: %w", err)
	}
	return nil
}

package builder

import (
	"github.com/shouni/go-anime-kit/internal/config"

	kitconfig "github.com/shouni/go-anime-kit/pkg/config"

	"github.com/shouni/go-remote-io/remoteio"
)

// AppContext は、アプリケーション実行に必要な共通コンテキストを保持する
// これを各Build関数に渡すことで、依存関係の注入を簡素化します。
type AppContext struct {
	Config    *config.Config         // Configは、環境変数から読み込まれたグローバルな設定です（外部ジェネレーターの場所など）。
	Options   config.GenerateOptions // Optionsは、コマンドラインから渡された実行時の設定です（モード、入力パス、音量など）。
	KitConfig kitconfig.Config       // KitConfigは、合成パイプラインへ渡すポリシー込みの設定です。
	Reader    remoteio.InputReader   // Readerは、台本や歌詞の読み込みに使用する入力元です。
	Writer    remoteio.OutputWriter  // Writerは、最終成果物を保存するための出力先です。
}

// NewAppContext は AppContext の新しいインスタンスを生成する
func NewAppContext(
	cfg *config.Config,
	kitCfg kitconfig.Config,
	reader remoteio.InputReader,
	writer remoteio.OutputWriter,
) AppContext {
	return AppContext{
		Config:    cfg,
		Options:   cfg.Options,
		KitConfig: kitCfg,
		Reader:    reader,
		Writer:    writer,
	}
}

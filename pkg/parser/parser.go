package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/shouni/go-anime-kit/pkg/domain"
	"github.com/shouni/go-remote-io/remoteio"
)

// PathParser は台本ファイルを読み込んで解析するためのインターフェースを定義します。
type PathParser interface {
	ParseFromPath(ctx context.Context, fullPath string) (*domain.StoryResponse, error)
}

// StoryResponseParser は JSON 形式の台本を解析する構造体です。
type StoryResponseParser struct {
	reader remoteio.InputReader
}

// NewStoryResponseParser は新しい StoryResponseParser インスタンスを生成します。
func NewStoryResponseParser(r remoteio.InputReader) *StoryResponseParser {
	return &StoryResponseParser{reader: r}
}

// ParseFromPath は指定された GCS URIやローカルファイルパスなどから
// コンテンツを読み込み、解析して domain.StoryResponse を返します。
func (p *StoryResponseParser) ParseFromPath(ctx context.Context, scriptFile string) (*domain.StoryResponse, error) {
	slog.InfoContext(ctx, "台本ファイルを読み込んでいます", "path", scriptFile)
	rc, err := p.reader.Open(ctx, scriptFile)
	if err != nil {
		return nil, fmt.Errorf("台本ファイルのオープンに失敗しました (%s): %w", scriptFile, err)
	}
	defer rc.Close()

	story := &domain.StoryResponse{}
	if err := json.NewDecoder(rc).Decode(story); err != nil {
		return nil, fmt.Errorf("台本JSONのパースに失敗しました: %w", err)
	}

	return story, nil
}

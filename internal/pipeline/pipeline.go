package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/shouni/go-anime-kit/internal/builder"
	"github.com/shouni/go-anime-kit/internal/config"
	"github.com/shouni/go-anime-kit/pkg/domain"
	"github.com/shouni/go-anime-kit/pkg/event"
	"github.com/shouni/go-anime-kit/pkg/parser"
	"github.com/shouni/go-anime-kit/pkg/publisher"
	"github.com/shouni/go-anime-kit/pkg/verify"

	gcsfactory "github.com/shouni/go-remote-io/remoteio/gcs"
)

// ExecuteDialogue は、指定されたJSONファイル（台本）を読み込み、
// 対話モードの動画合成パイプラインを実行するのだ。
func ExecuteDialogue(ctx context.Context, cfg *config.Config) error {
	appCtx, err := setupAppContext(ctx, cfg)
	if err != nil {
		return err
	}

	story, err := readStory(ctx, appCtx, cfg.Options.ScriptFile)
	if err != nil {
		return err
	}

	animateRunner, err := builder.BuildAnimateRunner(appCtx)
	if err != nil {
		return fmt.Errorf("AnimateRunnerの構築に失敗したのだ: %w", err)
	}

	stream := event.NewStream()
	done := logEvents(stream)

	result, err := animateRunner.Run(ctx, story, cfg.Options.OutputFile, stream)
	<-done
	if err != nil {
		return fmt.Errorf("対話モードの実行に失敗したのだ: %w", err)
	}

	if !result.Passed {
		slog.Warn("検証に失敗した成果物が出力されたのだ", "failures", result.Failures)
	} else {
		slog.Info("検証済みの動画が完成したのだ！", "path", cfg.Options.OutputFile)
	}

	publishReport(ctx, appCtx, "dialogue", story, result)
	return nil
}

// ExecuteMusic は、台本と歌詞を読み込み、音楽モードの動画合成パイプラインを実行するのだ。
func ExecuteMusic(ctx context.Context, cfg *config.Config) error {
	appCtx, err := setupAppContext(ctx, cfg)
	if err != nil {
		return err
	}

	story, err := readStory(ctx, appCtx, cfg.Options.ScriptFile)
	if err != nil {
		return err
	}

	lyrics, err := readText(ctx, appCtx, cfg.Options.LyricsFile)
	if err != nil {
		return fmt.Errorf("歌詞ファイルの読み込みに失敗したのだ: %w", err)
	}

	musicRunner, err := builder.BuildMusicRunner(appCtx)
	if err != nil {
		return fmt.Errorf("MusicRunnerの構築に失敗したのだ: %w", err)
	}

	stream := event.NewStream()
	done := logEvents(stream)

	result, err := musicRunner.Run(ctx, story, lyrics, cfg.Options.OutputFile, stream)
	<-done
	if err != nil {
		return fmt.Errorf("音楽モードの実行に失敗したのだ: %w", err)
	}

	if !result.Passed {
		slog.Warn("検証に失敗した成果物が出力されたのだ", "failures", result.Failures)
	} else {
		slog.Info("検証済みの動画が完成したのだ！", "path", cfg.Options.OutputFile)
	}

	publishReport(ctx, appCtx, "music", story, result)
	return nil
}

// ExecuteVerify は既存の動画ファイルを期待値と突き合わせて検査するのだ。
func ExecuteVerify(ctx context.Context, cfg *config.Config, path string, expectedMs int64) error {
	kitCfg := builder.BuildKitConfig(cfg)
	verifier := builder.BuildVerifier()

	result := verifier.Verify(ctx, path, verify.Expectation{
		DurationMs:   expectedMs,
		Width:        kitCfg.Profile.Width,
		Height:       kitCfg.Profile.Height,
		RequireAudio: true,
		ToleranceMs:  kitCfg.DurationToleranceMs,
		MinFileSize:  kitCfg.MinFileSize,
	})

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if !result.Passed {
		return fmt.Errorf("検証に失敗したのだ: %v", result.Failures)
	}
	return nil
}

// setupAppContext は、提供された設定と共有コンポーネントを使用して、アプリケーションコンテキストを初期化して返すのだ。
func setupAppContext(ctx context.Context, cfg *config.Config) (*builder.AppContext, error) {
	gcsFactory, err := gcsfactory.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client factory: %w", err)
	}

	reader, err := gcsFactory.InputReader()
	if err != nil {
		return nil, err
	}
	writer, err := gcsFactory.OutputWriter()
	if err != nil {
		return nil, err
	}

	appCtx := builder.NewAppContext(cfg, builder.BuildKitConfig(cfg), reader, writer)
	return &appCtx, nil
}

// readStory は台本（JSON または Markdown）を読み込んでデコードするのだ。
func readStory(ctx context.Context, appCtx *builder.AppContext, path string) (*domain.StoryResponse, error) {
	var story *domain.StoryResponse
	var err error

	if strings.HasSuffix(path, ".md") {
		content, readErr := readText(ctx, appCtx, path)
		if readErr != nil {
			return nil, fmt.Errorf("台本ファイル '%s' の読み込みに失敗しました: %w", path, readErr)
		}
		story, err = parser.NewMarkdownParser().Parse(path, content)
	} else {
		story, err = parser.NewStoryResponseParser(appCtx.Reader).ParseFromPath(ctx, path)
	}
	if err != nil {
		return nil, fmt.Errorf("台本ファイル '%s' のデコードに失敗しました: %w", path, err)
	}
	if len(story.Panels) == 0 {
		return nil, fmt.Errorf("台本ファイル '%s' にパネルが1つもありません", path)
	}
	return story, nil
}

// readText はテキストファイル（歌詞など）を文字列として読み込むのだ。
func readText(ctx context.Context, appCtx *builder.AppContext, path string) (string, error) {
	rc, err := appCtx.Reader.Open(ctx, path)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, rc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// publishReport は実行レポートを最終成果物と同じディレクトリへ保存するのだ。
// レポートは付随物なので、ここでの失敗はランの成否に影響させない。
func publishReport(ctx context.Context, appCtx *builder.AppContext, mode string, story *domain.StoryResponse, result *domain.VerificationResult) {
	pub := publisher.NewRunPublisher(appCtx.Writer)
	report := publisher.RunReport{
		Mode:       mode,
		Title:      story.Title,
		FinalPath:  appCtx.Options.OutputFile,
		PanelCount: len(story.Panels),
		Result:     result,
	}
	opts := publisher.Options{OutputDir: publisher.ResolveBaseURL(appCtx.Options.OutputFile)}
	if _, err := pub.Publish(ctx, report, opts); err != nil {
		slog.Warn("実行レポートの保存に失敗したのだ", "error", err)
	}
}

// logEvents はストリームのイベントを構造化ログへ流し、終端で閉じられるチャネルを返すのだ。
func logEvents(stream *event.Stream) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range stream.Events() {
			switch ev.Type {
			case event.TypeKeepalive:
				// ログには流さない
			case event.TypeWarning:
				slog.Warn("パイプラインから警告が届いたのだ", "message", ev.Message)
			case event.TypeError:
				slog.Error("パイプラインでエラーが発生したのだ", "message", ev.Message)
			case event.TypeComplete:
				slog.Info("パイプラインが完了したのだ",
					"verified", ev.Verified,
					"clips", ev.ClipCount,
					"clips_failed", ev.ClipsFailed,
					"duration_ms", ev.TotalDurationMs,
				)
			default:
				slog.Info(string(ev.Type), "index", ev.Index, "total", ev.Total)
			}
		}
	}()
	return done
}

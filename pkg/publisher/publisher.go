package publisher

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shouni/go-anime-kit/pkg/domain"

	"github.com/shouni/go-remote-io/remoteio"
)

// Options はパブリッシュ動作を制御する設定項目です。
type Options struct {
	OutputDir string
}

// PublishResult はパブリッシュ処理の結果として生成されたファイルの情報を保持します。
type PublishResult struct {
	ReportPath string // 生成された run_report.md のパス
}

const defaultReportName = "run_report.md"

// RunReport は1回のパイプライン実行の要約です。
type RunReport struct {
	RunID       string
	Mode        string
	Title       string
	FinalPath   string
	PanelCount  int
	ClipsFailed int
	Result      *domain.VerificationResult
}

// RunPublisher は実行レポートの永続化を担います。
type RunPublisher struct {
	writer remoteio.OutputWriter
}

// NewRunPublisher は指定された writer を持つ RunPublisher を生成して返します。
func NewRunPublisher(writer remoteio.OutputWriter) *RunPublisher {
	return &RunPublisher{writer: writer}
}

// Publish は実行レポートをMarkdownとして構築し、出力先へ保存するのだ！
func (p *RunPublisher) Publish(ctx context.Context, report RunReport, opts Options) (PublishResult, error) {
	result := PublishResult{}

	reportPath, err := ResolveOutputPath(opts.OutputDir, defaultReportName)
	if err != nil {
		return result, err
	}
	result.ReportPath = reportPath

	content := buildMarkdown(report)
	if err := p.writer.Write(ctx, reportPath, bytes.NewReader([]byte(content)), "text/markdown"); err != nil {
		return result, fmt.Errorf("レポートの書き込みに失敗しました: %w", err)
	}

	slog.InfoContext(ctx, "実行レポートを保存しました", "path", reportPath)
	return result, nil
}

// buildMarkdown は実行レポートのMarkdownを組み立てるのだ。
func buildMarkdown(report RunReport) string {
	var sb strings.Builder

	title := report.Title
	if title == "" {
		title = "実行レポート"
	}
	fmt.Fprintf(&sb, "# %s\n\n", title)
	fmt.Fprintf(&sb, "- run_id: %s\n", report.RunID)
	fmt.Fprintf(&sb, "- mode: %s\n", report.Mode)
	fmt.Fprintf(&sb, "- final_path: %s\n", report.FinalPath)
	fmt.Fprintf(&sb, "- panels: %d\n", report.PanelCount)
	fmt.Fprintf(&sb, "- clips_failed: %d\n", report.ClipsFailed)

	if report.Result != nil {
		fmt.Fprintf(&sb, "\n## 検証結果\n\n")
		fmt.Fprintf(&sb, "- passed: %t\n", report.Result.Passed)
		fmt.Fprintf(&sb, "- duration_ms: %d\n", report.Result.ActualDurationMs)
		fmt.Fprintf(&sb, "- resolution: %dx%d\n", report.Result.ActualWidth, report.Result.ActualHeight)
		fmt.Fprintf(&sb, "- has_audio: %t\n", report.Result.HasAudio)

		if len(report.Result.Failures) > 0 {
			fmt.Fprintf(&sb, "\n### 失敗項目\n\n")
			for _, f := range report.Result.Failures {
				fmt.Fprintf(&sb, "- %s\n", f)
			}
		}
	}

	return sb.String()
}

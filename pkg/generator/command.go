package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/shouni/go-anime-kit/pkg/domain"
	"github.com/shouni/go-anime-kit/pkg/media"
)

// CommandClipGenerator は、設定された外部コマンドにパネル情報を渡してクリップを生成します。
// 生成バックエンドの差し替えをコマンドラインの境界で行うためのアダプターです。
type CommandClipGenerator struct {
	Bin       string
	ExtraArgs []string
	run       media.CommandRunner
}

// NewCommandClipGenerator は CommandClipGenerator を初期化します。runner が nil の場合は既定の実装を使用します。
func NewCommandClipGenerator(bin string, extraArgs []string, runner media.CommandRunner) *CommandClipGenerator {
	if runner == nil {
		runner = media.ExecRunner
	}
	return &CommandClipGenerator{Bin: bin, ExtraArgs: extraArgs, run: runner}
}

// Generate は外部コマンドを実行し、生成された無音クリップを返します。
func (g *CommandClipGenerator) Generate(ctx context.Context, req ClipRequest) (*domain.SilentClip, error) {
	args := []string{
		"--anchor", req.VisualAnchor,
		"--duration-ms", strconv.FormatInt(req.DurationMs, 10),
		"--aspect", ClipAspectRatio,
		"--output", req.OutputPath,
	}
	if req.CameraNote != "" {
		args = append(args, "--camera", req.CameraNote)
	}
	if req.ReferenceURL != "" {
		args = append(args, "--reference", req.ReferenceURL)
	}
	args = append(args, g.ExtraArgs...)

	_, stderr, err := g.run(ctx, g.Bin, args...)
	if err != nil {
		return nil, fmt.Errorf("clip generator command failed: %w (stderr: %s)", err, stderr)
	}
	if _, err := os.Stat(req.OutputPath); err != nil {
		return nil, fmt.Errorf("clip generator produced no output at %s: %w", req.OutputPath, err)
	}

	return &domain.SilentClip{
		PanelIndex: req.PanelIndex,
		Path:       req.OutputPath,
		DurationMs: req.DurationMs,
	}, nil
}

// CommandSpeechGenerator は、外部の音声合成コマンドを呼び出すアダプターです。
type CommandSpeechGenerator struct {
	Bin       string
	ExtraArgs []string
	run       media.CommandRunner
}

// NewCommandSpeechGenerator は CommandSpeechGenerator を初期化します。
func NewCommandSpeechGenerator(bin string, extraArgs []string, runner media.CommandRunner) *CommandSpeechGenerator {
	if runner == nil {
		runner = media.ExecRunner
	}
	return &CommandSpeechGenerator{Bin: bin, ExtraArgs: extraArgs, run: runner}
}

// PrepareVoice は話者の音声識別子をそのまま返します。
// コマンド境界のバックエンドでは事前アップロードが不要なためです。
func (g *CommandSpeechGenerator) PrepareVoice(_ context.Context, char *domain.Character) (string, error) {
	if char == nil {
		return "", nil
	}
	return char.VoiceID, nil
}

// Synthesize は外部コマンドでセリフを音声化し、生成されたトラックを返します。
func (g *CommandSpeechGenerator) Synthesize(ctx context.Context, req SpeechRequest) (*domain.AudioTrack, error) {
	args := []string{
		"--text", req.Text,
		"--output", req.OutputPath,
	}
	if req.VoiceID != "" {
		args = append(args, "--voice", req.VoiceID)
	}
	args = append(args, g.ExtraArgs...)

	_, stderr, err := g.run(ctx, g.Bin, args...)
	if err != nil {
		return nil, fmt.Errorf("speech synthesis command failed: %w (stderr: %s)", err, stderr)
	}
	if _, err := os.Stat(req.OutputPath); err != nil {
		return nil, fmt.Errorf("speech synthesis produced no output at %s: %w", req.OutputPath, err)
	}

	return &domain.AudioTrack{
		PanelIndex: req.PanelIndex,
		Path:       req.OutputPath,
		Text:       req.Text,
	}, nil
}

// CommandMusicGenerator は、外部の楽曲生成コマンドを呼び出すアダプターです。
type CommandMusicGenerator struct {
	Bin       string
	ExtraArgs []string
	run       media.CommandRunner
}

// NewCommandMusicGenerator は CommandMusicGenerator を初期化します。
func NewCommandMusicGenerator(bin string, extraArgs []string, runner media.CommandRunner) *CommandMusicGenerator {
	if runner == nil {
		runner = media.ExecRunner
	}
	return &CommandMusicGenerator{Bin: bin, ExtraArgs: extraArgs, run: runner}
}

// Generate は外部コマンドで楽曲を生成し、そのトラックを返します。
func (g *CommandMusicGenerator) Generate(ctx context.Context, req MusicRequest) (*domain.AudioTrack, error) {
	args := []string{
		"--prompt", req.Prompt,
		"--duration-ms", strconv.FormatInt(req.DurationMs, 10),
		"--output", req.OutputPath,
	}
	if req.Lyrics != "" {
		args = append(args, "--lyrics", req.Lyrics)
	}
	args = append(args, g.ExtraArgs...)

	_, stderr, err := g.run(ctx, g.Bin, args...)
	if err != nil {
		return nil, fmt.Errorf("music generation command failed: %w (stderr: %s)", err, stderr)
	}
	if _, err := os.Stat(req.OutputPath); err != nil {
		return nil, fmt.Errorf("music generation produced no output at %s: %w", req.OutputPath, err)
	}

	return &domain.AudioTrack{
		Path: req.OutputPath,
		Text: req.Lyrics,
	}, nil
}

// CommandAligner は、外部のアラインメントコマンドを呼び出して
// 単語単位のタイムスタンプを JSON 標準出力から読み取ります。
type CommandAligner struct {
	Bin       string
	ExtraArgs []string
	run       media.CommandRunner
}

// NewCommandAligner は CommandAligner を初期化します。
func NewCommandAligner(bin string, extraArgs []string, runner media.CommandRunner) *CommandAligner {
	if runner == nil {
		runner = media.ExecRunner
	}
	return &CommandAligner{Bin: bin, ExtraArgs: extraArgs, run: runner}
}

// Align は音声とテキストの強制アラインメントを実行します。
func (a *CommandAligner) Align(ctx context.Context, audioPath, text string) ([]domain.WordSegment, error) {
	args := []string{
		"--audio", audioPath,
		"--text", text,
		"--format", "json",
	}
	args = append(args, a.ExtraArgs...)

	stdout, stderr, err := a.run(ctx, a.Bin, args...)
	if err != nil {
		return nil, fmt.Errorf("alignment command failed: %w (stderr: %s)", err, stderr)
	}

	var result AlignResult
	if err := json.Unmarshal(stdout, &result); err != nil {
		return nil, fmt.Errorf("failed to parse alignment output: %w", err)
	}
	return result.Words, nil
}

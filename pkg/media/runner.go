// Package media は ffmpeg / ffprobe を外部トランスコーダーとして呼び出し、
// クリップの同期・正規化・結合・字幕焼き込みを行う境界レイヤーです。
package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// CommandRunner は外部コマンドを同期実行し、標準出力と標準エラーを返します。
// テストではこれを差し替えて、コマンド列の組み立てだけを検証します。
type CommandRunner func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

// ExecRunner は os/exec による既定の実装です。
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	if err := cmd.Run(); err != nil {
		return outBuf.Bytes(), errBuf.Bytes(), fmt.Errorf("%s の実行に失敗しました: %w", name, err)
	}
	return outBuf.Bytes(), errBuf.Bytes(), nil
}

// stderrTail はエラーメッセージに含める標準エラー出力の末尾を返すのだ。
// ffmpeg のログは長大なので、原因が書かれている末尾だけあれば十分なのだ。
func stderrTail(stderr []byte, limit int) string {
	if len(stderr) <= limit {
		return string(stderr)
	}
	return string(stderr[len(stderr)-limit:])
}

package media

import "fmt"

// SyncError はクリップと音声の結合に失敗したことを表します。
// 該当パネル単体の致命エラーであり、ラン全体を中断させてはなりません。
type SyncError struct {
	Path   string
	Reason string
	Stderr string
	Err    error
}

func (e *SyncError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("sync failed (%s): %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("sync failed (%s): %s", e.Path, e.Reason)
}

func (e *SyncError) Unwrap() error { return e.Err }

// ConcatError はクリップ結合の失敗を表します。こちらはラン全体の致命エラーです。
type ConcatError struct {
	Reason string
	Stderr string
	Err    error
}

func (e *ConcatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("concat failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("concat failed: %s", e.Reason)
}

func (e *ConcatError) Unwrap() error { return e.Err }

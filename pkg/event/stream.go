package event

import "sync"

// 受信側が一時的に遅くてもパイプラインを止めないためのバッファ量。
const defaultBuffer = 64

// Stream は1回のラン専用の有限イベント列なのだ。
// 書き込みはオーケストレーター、読み出しは呼び出し側の1者ずつを想定しているのだ。
type Stream struct {
	ch        chan Event
	done      chan struct{}
	abandoned sync.Once
	mu        sync.Mutex
	closed    bool
}

// NewStream は新しいストリームを生成します。
func NewStream() *Stream {
	return &Stream{
		ch:   make(chan Event, defaultBuffer),
		done: make(chan struct{}),
	}
}

// Emit はイベントを1件送出します。終端イベント送出後の Emit は黙って捨てられます。
// バッファが満杯のときは keepalive のみを捨て、それ以外は受信側を待ちます。
// ただし Abandon 済みのストリームでは待たずに捨てます。受信側が消えた後も
// ランナーが ffmpeg の途中で Emit に刺さったままにならないためです。
func (s *Stream) Emit(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	if ev.Type == TypeKeepalive {
		select {
		case s.ch <- ev:
		default:
			// keepalive は落としても次の本物のイベントが間隔を埋める
		}
	} else {
		select {
		case s.ch <- ev:
		case <-s.done:
			// 受信側はもういない
		}
	}

	if ev.IsTerminal() {
		s.closed = true
		close(s.ch)
	}
}

// Abandon は受信側の離脱を通知するのだ。以降の Emit はブロックしなくなる。
// mu を取らずに done だけを閉じる。Emit が満杯のチャネルで待っている最中でも
// 即座に解放できるようにするためなのだ。
func (s *Stream) Abandon() {
	s.abandoned.Do(func() { close(s.done) })
}

// Events は読み出し専用チャネルを返します。終端イベントの後にクローズされます。
func (s *Stream) Events() <-chan Event {
	return s.ch
}

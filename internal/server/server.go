// Package server は、動画合成パイプラインを WebSocket 経由で起動し、
// 進捗イベントをそのまま接続先へ中継する薄い API サーバーなのだ。
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/shouni/go-anime-kit/internal/builder"
	"github.com/shouni/go-anime-kit/internal/config"
	"github.com/shouni/go-anime-kit/pkg/domain"
	"github.com/shouni/go-anime-kit/pkg/event"

	gcsfactory "github.com/shouni/go-remote-io/remoteio/gcs"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server は1プロセス1設定で動作する合成 API サーバーなのだ。
type Server struct {
	cfg *config.Config
}

// New は Server を初期化するのだ。
func New(cfg *config.Config) *Server {
	return &Server{cfg: cfg}
}

// runRequest は WebSocket 接続の最初のメッセージとして送られる実行要求なのだ。
type runRequest struct {
	Mode       string                `json:"mode"` // dialogue | music
	Story      *domain.StoryResponse `json:"story"`
	Lyrics     string                `json:"lyrics,omitempty"`
	OutputPath string                `json:"output_path"`
}

// Routes はハンドラーを組み立てた mux を返すのだ。
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	mux.HandleFunc("/ws/run", s.handleRun)
	return mux
}

// ListenAndServe はサーバーを起動し、ctx の取り消しで graceful shutdown するのだ。
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := s.cfg.Options.ListenAddr
	if addr == "" {
		addr = config.DefaultListenAddr
	}

	readHeaderTimeout := s.cfg.Options.HTTPTimeout
	if readHeaderTimeout <= 0 {
		readHeaderTimeout = config.DefaultHTTPTimeout
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("APIサーバーを起動するのだ", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// handleRun は接続ごとに1回のパイプライン実行を引き受けるのだ。
// 進捗イベントは JSON のまま中継され、complete か error のどちらかで必ず終端するのだ。
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("WebSocketへのアップグレードに失敗したのだ", "error", err)
		return
	}
	defer conn.Close()

	var req runRequest
	if err := conn.ReadJSON(&req); err != nil {
		writeWSError(conn, fmt.Sprintf("実行要求のデコードに失敗しました: %v", err))
		return
	}
	if req.Story == nil || len(req.Story.Panels) == 0 {
		writeWSError(conn, "台本にパネルが1つもありません")
		return
	}
	if req.OutputPath == "" {
		writeWSError(conn, "output_path は必須です")
		return
	}

	appCtx, err := s.setupAppContext(r.Context())
	if err != nil {
		writeWSError(conn, err.Error())
		return
	}

	stream := event.NewStream()
	// 中継をやめた後にランナーが Emit で詰まらないよう、離脱を必ず通知する
	defer stream.Abandon()
	go s.execute(r.Context(), appCtx, req, stream)

	// ランナー側が終端イベントでチャネルを閉じるまで中継し続ける
	for ev := range stream.Events() {
		if err := conn.WriteJSON(ev); err != nil {
			slog.Warn("イベントの中継に失敗したのだ", "error", err)
			return
		}
	}
}

// execute は要求されたモードのランナーを起動するのだ。エラーはストリーム側へ流れる。
func (s *Server) execute(ctx context.Context, appCtx *builder.AppContext, req runRequest, stream *event.Stream) {
	switch req.Mode {
	case "music":
		musicRunner, err := builder.BuildMusicRunner(appCtx)
		if err != nil {
			stream.Emit(event.Event{Type: event.TypeError, Message: err.Error()})
			return
		}
		_, _ = musicRunner.Run(ctx, req.Story, req.Lyrics, req.OutputPath, stream)
	case "dialogue", "":
		animateRunner, err := builder.BuildAnimateRunner(appCtx)
		if err != nil {
			stream.Emit(event.Event{Type: event.TypeError, Message: err.Error()})
			return
		}
		_, _ = animateRunner.Run(ctx, req.Story, req.OutputPath, stream)
	default:
		stream.Emit(event.Event{Type: event.TypeError, Message: fmt.Sprintf("未知のモードです: %s", req.Mode)})
	}
}

// setupAppContext はリクエスト単位の入出力コンテキストを構築するのだ。
func (s *Server) setupAppContext(ctx context.Context) (*builder.AppContext, error) {
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

	appCtx := builder.NewAppContext(s.cfg, builder.BuildKitConfig(s.cfg), reader, writer)
	return &appCtx, nil
}

// writeWSError は要求不備をイベントと同じ形で返してから接続を閉じるのだ。
func writeWSError(conn *websocket.Conn, message string) {
	payload, _ := json.Marshal(event.Event{Type: event.TypeError, Message: message})
	_ = conn.WriteMessage(websocket.TextMessage, payload)
}

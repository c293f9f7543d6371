package ws

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/saker-ai/voice-relay/internal/logger"
	"github.com/saker-ai/voice-relay/internal/pipeline"
	"github.com/saker-ai/voice-relay/internal/protocol"
	"github.com/saker-ai/voice-relay/internal/registry"
)

const (
	// frameOverhead leaves room for the JSON fields around base64 audio.
	frameOverhead = 64 * 1024
	// hardLimitFactor bounds how much of an oversized frame is drained before
	// the socket gives up on the client.
	hardLimitFactor = 8
)

var errFrameTooLarge = errors.New("frame exceeds read limit")

// Handler represents a handler.
type Handler struct {
	logger   *zap.Logger
	upgrader websocket.Upgrader
	registry *registry.Registry
	runner   Runner
	source   pipeline.Source
}

// NewHandler creates a Handler. Frame limits follow pipeline.max_audio_bytes
// from source and are re-read for every frame.
func NewHandler(log *zap.Logger, reg *registry.Registry, runner Runner, source pipeline.Source) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		logger:   log,
		registry: reg,
		runner:   runner,
		source:   source,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Handle serves /ws: one final frame per inbound message.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, ModeBasic)
}

// HandleStream serves /ws/stream: progress frames, then the final frame.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, ModeStream)
}

// frameLimit converts the decoded audio limit into a frame size. Zero means
// unlimited.
func (h *Handler) frameLimit() int64 {
	if h.source == nil {
		return 0
	}
	maxAudio := h.source.Current().Pipeline.MaxAudioBytes
	if maxAudio <= 0 {
		return 0
	}
	return int64(maxAudio)*4/3 + frameOverhead
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, mode Mode) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// A dropped client does not abort the message already being processed.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	id := h.registry.Register(conn)
	defer h.registry.Unregister(id)

	log := logger.ForConnection(h.logger, id, string(mode))
	log.Info("ws session opened", zap.String("remote_addr", r.RemoteAddr))

	var notify func(protocol.Envelope)
	if mode == ModeStream {
		notify = func(frame protocol.Envelope) {
			h.registry.Send(id, frame)
		}
	}

	for {
		limit := h.frameLimit()
		conn.SetReadLimit(limit * hardLimitFactor)

		messageType, reader, err := conn.NextReader()
		if err != nil {
			log.Debug("ws connection closed", zap.Error(err))
			break
		}
		data, err := readFrame(reader, limit)
		if errors.Is(err, errFrameTooLarge) {
			log.Info("oversized frame rejected", zap.Int64("limit", limit))
			h.registry.Send(id, protocol.NewError(protocol.ErrorKindValidation, pipeline.ErrAudioTooLarge.Error()))
			continue
		}
		if err != nil {
			log.Debug("ws connection closed", zap.Error(err))
			break
		}
		if messageType != websocket.TextMessage {
			h.registry.Send(id, protocol.NewError(protocol.ErrorKindValidation, "binary frames are not supported"))
			continue
		}

		res := h.run(ctx, log, data, notify)
		if res.SenderID != "" {
			h.registry.BindUser(res.SenderID, id)
		}
		msgLog := logger.ForMessage(log, res.MessageID, res.SenderID)
		msgLog.Debug("ws message done", zap.String("type", res.Frame.Type))
		if err := h.registry.Deliver(id, res.Frame); err != nil {
			err = pipeline.DeliveryFailed(err)
			msgLog.Warn("final frame not delivered",
				zap.Stringer("kind", pipeline.KindOf(err)),
				zap.Error(err),
			)
		}
	}

	log.Info("ws session closed")
}

// run shields the session from a panicking message: the client still gets an
// error frame and the read loop keeps going.
func (h *Handler) run(ctx context.Context, log *zap.Logger, data []byte, notify pipeline.Notify) (res pipeline.Result) {
	defer func() {
		if p := recover(); p != nil {
			log.Error("message processing panicked", zap.Any("panic", p), zap.Stack("stack"))
			res = pipeline.Result{
				Frame: protocol.NewError(protocol.ErrorKindInternal, "internal error"),
				Err:   fmt.Errorf("panic: %v", p),
			}
		}
	}()
	return h.runner.Run(ctx, data, notify)
}

// readFrame reads one message up to limit bytes. A longer message is drained
// and reported as errFrameTooLarge so the connection stays usable.
func readFrame(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) <= limit {
		return data, nil
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return nil, err
	}
	return nil, errFrameTooLarge
}

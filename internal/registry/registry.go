package registry

import (
	"errors"
	"sync"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	applogger "github.com/saker-ai/voice-relay/internal/logger"
)

// TextMessage mirrors websocket.TextMessage so handles need not import gorilla.
const TextMessage = 1

// ErrUnknownConnection is returned when a send targets a connection that is gone.
var ErrUnknownConnection = errors.New("registry: unknown connection")

// Handle is the writable side of a live connection.
type Handle interface {
	WriteMessage(messageType int, data []byte) error
}

type entry struct {
	id     string
	handle Handle
	sendMu sync.Mutex
	userID string
}

// Registry tracks live connections and serializes writes per connection.
type Registry struct {
	logger *zap.Logger

	mu          sync.RWMutex
	connections map[string]*entry
	users       map[string]string
}

// New creates an empty registry.
func New(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		logger:      logger,
		connections: make(map[string]*entry),
		users:       make(map[string]string),
	}
}

// Register stores handle under a fresh connection id.
func (r *Registry) Register(handle Handle) string {
	id := uuid.NewString()
	r.mu.Lock()
	r.connections[id] = &entry{id: id, handle: handle}
	r.mu.Unlock()
	r.logger.Info("connection registered", zap.String(applogger.FieldConnectionID, id))
	return id
}

// Unregister drops the connection and any user mapping that points at it.
// Unknown ids are ignored.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	ent, ok := r.connections[id]
	if ok {
		delete(r.connections, id)
		for user, connID := range r.users {
			if connID == id {
				delete(r.users, user)
			}
		}
	}
	r.mu.Unlock()
	if ok {
		r.logger.Info("connection unregistered",
			zap.String(applogger.FieldConnectionID, id),
			zap.String("user_id", ent.userID),
		)
	}
}

// BindUser records id as the latest connection for userID.
func (r *Registry) BindUser(userID string, id string) {
	if userID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	ent, ok := r.connections[id]
	if !ok {
		return
	}
	ent.userID = userID
	r.users[userID] = id
}

// UserConnection returns the connection bound to userID.
func (r *Registry) UserConnection(userID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.users[userID]
	return id, ok
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}

// Send writes frame and logs a failure instead of returning it; the read loop
// notices a dead connection on its next read.
func (r *Registry) Send(id string, frame any) {
	if err := r.Deliver(id, frame); err != nil {
		r.logger.Warn("ws send failed",
			zap.String(applogger.FieldConnectionID, id),
			zap.Error(err),
		)
	}
}

// Deliver marshals frame and writes it to the connection, serialized with
// every other write to it.
func (r *Registry) Deliver(id string, frame any) error {
	r.mu.RLock()
	ent, ok := r.connections[id]
	r.mu.RUnlock()
	if !ok {
		return ErrUnknownConnection
	}

	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}

	ent.sendMu.Lock()
	defer ent.sendMu.Unlock()
	return ent.handle.WriteMessage(TextMessage, payload)
}

package relayclient

import "github.com/saker-ai/voice-relay/internal/protocol"

// Config describes the relay endpoint and the defaults applied to each message.
type Config struct {
	// URL is the relay websocket endpoint, e.g. ws://host:8000/ws/stream.
	URL        string
	SenderID   string
	SourceLang string
	TargetLang string
}

// Callbacks receive frames from the read loop goroutine.
type Callbacks struct {
	OnProgress     func(frame protocol.Envelope)
	OnTranslation  func(data protocol.TranslationData)
	OnError        func(kind protocol.ErrorKind, message string)
	OnConnected    func()
	OnDisconnected func(err error)
	OnTransportErr func(err error)
}

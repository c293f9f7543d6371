package protocol

// InboundMessage is the frame a client sends for translation.
// At least one of Text or AudioData must be present.
type InboundMessage struct {
	Text       string `json:"text,omitempty" validate:"required_without=AudioData"`
	AudioData  string `json:"audio_data,omitempty" validate:"required_without=Text"`
	SourceLang string `json:"source_lang" validate:"required,max=16"`
	TargetLang string `json:"target_lang" validate:"required,max=16"`
	SenderID   string `json:"sender_id" validate:"required,max=128"`
}

// HasAudio reports whether the message carries audio.
func (m InboundMessage) HasAudio() bool {
	return m.AudioData != ""
}

// Outbound frame types.
const (
	TypeTranslation       = "translation"
	TypeError             = "error"
	TypeProcessingStarted = "processing_started"
	TypeProcessingUpdate  = "processing_update"
	TypeSTTResult         = "stt_result"
	TypeTranslationResult = "translation_result"
)

// ErrorKind classifies error frames.
type ErrorKind string

const (
	ErrorKindValidation  ErrorKind = "validation"
	ErrorKindSTT         ErrorKind = "stt"
	ErrorKindTranslation ErrorKind = "translation"
	ErrorKindInternal    ErrorKind = "internal"
)

// TranslationData is the payload of a translation frame.
type TranslationData struct {
	OriginalText   string  `json:"original_text"`
	TranslatedText string  `json:"translated_text"`
	AudioURL       *string `json:"audio_url"`
	MessageID      string  `json:"message_id"`
}

// Envelope is any outbound frame.
type Envelope struct {
	Type       string           `json:"type"`
	Data       *TranslationData `json:"data,omitempty"`
	Kind       ErrorKind        `json:"kind,omitempty"`
	Message    string           `json:"message,omitempty"`
	MessageID  string           `json:"message_id,omitempty"`
	Stage      string           `json:"stage,omitempty"`
	Text       string           `json:"text,omitempty"`
	Original   string           `json:"original_text,omitempty"`
	Translated string           `json:"translated_text,omitempty"`
}

// NewTranslation builds the final success frame. An empty audioURL is sent as null.
func NewTranslation(messageID, original, translated, audioURL string) Envelope {
	data := &TranslationData{
		OriginalText:   original,
		TranslatedText: translated,
		MessageID:      messageID,
	}
	if audioURL != "" {
		data.AudioURL = &audioURL
	}
	return Envelope{Type: TypeTranslation, Data: data}
}

// NewError builds an error frame.
func NewError(kind ErrorKind, message string) Envelope {
	return Envelope{Type: TypeError, Kind: kind, Message: message}
}

// NewProgress builds a streaming progress frame.
func NewProgress(frameType string, messageID string) Envelope {
	return Envelope{Type: frameType, MessageID: messageID}
}

// IsFinal reports whether the frame terminates a message.
func (e Envelope) IsFinal() bool {
	return e.Type == TypeTranslation || e.Type == TypeError
}

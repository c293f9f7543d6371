package protocol

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

// ErrNoContent is returned when a message has neither text nor audio.
var ErrNoContent = errors.New("no text or audio data provided")

// FieldError describes one rejected field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned by Decode for malformed or incomplete frames.
type ValidationError struct {
	Fields []FieldError
	Err    error
}

func (e *ValidationError) Error() string {
	if errors.Is(e.Err, ErrNoContent) {
		return ErrNoContent.Error()
	}
	if len(e.Fields) == 0 {
		return fmt.Sprintf("invalid message format: %v", e.Err)
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return "invalid message format: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Decode parses and validates an inbound frame.
func Decode(raw []byte) (InboundMessage, error) {
	var msg InboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return InboundMessage{}, &ValidationError{Err: err}
	}
	msg.Text = strings.TrimSpace(msg.Text)
	msg.AudioData = strings.TrimSpace(msg.AudioData)
	msg.SourceLang = strings.TrimSpace(msg.SourceLang)
	msg.TargetLang = strings.TrimSpace(msg.TargetLang)
	msg.SenderID = strings.TrimSpace(msg.SenderID)

	if err := Validate(msg); err != nil {
		return InboundMessage{}, err
	}
	return msg, nil
}

// Validate checks an InboundMessage against its struct tags.
func Validate(msg InboundMessage) error {
	if msg.Text == "" && msg.AudioData == "" {
		return &ValidationError{Err: ErrNoContent}
	}
	err := getValidator().Struct(msg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationError{Err: err}
	}
	fields := make([]FieldError, 0, len(verrs))
	for _, e := range verrs {
		fields = append(fields, FieldError{Field: e.Field(), Message: describe(e)})
	}
	return &ValidationError{Fields: fields, Err: err}
}

func describe(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "required_without":
		return "is required when " + wireName(e.Param()) + " is absent"
	case "max":
		return "must be at most " + e.Param() + " characters"
	default:
		return "is invalid"
	}
}

func wireName(field string) string {
	if f, ok := reflect.TypeOf(InboundMessage{}).FieldByName(field); ok {
		if name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]; name != "" {
			return name
		}
	}
	return field
}

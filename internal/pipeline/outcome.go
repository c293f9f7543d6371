package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies how a stage ended.
type Kind int

const (
	Success Kind = iota
	// SoftFailure lets processing continue in a degraded form.
	SoftFailure
	// HardFailure terminates the message with an error event.
	HardFailure
	// ValidationError rejects the message before any provider is called.
	ValidationError
	// TransportFailure means the final frame could not be delivered.
	TransportFailure
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case SoftFailure:
		return "soft_failure"
	case HardFailure:
		return "hard_failure"
	case ValidationError:
		return "validation_error"
	case TransportFailure:
		return "transport_failure"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Stage names used in StageError and progress frames.
const (
	StageValidate   = "validate"
	StageTranscribe = "transcribe"
	StageTranslate  = "translate"
	StageSynthesize = "synthesize"
	StageDeliver    = "deliver"
)

var (
	// ErrEmptyTranscript is returned when a recognizer hears nothing.
	ErrEmptyTranscript = errors.New("empty transcript")
	// ErrInvalidAudio is returned when audio_data does not decode.
	ErrInvalidAudio = errors.New("invalid audio data format")
	// ErrAudioTooLarge is returned when decoded audio exceeds the configured limit.
	ErrAudioTooLarge = errors.New("audio data too large")
)

// StageError ties a failure to the stage that produced it.
type StageError struct {
	Stage string
	Kind  Kind
	Err   error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return e.Stage + ": " + e.Kind.String()
	}
	return e.Stage + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Outcome is the result of one stage.
type Outcome[T any] struct {
	Kind  Kind
	Value T
	Err   error
}

// OK reports whether the stage succeeded.
func (o Outcome[T]) OK() bool {
	return o.Kind == Success
}

func succeed[T any](value T) Outcome[T] {
	return Outcome[T]{Kind: Success, Value: value}
}

func fail[T any](stage string, kind Kind, err error) Outcome[T] {
	return Outcome[T]{Kind: kind, Err: &StageError{Stage: stage, Kind: kind, Err: err}}
}

// escalate ends a stage whose every attempt failed softly. The causes of all
// attempts are kept.
func escalate[T any](attempts ...Outcome[T]) Outcome[T] {
	stage := ""
	causes := make([]error, 0, len(attempts))
	for _, attempt := range attempts {
		var stageErr *StageError
		if errors.As(attempt.Err, &stageErr) {
			stage = stageErr.Stage
			causes = append(causes, stageErr.Err)
			continue
		}
		causes = append(causes, attempt.Err)
	}
	return fail[T](stage, HardFailure, errors.Join(causes...))
}

// DeliveryFailed classifies an error writing the final frame to the client.
func DeliveryFailed(err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: StageDeliver, Kind: TransportFailure, Err: err}
}

// KindOf extracts the Kind carried by err, or HardFailure for foreign errors.
func KindOf(err error) Kind {
	if err == nil {
		return Success
	}
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Kind
	}
	return HardFailure
}

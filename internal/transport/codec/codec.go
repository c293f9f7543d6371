package codec

import (
	"encoding/base64"
	"errors"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	dataURIPrefix = "data:"
	base64Marker  = ";base64,"

	// DefaultAudioType is used when neither the provider nor sniffing yields a type.
	DefaultAudioType = "audio/mpeg"
)

var (
	// ErrEmptyPayload indicates a payload that decodes to zero bytes.
	ErrEmptyPayload = errors.New("codec: empty payload")
	// ErrInvalidDataURI indicates a data URI without a base64 section.
	ErrInvalidDataURI = errors.New("codec: invalid data uri")
)

// DecodeAudio decodes a base64 audio field. A data URI wrapper is accepted and stripped.
func DecodeAudio(field string) ([]byte, error) {
	field = strings.TrimSpace(field)
	if strings.HasPrefix(field, dataURIPrefix) {
		_, payload, err := ParseDataURI(field)
		return payload, err
	}
	return decodeBase64(field)
}

// EncodeAudio returns the standard base64 form of audio.
func EncodeAudio(audio []byte) string {
	return base64.StdEncoding.EncodeToString(audio)
}

// DataURI packs audio into a self-contained data:<mime>;base64,<payload> URI.
// An empty or generic content type is replaced by the sniffed type.
func DataURI(audio []byte, contentType string) string {
	if len(audio) == 0 {
		return ""
	}
	contentType = ResolveContentType(audio, contentType)
	return dataURIPrefix + contentType + base64Marker + EncodeAudio(audio)
}

// ParseDataURI splits a base64 data URI into content type and payload.
func ParseDataURI(uri string) (string, []byte, error) {
	if !strings.HasPrefix(uri, dataURIPrefix) {
		return "", nil, ErrInvalidDataURI
	}
	idx := strings.Index(uri, base64Marker)
	if idx < 0 {
		return "", nil, ErrInvalidDataURI
	}
	contentType := uri[len(dataURIPrefix):idx]
	payload, err := decodeBase64(uri[idx+len(base64Marker):])
	if err != nil {
		return "", nil, err
	}
	return contentType, payload, nil
}

// ResolveContentType keeps a specific provider type and sniffs otherwise.
func ResolveContentType(audio []byte, contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType != "" && contentType != "application/octet-stream" {
		return contentType
	}
	if sniffed := SniffContentType(audio); sniffed != "" {
		return sniffed
	}
	return DefaultAudioType
}

// SniffContentType detects the media type of audio. It returns "" for unknown data.
func SniffContentType(audio []byte) string {
	if len(audio) == 0 {
		return ""
	}
	mt := mimetype.Detect(audio)
	if mt == nil || mt.Is("application/octet-stream") || mt.Is("text/plain") {
		return ""
	}
	// Strip parameters such as charset.
	value := mt.String()
	if i := strings.IndexByte(value, ';'); i >= 0 {
		value = value[:i]
	}
	return value
}

// FileExtension returns the extension for the sniffed audio type, or fallback.
func FileExtension(audio []byte, fallback string) string {
	if len(audio) == 0 {
		return fallback
	}
	mt := mimetype.Detect(audio)
	if mt == nil || mt.Is("application/octet-stream") || mt.Extension() == "" {
		return fallback
	}
	return mt.Extension()
}

func decodeBase64(field string) ([]byte, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return nil, ErrEmptyPayload
	}
	out, err := base64.StdEncoding.DecodeString(field)
	if err != nil {
		// Clients that strip padding are tolerated.
		if raw, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(field, "=")); rawErr == nil {
			out, err = raw, nil
		}
	}
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrEmptyPayload
	}
	return out, nil
}

package stt

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"

	"github.com/saker-ai/voice-relay/internal/transport/codec"
)

type formField struct {
	name  string
	value string
}

// buildForm writes the audio part under fileField plus plain fields.
func buildForm(fileField string, audio []byte, fields ...formField) (*bytes.Buffer, string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	contentType := codec.SniffContentType(audio)
	if contentType == "" {
		contentType = "audio/webm"
	}
	filename := "audio" + codec.FileExtension(audio, ".webm")

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fileField, filename))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", fmt.Errorf("write audio data: %w", err)
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := writer.WriteField(f.name, f.value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", f.name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &body, writer.FormDataContentType(), nil
}

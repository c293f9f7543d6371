package protocol

import (
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func TestDecodeTextMessage(t *testing.T) {
	msg, err := Decode([]byte(`{"text":" hello ","source_lang":"en","target_lang":"es","sender_id":"u1"}`))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if msg.Text != "hello" {
		t.Fatalf("text=%q, want hello", msg.Text)
	}
	if msg.HasAudio() {
		t.Fatal("HasAudio=true, want false")
	}
}

func TestDecodeRejects(t *testing.T) {
	cases := []struct {
		name  string
		raw   string
		field string
	}{
		{name: "malformed json", raw: `{"text":`},
		{name: "no content", raw: `{"source_lang":"en","target_lang":"es","sender_id":"u1"}`},
		{name: "blank text", raw: `{"text":"   ","source_lang":"en","target_lang":"es","sender_id":"u1"}`},
		{name: "missing source", raw: `{"text":"hi","target_lang":"es","sender_id":"u1"}`, field: "source_lang"},
		{name: "missing target", raw: `{"text":"hi","source_lang":"en","sender_id":"u1"}`, field: "target_lang"},
		{name: "missing sender", raw: `{"text":"hi","source_lang":"en","target_lang":"es"}`, field: "sender_id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.raw))
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Decode err=%v, want *ValidationError", err)
			}
			if tc.field != "" && !strings.Contains(verr.Error(), tc.field) {
				t.Fatalf("error=%q, want mention of %s", verr.Error(), tc.field)
			}
		})
	}
}

func TestDecodeNoContentMessage(t *testing.T) {
	_, err := Decode([]byte(`{"source_lang":"en","target_lang":"es","sender_id":"u1"}`))
	if !errors.Is(err, ErrNoContent) {
		t.Fatalf("err=%v, want ErrNoContent", err)
	}
	if err.Error() != "no text or audio data provided" {
		t.Fatalf("message=%q", err.Error())
	}
}

func TestNewTranslationNullAudio(t *testing.T) {
	raw, err := json.Marshal(NewTranslation("m1", "hello", "hola", ""))
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if decoded["type"] != "translation" {
		t.Fatalf("type=%v, want translation", decoded["type"])
	}
	data, ok := decoded["data"].(map[string]any)
	if !ok {
		t.Fatalf("data=%T, want object", decoded["data"])
	}
	if v, present := data["audio_url"]; !present || v != nil {
		t.Fatalf("audio_url=%v present=%v, want null", v, present)
	}
	if data["original_text"] != "hello" || data["translated_text"] != "hola" || data["message_id"] != "m1" {
		t.Fatalf("data=%v", data)
	}
}

func TestNewErrorFrame(t *testing.T) {
	raw, err := json.Marshal(NewError(ErrorKindTranslation, "translation failed"))
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	want := `{"type":"error","kind":"translation","message":"translation failed"}`
	if string(raw) != want {
		t.Fatalf("frame=%s, want %s", raw, want)
	}
	if !NewError(ErrorKindInternal, "x").IsFinal() {
		t.Fatal("error frame IsFinal=false, want true")
	}
	if NewProgress(TypeProcessingStarted, "m1").IsFinal() {
		t.Fatal("progress frame IsFinal=true, want false")
	}
}

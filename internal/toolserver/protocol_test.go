package toolserver

import (
	"bytes"
	"io"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte(`{"tool":"read_tree"}`)
	if err := writeMessage(&buf, payload); err != nil {
		t.Fatalf("writeMessage: %v", err)
	}

	fr := newFrameReader(&buf)
	got, err := fr.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("ReadMessage = %q, want %q", got, payload)
	}
}

func TestFrameReader_MultipleMessages(t *testing.T) {
	var buf bytes.Buffer
	writeMessage(&buf, []byte(`{"tool":"a"}`))
	writeMessage(&buf, []byte(`{"tool":"b"}`))

	fr := newFrameReader(&buf)
	first, err := fr.ReadMessage()
	if err != nil {
		t.Fatalf("first ReadMessage: %v", err)
	}
	second, err := fr.ReadMessage()
	if err != nil {
		t.Fatalf("second ReadMessage: %v", err)
	}
	if string(first) != `{"tool":"a"}` || string(second) != `{"tool":"b"}` {
		t.Fatalf("unexpected messages: %q, %q", first, second)
	}
	if _, err := fr.ReadMessage(); err != io.EOF {
		t.Fatalf("expected EOF after last message, got %v", err)
	}
}

func TestFrameReader_MissingContentLength(t *testing.T) {
	fr := newFrameReader(bytes.NewBufferString("X-Other: 1\r\n\r\nbody"))
	if _, err := fr.ReadMessage(); err == nil {
		t.Fatal("expected error for missing Content-Length header")
	}
}

package protocol

import (
	"bytes"
	"strings"
	"testing"
)

func TestWriteReadMessageRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	msg := ClientMessage{Kind: ClientKey, Code: KeyCode{Char: 'x'}, Modifiers: ModCtrl}
	if err := WriteMessage(&buf, msg); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}

	var got ClientMessage
	if err := ReadMessage(&buf, &got); err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	if got.Kind != ClientKey || got.Code.Char != 'x' || got.Modifiers != ModCtrl {
		t.Fatalf("got %+v", got)
	}
}

func TestReadMessageRejectsOversizedFrame(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, bytes.Repeat([]byte{0}, 8)); err != nil {
		t.Fatal(err)
	}
	raw := buf.Bytes()
	raw[0] = 0xff // inflate the advertised length past MaxMessageBytes
	raw[1] = 0xff
	raw[2] = 0xff
	raw[3] = 0xff

	var got ClientMessage
	err := ReadMessage(bytes.NewReader(raw), &got)
	if err == nil {
		t.Fatal("expected error for oversized frame")
	}
	if !strings.Contains(err.Error(), "exceeds") {
		t.Fatalf("got error %v", err)
	}
}

func TestWriteMessageRejectsOversizedPayload(t *testing.T) {
	msg := ServerMessage{Kind: ServerPaneOutput, Data: bytes.Repeat([]byte{1}, MaxMessageBytes+1)}
	var buf bytes.Buffer
	if err := WriteMessage(&buf, msg); err == nil {
		t.Fatal("expected error for oversized payload")
	}
}

func TestMultipleFramesSequentially(t *testing.T) {
	var buf bytes.Buffer
	want := []ServerMessage{
		{Kind: ServerAttached, ClientID: 1},
		{Kind: ServerSessionEnded},
	}
	for _, m := range want {
		if err := WriteMessage(&buf, m); err != nil {
			t.Fatal(err)
		}
	}
	for _, w := range want {
		var got ServerMessage
		if err := ReadMessage(&buf, &got); err != nil {
			t.Fatal(err)
		}
		if got.Kind != w.Kind || got.ClientID != w.ClientID {
			t.Fatalf("got %+v want %+v", got, w)
		}
	}
}

func TestReadFrameShortReadIsError(t *testing.T) {
	if _, err := ReadFrame(bytes.NewReader([]byte{0, 0, 0})); err == nil {
		t.Fatal("expected error for truncated length prefix")
	}
}

package protocol

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// MaxMessageBytes bounds a single framed message. A length prefix claiming
// more than this terminates the connection rather than allocating.
const MaxMessageBytes = 16 * 1024 * 1024

// WriteMessage frames v as a 4-byte big-endian length prefix followed by
// its JSON encoding, and writes it to w in a single Write call.
func WriteMessage(w io.Writer, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("protocol: encode message: %w", err)
	}
	if len(payload) > MaxMessageBytes {
		return fmt.Errorf("protocol: message of %d bytes exceeds %d byte limit", len(payload), MaxMessageBytes)
	}
	framed := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(framed, uint32(len(payload)))
	copy(framed[4:], payload)
	_, err = w.Write(framed)
	return err
}

// ReadMessage reads one length-prefixed frame from r and unmarshals it into
// v. It returns an error (never panics) when the advertised length exceeds
// MaxMessageBytes; the caller must close the connection in that case, since
// the peer's framing is now desynchronized.
func ReadMessage(r io.Reader, v any) error {
	payload, err := ReadFrame(r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("protocol: decode message: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed frame from r and returns its raw
// payload bytes without decoding them.
func ReadFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > MaxMessageBytes {
		return nil, fmt.Errorf("protocol: frame length %d exceeds %d byte limit", n, MaxMessageBytes)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// WriteFrame writes a single length-prefixed frame carrying the given raw
// payload bytes, without JSON-encoding them. Used when the daemon is
// relaying already-marshaled bytes (e.g. replaying a cached PaneOutput).
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxMessageBytes {
		return fmt.Errorf("protocol: frame of %d bytes exceeds %d byte limit", len(payload), MaxMessageBytes)
	}
	framed := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(framed, uint32(len(payload)))
	copy(framed[4:], payload)
	_, err := w.Write(framed)
	return err
}

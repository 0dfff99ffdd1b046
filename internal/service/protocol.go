package service

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// maxMessageBytes bounds a single request/response frame, guarding
// against a misbehaving client declaring an enormous length prefix.
const maxMessageBytes = 16 << 20

// Envelope is one request message: method plus opaque, method-specific
// params.
type Envelope struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// Response is one reply message: exactly one of Result or Err is set.
type Response struct {
	Result json.RawMessage `json:"result,omitempty"`
	Err    *Error          `json:"error,omitempty"`
}

// readFrame reads one u32-length-prefixed JSON message from r.
func readFrame(r io.Reader, v interface{}) error {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > maxMessageBytes {
		return fmt.Errorf("service: frame of %d bytes exceeds %d byte limit", n, maxMessageBytes)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

// writeFrame writes v as one u32-length-prefixed JSON message to w.
func writeFrame(w io.Writer, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if len(body) > maxMessageBytes {
		return fmt.Errorf("service: response of %d bytes exceeds %d byte limit", len(body), maxMessageBytes)
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}

package cortexd_test

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"time"
)

// wireError mirrors internal/service.Error's JSON shape. Deliberately
// reimplemented rather than imported: the suite talks to cortexd as an
// external black-box client over the real wire protocol, the same way a
// non-Go caller would.
type wireError struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	Remediation string `json:"remediation,omitempty"`
}

func (e *wireError) Error() string { return e.Code + ": " + e.Message }

type wireEnvelope struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

type wireResponse struct {
	Result json.RawMessage `json:"result,omitempty"`
	Err    *wireError      `json:"error,omitempty"`
}

// client is a minimal black-box client for cortexd's length-delimited
// JSON protocol (spec.md §6): one u32 big-endian byte count followed by
// that many bytes of JSON, per message, in both directions.
type client struct {
	conn net.Conn
}

func dial(socketPath string) (*client, error) {
	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		return nil, err
	}
	return &client{conn: conn}, nil
}

func (c *client) Close() error { return c.conn.Close() }

func (c *client) call(method string, params interface{}, out interface{}) error {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return err
	}
	env := wireEnvelope{Method: method, Params: paramsJSON}
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))
	if _, err := c.conn.Write(lenBuf[:]); err != nil {
		return err
	}
	if _, err := c.conn.Write(body); err != nil {
		return err
	}

	if _, err := io.ReadFull(c.conn, lenBuf[:]); err != nil {
		return err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	respBody := make([]byte, n)
	if _, err := io.ReadFull(c.conn, respBody); err != nil {
		return err
	}

	var resp wireResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if resp.Err != nil {
		return resp.Err
	}
	if out != nil {
		return json.Unmarshal(resp.Result, out)
	}
	return nil
}

package wsgate

import (
	"bufio"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

// Key-acceptance GUID from RFC 6455 §1.3.
const magicGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// acceptKey computes the Sec-WebSocket-Accept value for a challenge key.
func acceptKey(key string) string {
	h := sha1.New()
	h.Write([]byte(key))
	h.Write([]byte(magicGUID))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// generateKey returns a fresh random 16-byte challenge key, base64-encoded.
func generateKey() string {
	var raw [16]byte
	_, _ = rand.Read(raw[:])
	return base64.StdEncoding.EncodeToString(raw[:])
}

// clientHandshake holds the state the client side needs to build its upgrade
// request and validate the server's reply.
type clientHandshake struct {
	host string
	path string // request target, including any query string
	key  string
}

func newClientHandshake(host, path string) *clientHandshake {
	return &clientHandshake{host: host, path: path, key: generateKey()}
}

func (h *clientHandshake) request() []byte {
	var b strings.Builder
	b.WriteString("GET " + h.path + " HTTP/1.1\r\n")
	b.WriteString("Host: " + h.host + "\r\n")
	b.WriteString("Upgrade: websocket\r\n")
	b.WriteString("Connection: Upgrade\r\n")
	b.WriteString("Sec-WebSocket-Version: 13\r\n")
	b.WriteString("Sec-WebSocket-Key: " + h.key + "\r\n\r\n")
	return []byte(b.String())
}

// validateResponse checks the server's reply against the challenge key.
// Extension and subprotocol negotiation is rejected: this implementation
// offers neither, so a server accepting one is misbehaving.
func (h *clientHandshake) validateResponse(resp *http.Response) error {
	if resp.StatusCode != http.StatusSwitchingProtocols {
		return fmt.Errorf("%w: unexpected status %q", ErrInvalidHandshake, resp.Status)
	}
	if !headerContainsToken(resp.Header, "Upgrade", "websocket") {
		return fmt.Errorf("%w: missing websocket upgrade", ErrInvalidHandshake)
	}
	if !headerContainsToken(resp.Header, "Connection", "upgrade") {
		return fmt.Errorf("%w: missing connection upgrade", ErrInvalidHandshake)
	}
	if resp.Header.Get("Sec-Websocket-Accept") != acceptKey(h.key) {
		return fmt.Errorf("%w: Sec-WebSocket-Accept mismatch", ErrInvalidHandshake)
	}
	if resp.Header.Get("Sec-Websocket-Extensions") != "" ||
		resp.Header.Get("Sec-Websocket-Protocol") != "" {
		return fmt.Errorf("%w: unsupported extension or subprotocol negotiation", ErrInvalidHandshake)
	}
	return nil
}

// serverHandshake holds the peer's challenge key after a valid upgrade
// request has been read.
type serverHandshake struct {
	key string
}

// readClientHandshake parses and validates an opening request from br.
func readClientHandshake(br *bufio.Reader) (*serverHandshake, error) {
	req, err := http.ReadRequest(br)
	if err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	if req.Method != http.MethodGet {
		return nil, fmt.Errorf("%w: method %s", ErrInvalidHandshake, req.Method)
	}
	if req.URL.Path != "/" {
		return nil, fmt.Errorf("%w: unknown path %q", ErrInvalidHandshake, req.URL.Path)
	}
	if req.Host == "" {
		return nil, fmt.Errorf("%w: missing Host header", ErrInvalidHandshake)
	}
	if !headerContainsToken(req.Header, "Upgrade", "websocket") {
		return nil, fmt.Errorf("%w: missing websocket upgrade", ErrInvalidHandshake)
	}
	if !headerContainsToken(req.Header, "Connection", "upgrade") {
		return nil, fmt.Errorf("%w: missing connection upgrade", ErrInvalidHandshake)
	}
	if req.Header.Get("Sec-Websocket-Version") != "13" {
		return nil, fmt.Errorf("%w: unsupported version %q", ErrInvalidHandshake, req.Header.Get("Sec-Websocket-Version"))
	}
	key := req.Header.Get("Sec-Websocket-Key")
	raw, err := base64.StdEncoding.DecodeString(key)
	if err != nil || len(raw) != 16 {
		return nil, fmt.Errorf("%w: malformed Sec-WebSocket-Key", ErrInvalidHandshake)
	}
	return &serverHandshake{key: key}, nil
}

func (h *serverHandshake) response() []byte {
	return []byte("HTTP/1.1 101 Switching Protocols\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Accept: " + acceptKey(h.key) + "\r\n\r\n")
}

// headerContainsToken reports whether a comma-separated header value
// contains the given token, case-insensitively.
func headerContainsToken(h http.Header, name, token string) bool {
	for _, v := range h.Values(name) {
		for _, part := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(part), token) {
				return true
			}
		}
	}
	return false
}

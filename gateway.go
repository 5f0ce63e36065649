package wsgate

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
)

// Accept performs the server side of the opening handshake on an accepted
// TCP connection. On a malformed or invalid upgrade request the peer gets a
// 400 and the connection is closed.
func Accept(nc net.Conn) (*Conn, error) {
	br := bufio.NewReader(nc)
	bw := bufio.NewWriter(nc)

	hs, err := readClientHandshake(br)
	if err != nil {
		nc.Write([]byte("HTTP/1.1 400 Bad Request\r\n\r\n"))
		nc.Close()
		return nil, err
	}
	if _, err := nc.Write(hs.response()); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to write handshake response: %w", err)
	}

	return newConn(nc, br, bw, roleServer), nil
}

// Dial connects to a plain-TCP WebSocket endpoint ("ws" scheme only) and
// performs the client side of the opening handshake.
func Dial(ctx context.Context, rawURL string) (*Conn, error) {
	host, path, err := splitWSURL(rawURL)
	if err != nil {
		return nil, err
	}

	var d net.Dialer
	nc, err := d.DialContext(ctx, "tcp", host)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", host, err)
	}

	hs := newClientHandshake(host, path)
	if _, err := nc.Write(hs.request()); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to write handshake request: %w", err)
	}

	br := bufio.NewReader(nc)
	resp, err := http.ReadResponse(br, nil)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if err := hs.validateResponse(resp); err != nil {
		nc.Close()
		return nil, err
	}

	return newConn(nc, br, bufio.NewWriter(nc), roleClient), nil
}

// splitWSURL breaks a ws:// URL into a dialable host:port and a request
// target (path plus query).
func splitWSURL(rawURL string) (host, path string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", "", fmt.Errorf("invalid WebSocket URL %q", rawURL)
	}
	if u.Scheme != "ws" {
		return "", "", fmt.Errorf("unsupported scheme %q (only ws is supported)", u.Scheme)
	}
	host = u.Host
	if u.Port() == "" {
		host = net.JoinHostPort(u.Hostname(), "80")
	}
	path = u.RequestURI()
	if path == "" {
		path = "/"
	}
	return host, path, nil
}

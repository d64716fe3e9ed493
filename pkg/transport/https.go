package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	TLS12 = tls.VersionTLS12
	TLS13 = tls.VersionTLS13
)

// DefaultMaxResponseBytes bounds the size of a response body. A larger body
// fails the exchange.
const DefaultMaxResponseBytes = 10 << 20

// UserAgent is sent with every request.
const UserAgent = "go-bluem/1.0"

var RecommendedTLS12CipherSuites = []uint16{
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
}

// ErrRequestFailed wraps every failure to obtain a response.
var ErrRequestFailed = errors.New("http request failed")

// Config holds TLS and timeout settings shared by Client and Server.
type Config struct {
	MinTLSVersion    uint16
	MaxTLSVersion    uint16
	CipherSuites     []uint16
	Certificates     []tls.Certificate
	RootCAs          *x509.CertPool
	Timeout          time.Duration
	IdleConnTimeout  time.Duration
	MaxResponseBytes int64
}

func DefaultConfig() *Config {
	return &Config{
		MinTLSVersion:    TLS12,
		MaxTLSVersion:    TLS13,
		CipherSuites:     RecommendedTLS12CipherSuites,
		Timeout:          30 * time.Second,
		IdleConnTimeout:  90 * time.Second,
		MaxResponseBytes: DefaultMaxResponseBytes,
	}
}

func (c *Config) tlsConfig() *tls.Config {
	return &tls.Config{
		MinVersion:   c.MinTLSVersion,
		MaxVersion:   c.MaxTLSVersion,
		CipherSuites: c.CipherSuites,
		Certificates: c.Certificates,
		RootCAs:      c.RootCAs,
	}
}

// Response is a provider reply as received on the wire.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client posts requests to the provider.
type Client struct {
	client   *http.Client
	maxBytes int64
}

// NewClient creates a client with its own connection pool. A nil config
// uses DefaultConfig.
func NewClient(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		TLSClientConfig:     config.tlsConfig(),
		IdleConnTimeout:     config.IdleConnTimeout,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
	}

	return &Client{
		client:   &http.Client{Transport: transport, Timeout: config.Timeout},
		maxBytes: maxBytes(config.MaxResponseBytes),
	}
}

// NewClientFrom wraps an existing http.Client, for example one from
// httptest or with custom instrumentation.
func NewClientFrom(hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{client: hc, maxBytes: DefaultMaxResponseBytes}
}

func maxBytes(n int64) int64 {
	if n <= 0 {
		return DefaultMaxResponseBytes
	}
	return n
}

// Send posts body to url with the given headers. Any status code is a
// successful exchange.
func (c *Client) Send(ctx context.Context, url string, body []byte, header http.Header) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %w", ErrRequestFailed, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", UserAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", ErrRequestFailed, err)
	}
	if int64(len(data)) > c.maxBytes {
		return nil, fmt.Errorf("%w: response body exceeds %d bytes", ErrRequestFailed, c.maxBytes)
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// Server exposes an http.Handler, over TLS when certificates are configured.
type Server struct {
	server *http.Server
	config *Config
}

func NewServer(addr string, handler http.Handler, config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}

	return &Server{
		config: config,
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			TLSConfig:         config.tlsConfig(),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       config.Timeout,
			WriteTimeout:      config.Timeout,
			IdleTimeout:       config.IdleConnTimeout,
		},
	}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.server.Addr }

// TLS reports whether the server terminates TLS itself.
func (s *Server) TLS() bool { return len(s.config.Certificates) > 0 }

// Start blocks serving requests until Shutdown is called, after which it
// returns nil.
func (s *Server) Start() error {
	var err error
	if s.TLS() {
		err = s.server.ListenAndServeTLS("", "")
	} else {
		err = s.server.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

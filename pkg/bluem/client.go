package bluem

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirosfoundation/go-bluem/pkg/config"
	"github.com/sirosfoundation/go-bluem/pkg/registry"
	"github.com/sirosfoundation/go-bluem/pkg/request"
	"github.com/sirosfoundation/go-bluem/pkg/response"
	"github.com/sirosfoundation/go-bluem/pkg/transport"
	"github.com/sirosfoundation/go-bluem/pkg/xsd"
)

// ErrNoConfig is returned by New when no configuration is given.
var ErrNoConfig = errors.New("no configuration")

// Client talks to the provider on behalf of one integration. It is safe for
// concurrent use.
type Client struct {
	cfg     *config.Config
	reg     *registry.Registry
	builder *request.Builder
	schemas *xsd.Validator
	http    *transport.Client
	logger  *slog.Logger
	now     func() time.Time

	schemaFS fs.FS
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient sends requests through hc instead of a dedicated pool.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = transport.NewClientFrom(hc) }
}

// WithTransport sends requests through t.
func WithTransport(t *transport.Client) Option {
	return func(c *Client) { c.http = t }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithClock replaces time.Now for identifiers and request timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithSchemas loads interface schemas from fsys instead of the bundled set.
func WithSchemas(fsys fs.FS) Option {
	return func(c *Client) { c.schemaFS = fsys }
}

func WithRegistry(reg *registry.Registry) Option {
	return func(c *Client) { c.reg = reg }
}

// New returns a Client for cfg. Every family schema is loaded up front so a
// missing or broken schema is reported here instead of on first use.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, configError("new", ErrNoConfig)
	}

	c := &Client{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.reg == nil {
		c.reg = registry.New(cfg.LocalInstrumentCode())
	}
	if c.http == nil {
		tc := transport.DefaultConfig()
		tc.Timeout = cfg.Timeout()
		c.http = transport.NewClient(tc)
	}
	c.schemas = xsd.NewValidator(c.schemaFS)
	c.builder = request.NewBuilder(cfg, c.reg, c.now)

	for _, f := range registry.Families() {
		ctx, err := c.reg.Context(f)
		if err != nil {
			return nil, configError("new", err)
		}
		if _, err := c.schemas.Schema(ctx.Schema()); err != nil {
			return nil, configError("loading schema", err)
		}
	}

	return c, nil
}

func (c *Client) Config() *config.Config { return c.cfg }

func (c *Client) Registry() *registry.Registry { return c.reg }

// Perform validates req, sends it and classifies the reply. The returned
// error is always a *ConfigurationError; every other failure is reported as
// a *response.Error in the Response.
func (c *Client) Perform(ctx context.Context, req request.Request) (response.Response, error) {
	code := req.TransactionCode()
	log := c.logger.With(
		slog.String("code", string(code)),
		slog.String("entrance_code", req.EntranceCode()),
	)

	// Built
	body, err := req.XML()
	if err != nil {
		return nil, configError("rendering request", err)
	}

	// Validated
	res, err := c.schemas.Validate(req.Context().Schema(), req.Context().Family().String(), body)
	if err != nil {
		return nil, configError("validating request", err)
	}
	if !res.Valid() {
		log.Warn("request failed schema validation", "errors", len(res.Errors))
		return response.FromValidation(res), nil
	}

	// Sent
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout())
	defer cancel()

	now := c.now()
	log.Debug("sending request", "path", req.Path())
	reply, err := c.http.Send(ctx, c.requestURL(req), body, c.headers(code, now))
	if err != nil {
		log.Error("request failed", "error", err)
		return response.FromTransportError(err), nil
	}

	// Classified
	out, err := response.Classify(code, reply.StatusCode, reply.Body)
	if err != nil {
		return nil, configError("classifying response", err)
	}
	if !out.Status() {
		log.Warn("request unsuccessful", "status", reply.StatusCode, "message", out.ErrorMessage())
	} else {
		log.Info("request completed", "status", reply.StatusCode)
	}
	return out, nil
}

// requestURL joins the base URL, the family path and the access token.
func (c *Client) requestURL(req request.Request) string {
	q := url.Values{}
	q.Set("token", c.cfg.AccessToken())
	return strings.TrimRight(c.cfg.BaseURL(), "/") + "/" + req.Path() + "?" + q.Encode()
}

func (c *Client) headers(code registry.TransactionCode, now time.Time) http.Header {
	now = now.UTC()
	h := http.Header{}
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Content-Type", "application/xml; type="+string(code)+"; charset=UTF-8")
	h.Set("x-ttrs-date", now.Format(http.TimeFormat))
	h.Set("x-ttrs-files-count", "1")
	h.Set("x-ttrs-filename", string(code)+"-"+c.cfg.SenderID()+"-BSP1-"+now.Format("20060102150405")+"000.xml")
	return h
}

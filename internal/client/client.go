// Package client is the entry point application code uses in place of the
// remote backend client: table builders, auth, RPC and storage.
package client

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/maruel/portalemu/internal/config"
	"github.com/maruel/portalemu/internal/query"
)

// Procedure computes the result of a named RPC.
//
// A returned error is reported in the envelope, never to the caller of RPC.
type Procedure func(ctx context.Context, c *Client, params map[string]any) (any, error)

// Client bundles the emulated services over one collection store.
type Client struct {
	src     query.Source
	tracer  query.Tracer
	auth    *Auth
	storage *Storage

	mu    sync.RWMutex
	procs map[string]Procedure
}

// Option configures a Client.
type Option func(*Client)

// WithTracer reports every builder execution to t.
func WithTracer(t query.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}

// New returns a client backed by src.
func New(src query.Source, cfg *config.Config, opts ...Option) *Client {
	c := &Client{
		src:     src,
		auth:    newAuth(cfg.DemoUser, []byte(cfg.JWTSecret)),
		storage: &Storage{publicURL: cfg.PublicURL},
		procs:   make(map[string]Procedure),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// From starts a query on the named collection.
func (c *Client) From(collection string) *query.Builder {
	return query.NewBuilder(c.src, collection, c.tracer)
}

// Auth returns the auth stub.
func (c *Client) Auth() *Auth {
	return c.auth
}

// Storage returns the storage stub.
func (c *Client) Storage() *Storage {
	return c.storage
}

// Register adds or replaces the procedure called name.
func (c *Client) Register(name string, p Procedure) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.procs[name] = p
}

// Procedures returns the registered procedure names, sorted.
func (c *Client) Procedures() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.procs))
	for n := range c.procs {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// RPC calls the named procedure.
//
// An unknown name yields an envelope with nil data and nil error.
func (c *Client) RPC(ctx context.Context, name string, params map[string]any) *query.Result {
	c.mu.RLock()
	p, ok := c.procs[name]
	c.mu.RUnlock()
	if !ok {
		slog.DebugContext(ctx, "unknown procedure", "name", name)
		return &query.Result{}
	}
	if params == nil {
		params = map[string]any{}
	}
	data, err := p(ctx, c, params)
	if err != nil {
		slog.WarnContext(ctx, "procedure failed", "name", name, "err", err)
		return &query.Result{Error: &query.Error{Code: query.CodeRaised, Message: err.Error()}}
	}
	return &query.Result{Data: data}
}

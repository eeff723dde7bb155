// Package appctx provides the process-wide application context: the signed-in
// token, toast notifications and the sign-out broadcast.
//
// One Context is created at startup and passed by reference to every
// component that needs authentication or user notifications, so none of them
// reach for global state.
package appctx

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/AltairaLabs/VoiceDesk/runtime/credentials"
	"github.com/AltairaLabs/VoiceDesk/runtime/events"
	"github.com/AltairaLabs/VoiceDesk/runtime/logger"
	"github.com/AltairaLabs/VoiceDesk/runtime/notify"
)

// Sign-out reasons.
const (
	ReasonUnauthorized = "unauthorized"
	ReasonLogout       = "logout"
)

// ErrEmptyToken is returned by SignIn for a blank token.
var ErrEmptyToken = errors.New("empty token")

// Context is the shared application context.
type Context struct {
	tokens  credentials.TokenStore
	bus     *events.EventBus
	catalog *notify.Catalog

	mu     sync.Mutex
	hooks  []signOutHook
	nextID uint64
}

type signOutHook struct {
	id uint64
	fn func(reason string)
}

// New creates the application context.
func New(tokens credentials.TokenStore, bus *events.EventBus, catalog *notify.Catalog) *Context {
	if tokens == nil {
		tokens = credentials.NewMemoryStore("")
	}
	if catalog == nil {
		catalog = notify.New("")
	}
	return &Context{
		tokens:  tokens,
		bus:     bus,
		catalog: catalog,
	}
}

// Bus returns the event bus, which may be nil.
func (c *Context) Bus() *events.EventBus {
	return c.bus
}

// Catalog returns the toast catalog.
func (c *Context) Catalog() *notify.Catalog {
	return c.catalog
}

// Token returns the current bearer token, or "" when signed out.
func (c *Context) Token() string {
	token, err := c.tokens.Load()
	if err != nil {
		if !errors.Is(err, credentials.ErrNoToken) {
			logger.Warn("Could not load token", "error", err)
		}
		return ""
	}
	return token
}

// SignedIn reports whether a token is available.
func (c *Context) SignedIn() bool {
	return c.Token() != ""
}

// SignIn stores token for subsequent requests.
func (c *Context) SignIn(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyToken
	}
	if err := c.tokens.Save(token); err != nil {
		return err
	}
	logger.InfoContext(ctx, "🔑 Signed in", "token", logger.RedactSensitiveData("Bearer "+token))
	c.Toast(events.ToastSuccess, notify.KeySignedIn)
	return nil
}

// SignOut clears the token and tells every listener. Hooks run
// synchronously in registration order.
func (c *Context) SignOut(ctx context.Context, reason string) error {
	err := c.tokens.Clear()
	if err != nil {
		logger.ErrorContext(ctx, "Could not clear token", "error", err)
	}

	logger.InfoContext(ctx, "🔒 Signed out", "reason", reason)
	if c.bus != nil {
		c.bus.Publish(&events.Event{Type: events.EventSignedOut, Data: events.SignedOutData{Reason: reason}})
	}

	c.mu.Lock()
	hooks := append([]signOutHook(nil), c.hooks...)
	c.mu.Unlock()

	for _, h := range hooks {
		h.fn(reason)
	}
	return err
}

// HandleUnauthorized signs out after the backend rejected the token. It is
// the transport's unauthorized handler; the caller that owns the failed
// operation shows the toast.
func (c *Context) HandleUnauthorized(ctx context.Context) {
	_ = c.SignOut(ctx, ReasonUnauthorized)
}

// OnSignOut registers fn to run on every sign-out and returns a function
// that removes it.
func (c *Context) OnSignOut(fn func(reason string)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := c.nextID
	c.hooks = append(c.hooks, signOutHook{id: id, fn: fn})
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.hooks = slices.DeleteFunc(c.hooks, func(h signOutHook) bool { return h.id == id })
	}
}

// Toast publishes a localized notification and returns its text.
func (c *Context) Toast(level events.ToastLevel, key notify.Key, args ...any) string {
	text := c.catalog.Text(key, args...)
	if c.bus != nil {
		c.bus.Publish(&events.Event{
			Type: events.EventToast,
			Data: events.ToastData{Level: level, Message: text},
		})
	}
	return text
}

package bridge

import (
	"time"

	"github.com/google/uuid"
)

// Context is the immutable per-dispatch identity shared read-only by every
// sink of one dispatch.
type Context struct {
	SessionID    string
	SDKSurface   string
	Capabilities map[string]any
	StartedAt    time.Time
}

// Metadata is the serializable snapshot of a dispatch context.
type Metadata struct {
	SessionID    string         `json:"session_id"`
	SDKSurface   string         `json:"sdk_surface"`
	Capabilities map[string]any `json:"capabilities"`
}

// NewContext creates a dispatch context. An empty session id is replaced
// with a generated UUID; a nil capability map becomes an empty overlay.
func NewContext(sessionID, sdkSurface string, capabilities map[string]any) *Context {
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	if capabilities == nil {
		capabilities = map[string]any{}
	}
	return &Context{
		SessionID:    sessionID,
		SDKSurface:   sdkSurface,
		Capabilities: capabilities,
		StartedAt:    time.Now(),
	}
}

// Metadata returns the context's wire snapshot.
func (c *Context) Metadata() Metadata {
	return Metadata{
		SessionID:    c.SessionID,
		SDKSurface:   c.SDKSurface,
		Capabilities: c.Capabilities,
	}
}

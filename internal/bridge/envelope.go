package bridge

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kingrea/apiprobe/internal/resolver"
)

const (
	// ProtocolVersion identifies the bridge contract version exposed via /health.
	ProtocolVersion = "1.0.0"
	// EnvelopeVersion is the currently supported envelope schema version.
	EnvelopeVersion = 1
)

// Envelope carries one resolved command to the target surface.
type Envelope struct {
	Version   int               `json:"version"`
	MessageID string            `json:"message_id"`
	Category  string            `json:"category"`
	API       string            `json:"api"`
	Params    *resolver.Payload `json:"params"`
	SentAt    time.Time         `json:"sent_at"`
}

// Normalize applies defaults and canonical formatting before validation.
func (e *Envelope) Normalize() {
	if e == nil {
		return
	}
	if e.Version == 0 {
		e.Version = EnvelopeVersion
	}
	e.MessageID = strings.TrimSpace(e.MessageID)
	e.Category = strings.TrimSpace(e.Category)
	e.API = strings.TrimSpace(e.API)
}

// Validate enforces baseline schema requirements for envelopes.
func (e Envelope) Validate() error {
	if e.Version != EnvelopeVersion {
		return fmt.Errorf("version %d not supported", e.Version)
	}
	if e.MessageID == "" {
		return errors.New("message_id is required")
	}
	if e.Category == "" {
		return errors.New("category is required")
	}
	if e.API == "" {
		return errors.New("api is required")
	}
	if e.Params == nil {
		return errors.New("params is required")
	}
	return nil
}

// Receipt acknowledges an accepted envelope.
type Receipt struct {
	Status     string    `json:"status"`
	MessageID  string    `json:"message_id"`
	ReceivedAt time.Time `json:"received_at"`
}

// EnvelopeProcessor consumes validated envelopes.
type EnvelopeProcessor interface {
	HandleEnvelope(Envelope) error
}

// EnvelopeProcessorFunc adapts a function into an EnvelopeProcessor.
type EnvelopeProcessorFunc func(Envelope) error

// HandleEnvelope executes f(e).
func (f EnvelopeProcessorFunc) HandleEnvelope(e Envelope) error {
	if f == nil {
		return nil
	}
	return f(e)
}

// Logger records bridge status information. It matches logging.Logger's signature.
type Logger interface {
	Printf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

type healthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	RouterReady   bool   `json:"router_ready"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

type errorResponse struct {
	Error string `json:"error"`
}

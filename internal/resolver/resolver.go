package resolver

import (
	"errors"
	"fmt"

	"github.com/kingrea/apiprobe/internal/catalog"
)

var (
	// ErrProducerFailed matches every *ProducerError.
	ErrProducerFailed = errors.New("resolver: producer failed")
	// ErrNonScalar is the cause recorded when a producer returns a value that
	// cannot appear in a flat payload.
	ErrNonScalar = errors.New("resolver: producer returned a non-scalar value")

	errNilProducer = errors.New("resolver: dynamic param has no producer")
)

// ProducerError reports a dynamic parameter whose producer failed.
type ProducerError struct {
	API      string
	Param    string
	Producer string
	Err      error
}

func (e *ProducerError) Error() string {
	return fmt.Sprintf("resolver: %s.%s: producer %s failed: %v", e.API, e.Param, e.Producer, e.Err)
}

// Unwrap exposes both ErrProducerFailed and the producer's own error.
func (e *ProducerError) Unwrap() []error {
	return []error{ErrProducerFailed, e.Err}
}

// Logger records resolution failures. It matches logging.Logger's signature.
type Logger interface {
	Printf(format string, args ...any)
}

// Option customizes Resolver construction.
type Option func(*Resolver)

// WithLogger installs a logger for failed resolutions.
func WithLogger(l Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// Resolver evaluates catalog entries. The zero value is ready to use and a
// single Resolver may be shared between goroutines.
type Resolver struct {
	logger Logger
}

// New returns a Resolver configured by opts.
func New(opts ...Option) *Resolver {
	r := &Resolver{}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

var defaultResolver = New()

// Resolve evaluates entry with a default Resolver.
func Resolve(entry catalog.APIEntry) (*Payload, error) {
	return defaultResolver.Resolve(entry)
}

// Resolve evaluates every parameter of entry once, in declaration order.
func (r *Resolver) Resolve(entry catalog.APIEntry) (*Payload, error) {
	payload := newPayload(len(entry.Params))
	for _, param := range entry.Params {
		value, err := evaluate(entry.Name, param)
		if err != nil {
			r.logf("%v", err)
			return nil, err
		}
		payload.add(param.Name, value)
	}
	return payload, nil
}

func evaluate(api string, param catalog.ParamSpec) (any, error) {
	switch v := param.Value.(type) {
	case catalog.Static:
		return v.Value, nil
	case catalog.Dynamic:
		if v.Fn == nil {
			return nil, &ProducerError{API: api, Param: param.Name, Producer: v.Producer, Err: errNilProducer}
		}
		value, err := v.Fn()
		if err != nil {
			return nil, &ProducerError{API: api, Param: param.Name, Producer: v.Producer, Err: err}
		}
		if !catalog.IsScalar(value) {
			return nil, &ProducerError{
				API:      api,
				Param:    param.Name,
				Producer: v.Producer,
				Err:      fmt.Errorf("%w: %T", ErrNonScalar, value),
			}
		}
		return value, nil
	default:
		return nil, fmt.Errorf("resolver: %s.%s has no value", api, param.Name)
	}
}

func (r *Resolver) logf(format string, args ...any) {
	if r == nil || r.logger == nil {
		return
	}
	r.logger.Printf(format, args...)
}

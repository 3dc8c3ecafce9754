package catalog

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Names of the producers installed by DefaultProducers.
const (
	ProducerTimestamp  = "timestamp"
	ProducerUnixMillis = "unix_millis"
	ProducerUUID       = "uuid"
)

// TimestampLayout renders UTC instants with millisecond precision, e.g.
// 2024-01-01T00:00:00.000Z.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// ProducerSet maps producer names to functions. Definition files refer to
// dynamic values by name and the set supplies the function. Sets are filled
// during bootstrap (built-ins plus scripted producers) and only read afterwards.
type ProducerSet struct {
	mu        sync.RWMutex
	producers map[string]Producer
}

// NewProducerSet returns an empty set.
func NewProducerSet() *ProducerSet {
	return &ProducerSet{producers: map[string]Producer{}}
}

// DefaultProducers returns a set holding the built-in producers. clock may be
// nil, in which case time.Now is used.
func DefaultProducers(clock func() time.Time) *ProducerSet {
	if clock == nil {
		clock = time.Now
	}
	set := NewProducerSet()
	set.MustRegister(ProducerTimestamp, func() (any, error) {
		return clock().UTC().Format(TimestampLayout), nil
	})
	set.MustRegister(ProducerUnixMillis, func() (any, error) {
		return clock().UnixMilli(), nil
	})
	set.MustRegister(ProducerUUID, func() (any, error) {
		id, err := uuid.NewRandom()
		if err != nil {
			return nil, fmt.Errorf("generate uuid: %w", err)
		}
		return id.String(), nil
	})
	return set
}

// Register installs a producer. Returns an error if the name already exists.
func (s *ProducerSet) Register(name string, fn Producer) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("catalog: producer name is required")
	}
	if fn == nil {
		return fmt.Errorf("catalog: producer %s has no function", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.producers[name]; exists {
		return fmt.Errorf("catalog: producer %s already registered", name)
	}
	s.producers[name] = fn
	return nil
}

// MustRegister panics if registration fails.
func (s *ProducerSet) MustRegister(name string, fn Producer) {
	if err := s.Register(name, fn); err != nil {
		panic(err)
	}
}

// Lookup returns the producer registered under name.
func (s *ProducerSet) Lookup(name string) (Producer, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn, ok := s.producers[strings.TrimSpace(name)]
	return fn, ok
}

// Param builds a dynamic ParamSpec backed by the named producer.
func (s *ProducerSet) Param(paramName, producerName string) (ParamSpec, error) {
	fn, ok := s.Lookup(producerName)
	if !ok {
		return ParamSpec{}, fmt.Errorf("catalog: unknown producer %q", producerName)
	}
	return DynamicParam(paramName, strings.TrimSpace(producerName), fn), nil
}

// Names returns the registered producer names in sorted order.
func (s *ProducerSet) Names() []string {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.producers))
	for name := range s.producers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

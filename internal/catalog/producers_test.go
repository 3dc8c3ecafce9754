package catalog

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestDefaultProducers(t *testing.T) {
	fixed := time.Date(2024, 1, 1, 8, 0, 0, 0, time.FixedZone("UTC+8", 8*3600))
	set := DefaultProducers(func() time.Time { return fixed })

	ts, ok := set.Lookup(ProducerTimestamp)
	if !ok {
		t.Fatalf("timestamp producer missing")
	}
	got, err := ts()
	if err != nil {
		t.Fatalf("timestamp: %v", err)
	}
	if got != "2024-01-01T00:00:00.000Z" {
		t.Fatalf("timestamp = %v", got)
	}

	millis, _ := set.Lookup(ProducerUnixMillis)
	if got, _ := millis(); got != fixed.UnixMilli() {
		t.Fatalf("unix_millis = %v", got)
	}

	gen, _ := set.Lookup(ProducerUUID)
	a, err := gen()
	if err != nil {
		t.Fatalf("uuid: %v", err)
	}
	b, _ := gen()
	if a == b {
		t.Fatalf("uuid producer returned the same value twice: %v", a)
	}
	if _, err := uuid.Parse(a.(string)); err != nil {
		t.Fatalf("uuid producer returned invalid id %v: %v", a, err)
	}
}

func TestProducerSetRegister(t *testing.T) {
	set := NewProducerSet()
	fn := func() (any, error) { return 1, nil }
	if err := set.Register("counter", fn); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := set.Register("counter", fn); err == nil || !strings.Contains(err.Error(), "already registered") {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if err := set.Register(" ", fn); err == nil {
		t.Fatalf("expected empty name error")
	}
	if err := set.Register("nil", nil); err == nil {
		t.Fatalf("expected nil function error")
	}
	if names := set.Names(); len(names) != 1 || names[0] != "counter" {
		t.Fatalf("unexpected names %v", names)
	}
	param, err := set.Param("count", "counter")
	if err != nil {
		t.Fatalf("param: %v", err)
	}
	if !param.IsDynamic() || param.Value.(Dynamic).Producer != "counter" {
		t.Fatalf("unexpected param %+v", param)
	}
	if _, err := set.Param("x", "missing"); err == nil {
		t.Fatalf("expected unknown producer error")
	}
}

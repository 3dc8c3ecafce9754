package resolver

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/kingrea/apiprobe/internal/catalog"
)

func wordCatalog(t *testing.T, extra ...catalog.Category) *catalog.Catalog {
	t.Helper()
	categories := append([]catalog.Category{{
		Label: "WORD",
		Key:   "word",
		APIs: []catalog.APIEntry{{
			Name: "addText",
			Params: []catalog.ParamSpec{
				catalog.StaticParam("userId", "123"),
				catalog.StaticParam("content", "Hello, PostMessage!"),
			},
		}},
	}}, extra...)
	c, err := catalog.New(categories...)
	if err != nil {
		t.Fatalf("build catalog: %v", err)
	}
	return c
}

func TestResolveStaticEntry(t *testing.T) {
	c := wordCatalog(t)
	entry, err := c.FindAPI("word", "addText")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	want := map[string]any{"userId": "123", "content": "Hello, PostMessage!"}
	var previous *Payload
	for i := 0; i < 3; i++ {
		payload, err := Resolve(entry)
		if err != nil {
			t.Fatalf("resolve #%d: %v", i, err)
		}
		if got := payload.Map(); !reflect.DeepEqual(got, want) {
			t.Fatalf("resolve #%d = %v, want %v", i, got, want)
		}
		if previous != nil && !reflect.DeepEqual(previous.Fields(), payload.Fields()) {
			t.Fatalf("static resolutions differ: %v vs %v", previous.Fields(), payload.Fields())
		}
		previous = payload
	}
}

func TestResolveInvokesProducerOncePerCall(t *testing.T) {
	stamps := []string{"2024-01-01T00:00:00.000Z", "2024-01-01T00:00:01.000Z"}
	var calls int32
	producer := func() (any, error) {
		n := atomic.AddInt32(&calls, 1)
		return stamps[n-1], nil
	}
	c, err := catalog.New(catalog.Category{
		Key: "common",
		APIs: []catalog.APIEntry{{
			Name: "ping",
			Params: []catalog.ParamSpec{
				catalog.StaticParam("source", "harness"),
				catalog.DynamicParam("timestamp", "timestamp", producer),
			},
		}},
	})
	if err != nil {
		t.Fatalf("build catalog: %v", err)
	}
	if calls != 0 {
		t.Fatalf("producer ran during catalog construction")
	}
	entry, err := c.FindAPI("common", "ping")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	first, err := Resolve(entry)
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	second, err := Resolve(entry)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 producer calls, got %d", calls)
	}
	if got, _ := first.Get("timestamp"); got != stamps[0] {
		t.Fatalf("first timestamp = %v", got)
	}
	if got, _ := second.Get("timestamp"); got != stamps[1] {
		t.Fatalf("second timestamp = %v", got)
	}
	a, _ := first.Get("source")
	b, _ := second.Get("source")
	if a != "harness" || a != b {
		t.Fatalf("static param changed between resolutions: %v vs %v", a, b)
	}
}

func TestResolvePreservesDeclarationOrder(t *testing.T) {
	entry := catalog.APIEntry{
		Name: "ordered",
		Params: []catalog.ParamSpec{
			catalog.StaticParam("zeta", 1),
			catalog.DynamicParam("alpha", "stub", func() (any, error) { return true, nil }),
			catalog.StaticParam("mid", "x"),
		},
	}
	payload, err := Resolve(entry)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got := payload.Names(); !reflect.DeepEqual(got, []string{"zeta", "alpha", "mid"}) {
		t.Fatalf("names = %v", got)
	}
	data, err := payload.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"zeta":1,"alpha":true,"mid":"x"}` {
		t.Fatalf("ordered encoding = %s", data)
	}
}

func TestResolveEmptyEntry(t *testing.T) {
	payload, err := Resolve(catalog.APIEntry{Name: "noop"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if payload.Len() != 0 {
		t.Fatalf("expected empty payload, got %v", payload.Fields())
	}
	data, _ := payload.MarshalJSON()
	if string(data) != "{}" {
		t.Fatalf("empty payload encodes as %s", data)
	}
}

func TestResolveProducerFailure(t *testing.T) {
	clockErr := errors.New("clock unavailable")
	var later int32
	entry := catalog.APIEntry{
		Name: "ping",
		Params: []catalog.ParamSpec{
			catalog.DynamicParam("timestamp", "timestamp", func() (any, error) { return nil, clockErr }),
			catalog.DynamicParam("after", "counter", func() (any, error) {
				atomic.AddInt32(&later, 1)
				return 1, nil
			}),
		},
	}
	logger := &recordingLogger{}
	payload, err := New(WithLogger(logger)).Resolve(entry)
	if payload != nil {
		t.Fatalf("expected no payload on failure, got %v", payload.Fields())
	}
	if !errors.Is(err, ErrProducerFailed) {
		t.Fatalf("expected ErrProducerFailed, got %v", err)
	}
	if !errors.Is(err, clockErr) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	var producerErr *ProducerError
	if !errors.As(err, &producerErr) || producerErr.Param != "timestamp" || producerErr.API != "ping" {
		t.Fatalf("unexpected error detail %+v", producerErr)
	}
	if later != 0 {
		t.Fatalf("resolution continued after a failed producer")
	}
	if len(logger.lines) != 1 {
		t.Fatalf("expected failure to be logged once, got %v", logger.lines)
	}
	if logger.lines[0] != err.Error() {
		t.Fatalf("logged %q, want %q", logger.lines[0], err.Error())
	}
}

func TestResolveRejectsNonScalarProducerValue(t *testing.T) {
	entry := catalog.APIEntry{
		Name: "bad",
		Params: []catalog.ParamSpec{
			catalog.DynamicParam("nested", "nested", func() (any, error) { return map[string]any{"a": 1}, nil }),
		},
	}
	_, err := Resolve(entry)
	if !errors.Is(err, ErrProducerFailed) || !errors.Is(err, ErrNonScalar) {
		t.Fatalf("expected non-scalar producer failure, got %v", err)
	}
}

func TestResolveRejectsNonFiniteProducerValue(t *testing.T) {
	for name, value := range map[string]any{
		"inf":     math.Inf(1),
		"neg inf": float32(math.Inf(-1)),
		"nan":     math.NaN(),
	} {
		t.Run(name, func(t *testing.T) {
			entry := catalog.APIEntry{
				Name: "ratio",
				Params: []catalog.ParamSpec{
					catalog.DynamicParam("ratio", "ratio", func() (any, error) { return value, nil }),
				},
			}
			_, err := Resolve(entry)
			if !errors.Is(err, ErrProducerFailed) || !errors.Is(err, ErrNonScalar) {
				t.Fatalf("expected non-scalar producer failure, got %v", err)
			}
		})
	}
}

func TestResolveConcurrent(t *testing.T) {
	var calls int64
	entry := catalog.APIEntry{
		Name: "ping",
		Params: []catalog.ParamSpec{
			catalog.StaticParam("userId", "123"),
			catalog.DynamicParam("seq", "seq", func() (any, error) {
				return atomic.AddInt64(&calls, 1), nil
			}),
		},
	}
	const workers = 32
	var wg sync.WaitGroup
	seen := make(chan int64, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			payload, err := Resolve(entry)
			if err != nil {
				t.Errorf("resolve: %v", err)
				return
			}
			v, _ := payload.Get("seq")
			seen <- v.(int64)
		}()
	}
	wg.Wait()
	close(seen)
	unique := map[int64]struct{}{}
	for v := range seen {
		unique[v] = struct{}{}
	}
	if len(unique) != workers || calls != workers {
		t.Fatalf("expected %d distinct producer calls, got %d (calls=%d)", workers, len(unique), calls)
	}
}

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) Printf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

package bridge

import (
	"testing"
)

func envelope(id, category string) Envelope {
	return Envelope{Version: EnvelopeVersion, MessageID: id, Category: category, API: "ping"}
}

func TestRouterBuffersAndFlushes(t *testing.T) {
	router := NewRouter(RouterWithSubscriberCapacity(4))
	router.Route(envelope("m-1", "common"))
	router.Route(envelope("m-2", "common"))
	sub := router.Subscribe("common")
	defer sub.Close()
	if got := <-sub.Envelopes; got.MessageID != "m-1" {
		t.Fatalf("expected first buffered envelope, got %s", got.MessageID)
	}
	if got := <-sub.Envelopes; got.MessageID != "m-2" {
		t.Fatalf("expected second buffered envelope, got %s", got.MessageID)
	}
}

func TestRouterBacklogLimitDropsOldest(t *testing.T) {
	router := NewRouter(RouterWithBacklogLimit(2))
	for _, id := range []string{"m-1", "m-2", "m-3"} {
		router.Route(envelope(id, "word"))
	}
	sub := router.Subscribe("word")
	defer sub.Close()
	if got := <-sub.Envelopes; got.MessageID != "m-2" {
		t.Fatalf("expected m-2 after backlog drop, got %s", got.MessageID)
	}
}

func TestRouterDedupeByMessageID(t *testing.T) {
	router := NewRouter()
	sub := router.Subscribe("common")
	defer sub.Close()
	router.Route(envelope("m-1", "common"))
	router.Route(envelope("m-1", "common"))
	select {
	case got := <-sub.Envelopes:
		if got.MessageID != "m-1" {
			t.Fatalf("unexpected envelope: %s", got.MessageID)
		}
	default:
		t.Fatalf("expected first delivery")
	}
	select {
	case <-sub.Envelopes:
		t.Fatalf("duplicate envelope delivered")
	default:
	}
}

func TestRouterWildcardReceivesEveryCategory(t *testing.T) {
	router := NewRouter()
	all := router.Subscribe(AnyCategory)
	defer all.Close()
	pdf := router.Subscribe("pdf")
	defer pdf.Close()
	router.Route(envelope("m-1", "pdf"))
	router.Route(envelope("m-2", "ppt"))
	if got := <-all.Envelopes; got.MessageID != "m-1" {
		t.Fatalf("wildcard missed m-1, got %s", got.MessageID)
	}
	if got := <-all.Envelopes; got.MessageID != "m-2" {
		t.Fatalf("wildcard missed m-2, got %s", got.MessageID)
	}
	if got := <-pdf.Envelopes; got.MessageID != "m-1" {
		t.Fatalf("pdf subscriber got %s", got.MessageID)
	}
	select {
	case got := <-pdf.Envelopes:
		t.Fatalf("pdf subscriber received %s", got.MessageID)
	default:
	}
}

func TestRouterDropsOldestOnOverflow(t *testing.T) {
	router := NewRouter(RouterWithSubscriberCapacity(1))
	sub := router.Subscribe("excel")
	defer sub.Close()
	router.Route(envelope("m-1", "excel"))
	router.Route(envelope("m-2", "excel"))
	if got := <-sub.Envelopes; got.MessageID != "m-2" {
		t.Fatalf("expected newest envelope to replace oldest, got %s", got.MessageID)
	}
}

func TestSubscriptionCloseClosesChannel(t *testing.T) {
	router := NewRouter()
	sub := router.Subscribe("common")
	sub.Close()
	if _, ok := <-sub.Envelopes; ok {
		t.Fatalf("expected closed channel")
	}
	router.Route(envelope("m-1", "common"))
	sub.Close()
}

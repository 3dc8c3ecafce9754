package bridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kingrea/apiprobe/internal/resolver"
)

func TestClientDeliversThroughServerAndRouter(t *testing.T) {
	t.Parallel()
	router := NewRouter()
	sub := router.Subscribe("common")
	defer sub.Close()
	srv := startServer(t, testSettings(4096), WithProcessor(router))
	settings := testSettings(4096)
	settings.Target = srv.BaseURL()
	sentAt := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	client := NewClient(settings,
		WithClientClock(func() time.Time { return sentAt }),
		WithMessageIDs(func() string { return "fixed-id" }))
	payload, err := resolver.NewPayload(resolver.Field{Name: "timestamp", Value: "2024-05-01T08:00:00.000Z"})
	if err != nil {
		t.Fatal(err)
	}
	receipt, err := client.Send(context.Background(), "common", "ping", payload)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if receipt.MessageID != "fixed-id" || receipt.Status != "accepted" {
		t.Fatalf("unexpected receipt %+v", receipt)
	}
	select {
	case env := <-sub.Envelopes:
		if env.API != "ping" || !env.SentAt.Equal(sentAt) {
			t.Fatalf("unexpected envelope %+v", env)
		}
		if v, _ := env.Params.Get("timestamp"); v != "2024-05-01T08:00:00.000Z" {
			t.Fatalf("unexpected timestamp %v", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("envelope not routed")
	}
}

func TestClientReportsRefusal(t *testing.T) {
	t.Parallel()
	srv := startServer(t, testSettings(4096), WithProcessor(EnvelopeProcessorFunc(func(Envelope) error {
		return errors.New("surface busy")
	})))
	settings := testSettings(4096)
	settings.Target = srv.BaseURL()
	client := NewClient(settings)
	payload, _ := resolver.NewPayload()
	_, err := client.Send(context.Background(), "word", "getWord", payload)
	var delivery *DeliveryError
	if !errors.As(err, &delivery) {
		t.Fatalf("expected DeliveryError, got %v", err)
	}
	if delivery.StatusCode != 500 || delivery.Message != "envelope processing failed" {
		t.Fatalf("unexpected delivery error %+v", delivery)
	}
}

func TestClientRejectsNilPayload(t *testing.T) {
	client := NewClient(testSettings(64))
	if _, err := client.Send(context.Background(), "word", "getWord", nil); err == nil {
		t.Fatalf("expected error for nil payload")
	}
}

func TestClientUsesUUIDMessageIDs(t *testing.T) {
	client := NewClient(testSettings(64))
	first := client.Envelope("common", "ping", nil)
	second := client.Envelope("common", "ping", nil)
	if len(first.MessageID) != 36 || first.MessageID == second.MessageID {
		t.Fatalf("expected distinct uuids, got %s and %s", first.MessageID, second.MessageID)
	}
}

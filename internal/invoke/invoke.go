// Package invoke ties the catalog, the resolver and a transport together:
// look up an API, resolve its parameters fresh, and hand the payload off.
package invoke

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kingrea/apiprobe/internal/bridge"
	"github.com/kingrea/apiprobe/internal/catalog"
	"github.com/kingrea/apiprobe/internal/resolver"
)

// Sender delivers a resolved payload. *bridge.Client implements it.
type Sender interface {
	Send(ctx context.Context, category, api string, payload *resolver.Payload) (bridge.Receipt, error)
}

// Journal records dispatch outcomes. *logbook.Logbook implements it.
type Journal interface {
	Sent(category, api, messageID string, params []byte)
	Failed(category, api string, err error)
}

// ErrNoSender is returned by Invoke when no transport is configured.
var ErrNoSender = errors.New("invoke: no sender configured")

// Result describes one dispatched command.
type Result struct {
	Category string
	Entry    catalog.APIEntry
	Payload  *resolver.Payload
	Receipt  bridge.Receipt
}

// Invoker resolves and dispatches catalog entries.
type Invoker struct {
	catalog  *catalog.Catalog
	resolver *resolver.Resolver
	sender   Sender
	journal  Journal
}

// Option customizes an Invoker.
type Option func(*Invoker)

// WithResolver replaces the zero-config resolver.
func WithResolver(r *resolver.Resolver) Option {
	return func(inv *Invoker) {
		if r != nil {
			inv.resolver = r
		}
	}
}

// WithSender sets the transport used by Invoke.
func WithSender(s Sender) Option {
	return func(inv *Invoker) {
		inv.sender = s
	}
}

// WithJournal records every Invoke outcome.
func WithJournal(j Journal) Option {
	return func(inv *Invoker) {
		inv.journal = j
	}
}

// New returns an Invoker over cat.
func New(cat *catalog.Catalog, opts ...Option) *Invoker {
	inv := &Invoker{catalog: cat, resolver: resolver.New()}
	for _, opt := range opts {
		if opt != nil {
			opt(inv)
		}
	}
	return inv
}

// Catalog returns the catalog the invoker reads from.
func (inv *Invoker) Catalog() *catalog.Catalog {
	return inv.catalog
}

// CanSend reports whether Invoke has a transport.
func (inv *Invoker) CanSend() bool {
	return inv.sender != nil
}

// Preview resolves an API without sending it. Dynamic producers still run.
func (inv *Invoker) Preview(categoryKey, apiName string) (catalog.APIEntry, *resolver.Payload, error) {
	entry, err := inv.catalog.FindAPI(categoryKey, apiName)
	if err != nil {
		return catalog.APIEntry{}, nil, err
	}
	payload, err := inv.resolver.Resolve(entry)
	if err != nil {
		return entry, nil, err
	}
	return entry, payload, nil
}

// Invoke resolves an API and delivers it. Failures are journaled once and
// never retried.
func (inv *Invoker) Invoke(ctx context.Context, categoryKey, apiName string) (Result, error) {
	result := Result{Category: categoryKey}
	if inv.sender == nil {
		return result, ErrNoSender
	}
	entry, payload, err := inv.Preview(categoryKey, apiName)
	result.Entry = entry
	if err != nil {
		inv.failed(categoryKey, apiName, err)
		return result, err
	}
	result.Payload = payload
	receipt, err := inv.sender.Send(ctx, categoryKey, apiName, payload)
	if err != nil {
		err = fmt.Errorf("invoke: send %s.%s: %w", categoryKey, apiName, err)
		inv.failed(categoryKey, apiName, err)
		return result, err
	}
	result.Receipt = receipt
	if inv.journal != nil {
		params, _ := json.Marshal(payload)
		inv.journal.Sent(categoryKey, apiName, receipt.MessageID, params)
	}
	return result, nil
}

func (inv *Invoker) failed(categoryKey, apiName string, err error) {
	if inv.journal != nil {
		inv.journal.Failed(categoryKey, apiName, err)
	}
}

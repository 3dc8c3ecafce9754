package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kingrea/apiprobe/internal/bridge"
	"github.com/kingrea/apiprobe/internal/catalog"
	"github.com/kingrea/apiprobe/internal/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestListShowsBuiltinCatalog(t *testing.T) {
	projectDir := t.TempDir()
	out, err := execute(t, "list", "--project", projectDir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, want := range []string{"common (公共)", "word (WORD)", "exportPdf", "createSlide"} {
		if !strings.Contains(out, want) {
			t.Fatalf("list output missing %q:\n%s", want, out)
		}
	}
	if _, err := os.Stat(filepath.Join(projectDir, config.ProbeDir, "config.yaml")); err != nil {
		t.Fatalf("expected project dir to be initialized: %v", err)
	}
}

func TestShowAndResolve(t *testing.T) {
	projectDir := t.TempDir()
	out, err := execute(t, "show", "common", "ping", "--project", projectDir)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, "dynamic") || !strings.Contains(out, "<timestamp>") {
		t.Fatalf("unexpected show output:\n%s", out)
	}
	out, err = execute(t, "resolve", "word", "addText", "--project", projectDir)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if strings.Index(out, `"userId"`) > strings.Index(out, `"content"`) {
		t.Fatalf("resolve output lost declaration order:\n%s", out)
	}
	_, err = execute(t, "resolve", "word", "nope", "--project", projectDir)
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCatalogFlagLoadsDefinitions(t *testing.T) {
	projectDir := t.TempDir()
	defPath := filepath.Join(projectDir, "defs.yaml")
	defs := strings.TrimSpace(`
categories:
  - label: Custom
    key: custom
    apis:
      - name: hello
        params:
          - name: greeting
            value: hi
          - name: id
            producer: uuid
`)
	if err := os.WriteFile(defPath, []byte(defs), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "resolve", "custom", "hello", "--project", projectDir, "--catalog", defPath)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if payload["greeting"] != "hi" || len(payload["id"].(string)) != 36 {
		t.Fatalf("unexpected payload %v", payload)
	}
}

func TestSendDeliversToServer(t *testing.T) {
	received := make(chan bridge.Envelope, 1)
	srv := bridge.NewServer(bridge.Settings{Enabled: true, Host: "127.0.0.1", Port: 0},
		bridge.WithProcessor(bridge.EnvelopeProcessorFunc(func(env bridge.Envelope) error {
			received <- env
			return nil
		})))
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer srv.Shutdown(context.Background())

	projectDir := t.TempDir()
	out, err := execute(t, "send", "common", "ping", "--project", projectDir, "--target", srv.BaseURL())
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !strings.Contains(out, `"accepted"`) {
		t.Fatalf("expected receipt, got:\n%s", out)
	}
	select {
	case env := <-received:
		if env.Category != "common" || env.API != "ping" {
			t.Fatalf("unexpected envelope %+v", env)
		}
		if _, ok := env.Params.Get("timestamp"); !ok {
			t.Fatalf("timestamp param missing")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("server never received the envelope")
	}
	journal, err := os.ReadFile(filepath.Join(projectDir, config.ProbeDir, "logs", "journal.log"))
	if err != nil || !strings.Contains(string(journal), "sent common.ping") {
		t.Fatalf("journal not written: %v %s", err, journal)
	}
}

func TestScheduleAddAndList(t *testing.T) {
	projectDir := t.TempDir()
	if _, err := execute(t, "schedule", "add", "beat", "@every 1m", "common", "ping", "--project", projectDir); err != nil {
		t.Fatalf("schedule add: %v", err)
	}
	if _, err := execute(t, "schedule", "add", "bad", "@every 1m", "common", "pong", "--project", projectDir); err == nil {
		t.Fatalf("expected unknown api to be rejected")
	}
	out, err := execute(t, "schedule", "list", "--project", projectDir)
	if err != nil {
		t.Fatalf("schedule list: %v", err)
	}
	if !strings.Contains(out, "beat") || strings.Contains(out, "bad") {
		t.Fatalf("unexpected schedules:\n%s", out)
	}
}

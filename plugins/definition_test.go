package plugins

import (
	"errors"
	"strings"
	"testing"

	"github.com/kingrea/apiprobe/internal/catalog"
)

func TestBuildBindsStaticAndDynamicParams(t *testing.T) {
	def, err := ParseDefinitionYAML([]byte(sampleDefinition))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	producers := catalog.NewProducerSet()
	producers.MustRegister("timestamp", func() (any, error) { return "2024-01-01T00:00:00.000Z", nil })
	c, err := def.Build(producers)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	ping, err := c.FindAPI("common", "ping")
	if err != nil {
		t.Fatalf("find ping: %v", err)
	}
	if !ping.Params[0].IsDynamic() {
		t.Fatalf("timestamp should be dynamic: %+v", ping.Params[0])
	}
	addText, err := c.FindAPI("word", "addText")
	if err != nil {
		t.Fatalf("find addText: %v", err)
	}
	if got := addText.Params[0].Value.(catalog.Static).Value; got != "123" {
		t.Fatalf("quoted userId should stay a string, got %#v", got)
	}
	if got := addText.Params[2].Value.(catalog.Static).Value; got != 3 {
		t.Fatalf("repeat should decode as int, got %#v", got)
	}
	categories := c.ListCategories()
	if categories[1].Label != "WORD" || categories[0].Label != "公共" {
		t.Fatalf("unexpected labels %+v", categories)
	}
}

func TestBuildFailures(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		msg  string
	}{
		{
			name: "both value and producer",
			yaml: "categories:\n  - key: a\n    apis:\n      - name: x\n        params:\n          - {name: p, value: 1, producer: timestamp}\n",
			msg:  "sets both value and producer",
		},
		{
			name: "neither value nor producer",
			yaml: "categories:\n  - key: a\n    apis:\n      - name: x\n        params:\n          - name: p\n",
			msg:  "needs a value or a producer",
		},
		{
			name: "unknown producer",
			yaml: "categories:\n  - key: a\n    apis:\n      - name: x\n        params:\n          - {name: p, producer: nope}\n",
			msg:  `unknown producer "nope"`,
		},
		{
			name: "nested value",
			yaml: "categories:\n  - key: a\n    apis:\n      - name: x\n        params:\n          - {name: p, value: {nested: 1}}\n",
			msg:  "must be a plain scalar",
		},
		{
			name: "infinite value",
			yaml: "categories:\n  - key: a\n    apis:\n      - name: x\n        params:\n          - {name: p, value: .inf}\n",
			msg:  "must be a finite number",
		},
		{
			name: "nan value",
			yaml: "categories:\n  - key: a\n    apis:\n      - name: x\n        params:\n          - {name: p, value: .nan}\n",
			msg:  "must be a finite number",
		},
		{
			name: "null value",
			yaml: "categories:\n  - key: a\n    apis:\n      - name: x\n        params:\n          - {name: p, value: null}\n",
			msg:  "must be a plain scalar",
		},
		{
			name: "duplicate category",
			yaml: "categories:\n  - key: a\n  - key: ' a '\n",
			msg:  `category key "a" duplicates categories[0]`,
		},
		{
			name: "duplicate param",
			yaml: "categories:\n  - key: a\n    apis:\n      - name: x\n        params:\n          - {name: p, value: 1}\n          - {name: p, value: 2}\n",
			msg:  `param name "p" duplicates`,
		},
	}
	producers := catalog.DefaultProducers(nil)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			def, err := ParseDefinitionYAML([]byte(tc.yaml))
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			_, err = def.Build(producers)
			if !errors.Is(err, catalog.ErrMalformedCatalog) {
				t.Fatalf("expected ErrMalformedCatalog, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.msg) {
				t.Fatalf("expected error containing %q, got %q", tc.msg, err.Error())
			}
		})
	}
}

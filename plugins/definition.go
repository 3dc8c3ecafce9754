package plugins

import (
	"fmt"
	"strings"

	"github.com/kingrea/apiprobe/internal/catalog"
	"gopkg.in/yaml.v3"
)

// CatalogDefinition describes a catalog loaded from YAML or JSON.
//
// The struct mirrors the on-disk schema under .apiprobe/catalog/*.yaml. It is
// intentionally close to catalog.Category so that Build only has to bind
// producer names to functions before handing the categories to catalog.New,
// which owns the uniqueness checks.
type CatalogDefinition struct {
	Categories []CategoryDefinition `yaml:"categories"`
}

// CategoryDefinition is one category entry.
type CategoryDefinition struct {
	Label string          `yaml:"label,omitempty"`
	Key   string          `yaml:"key"`
	APIs  []APIDefinition `yaml:"apis,omitempty"`
}

// APIDefinition is one invocable API entry.
type APIDefinition struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description,omitempty"`
	Params      []ParamDefinition `yaml:"params,omitempty"`
}

// ParamDefinition sets exactly one of Value (a static scalar) or Producer
// (the name of a dynamic producer).
type ParamDefinition struct {
	Name     string    `yaml:"name"`
	Value    yaml.Node `yaml:"value,omitempty"`
	Producer string    `yaml:"producer,omitempty"`
}

// Normalized returns a trimmed copy of the definition.
func (def CatalogDefinition) Normalized() CatalogDefinition {
	clone := CatalogDefinition{}
	if len(def.Categories) == 0 {
		return clone
	}
	clone.Categories = make([]CategoryDefinition, len(def.Categories))
	for i, category := range def.Categories {
		clone.Categories[i] = category.normalized()
	}
	return clone
}

func (def CategoryDefinition) normalized() CategoryDefinition {
	clone := CategoryDefinition{
		Label: strings.TrimSpace(def.Label),
		Key:   strings.TrimSpace(def.Key),
	}
	if clone.Label == "" {
		clone.Label = clone.Key
	}
	if len(def.APIs) > 0 {
		clone.APIs = make([]APIDefinition, len(def.APIs))
		for i, api := range def.APIs {
			clone.APIs[i] = api.normalized()
		}
	}
	return clone
}

func (def APIDefinition) normalized() APIDefinition {
	clone := APIDefinition{
		Name:        strings.TrimSpace(def.Name),
		Description: strings.TrimSpace(def.Description),
	}
	if len(def.Params) > 0 {
		clone.Params = make([]ParamDefinition, len(def.Params))
		for i, param := range def.Params {
			clone.Params[i] = ParamDefinition{
				Name:     strings.TrimSpace(param.Name),
				Value:    param.Value,
				Producer: strings.TrimSpace(param.Producer),
			}
		}
	}
	return clone
}

// Build binds producers and returns the validated catalog. Every failure
// matches catalog.ErrMalformedCatalog.
func (def CatalogDefinition) Build(producers *catalog.ProducerSet) (*catalog.Catalog, error) {
	normalized := def.Normalized()
	categories := make([]catalog.Category, len(normalized.Categories))
	for ci, category := range normalized.Categories {
		categories[ci] = catalog.Category{Label: category.Label, Key: category.Key}
		if len(category.APIs) == 0 {
			continue
		}
		categories[ci].APIs = make([]catalog.APIEntry, len(category.APIs))
		for ai, api := range category.APIs {
			entry := catalog.APIEntry{Name: api.Name, Description: api.Description}
			for pi, param := range api.Params {
				location := fmt.Sprintf("categories[%d].apis[%d].params[%d]", ci, ai, pi)
				spec, err := param.bind(location, producers)
				if err != nil {
					return nil, err
				}
				entry.Params = append(entry.Params, spec)
			}
			categories[ci].APIs[ai] = entry
		}
	}
	return catalog.New(categories...)
}

func (def ParamDefinition) bind(location string, producers *catalog.ProducerSet) (catalog.ParamSpec, error) {
	hasValue := def.Value.Kind != 0
	hasProducer := def.Producer != ""
	malformed := func(reason string) error {
		return &catalog.MalformedError{Location: location, Kind: "param value", Name: def.Name, Reason: reason}
	}
	switch {
	case hasValue && hasProducer:
		return catalog.ParamSpec{}, malformed("sets both value and producer")
	case hasProducer:
		spec, err := producers.Param(def.Name, def.Producer)
		if err != nil {
			return catalog.ParamSpec{}, malformed(fmt.Sprintf("references unknown producer %q", def.Producer))
		}
		return spec, nil
	case hasValue:
		if def.Value.Kind != yaml.ScalarNode || def.Value.Tag == "!!null" {
			return catalog.ParamSpec{}, malformed("must be a plain scalar")
		}
		var value any
		if err := def.Value.Decode(&value); err != nil {
			return catalog.ParamSpec{}, malformed(fmt.Sprintf("cannot be decoded: %v", err))
		}
		return catalog.StaticParam(def.Name, value), nil
	default:
		return catalog.ParamSpec{}, malformed("needs a value or a producer")
	}
}

package plugins

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/kingrea/apiprobe/internal/catalog"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

const goProducersFuncName = "Producers"

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// ScriptProducer is a dynamic producer declared by a Go script.
type ScriptProducer struct {
	Name string
	Path string
	Fn   catalog.Producer
}

// LoadProducerDir interprets every .go file in dir and collects the producers
// each one returns from Producers() map[string]func() (any, error).
func LoadProducerDir(dir string) ([]ScriptProducer, error) {
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(trimmed)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("plugin: read %s: %w", trimmed, err)
	}
	var producers []ScriptProducer
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".go" {
			continue
		}
		fileProducers, err := loadProducerFile(filepath.Join(trimmed, entry.Name()))
		if err != nil {
			return nil, err
		}
		producers = append(producers, fileProducers...)
	}
	if len(producers) == 0 {
		return nil, nil
	}
	sort.Slice(producers, func(i, j int) bool {
		if producers[i].Path == producers[j].Path {
			return producers[i].Name < producers[j].Name
		}
		return producers[i].Path < producers[j].Path
	})
	return producers, nil
}

func loadProducerFile(path string) ([]ScriptProducer, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("plugin: read %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(code))) == 0 {
		return nil, fmt.Errorf("plugin: %s is empty", path)
	}
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("plugin: load stdlib symbols: %w", err)
	}
	if _, err := i.EvalPath(path); err != nil {
		return nil, fmt.Errorf("plugin: interpret %s: %w", path, err)
	}
	fnValue, err := i.Eval(goProducersFuncName)
	if err != nil {
		return nil, fmt.Errorf("plugin: %s must define %s() map[string]func() (any, error): %w", path, goProducersFuncName, err)
	}
	fns, err := invokeProducersFunc(fnValue)
	if err != nil {
		return nil, fmt.Errorf("plugin: %s: %w", path, err)
	}
	producers := make([]ScriptProducer, 0, len(fns))
	for name, fn := range fns {
		producers = append(producers, ScriptProducer{Name: name, Path: filepath.Clean(path), Fn: fn})
	}
	return producers, nil
}

func invokeProducersFunc(value reflect.Value) (map[string]catalog.Producer, error) {
	if !value.IsValid() {
		return nil, fmt.Errorf("missing %s function", goProducersFuncName)
	}
	if value.Kind() != reflect.Func {
		return nil, fmt.Errorf("%s is not a function", goProducersFuncName)
	}
	if value.Type().NumIn() != 0 {
		return nil, fmt.Errorf("%s must not take arguments", goProducersFuncName)
	}
	results := value.Call(nil)
	if len(results) != 1 {
		return nil, fmt.Errorf("%s must return map[string]func() (any, error)", goProducersFuncName)
	}
	table := results[0]
	if table.Kind() == reflect.Interface {
		table = table.Elem()
	}
	if table.Kind() != reflect.Map || table.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("%s must return map[string]func() (any, error)", goProducersFuncName)
	}
	out := make(map[string]catalog.Producer, table.Len())
	iter := table.MapRange()
	for iter.Next() {
		name := strings.TrimSpace(iter.Key().String())
		fn := iter.Value()
		if fn.Kind() == reflect.Interface {
			fn = fn.Elem()
		}
		if name == "" {
			return nil, fmt.Errorf("%s returned an empty producer name", goProducersFuncName)
		}
		if fn.Kind() != reflect.Func || fn.IsNil() || fn.Type().NumIn() != 0 {
			return nil, fmt.Errorf("producer %s must be a func() (any, error)", name)
		}
		if n := fn.Type().NumOut(); n < 1 || n > 2 || (n == 2 && fn.Type().Out(1) != errorType) {
			return nil, fmt.Errorf("producer %s must be a func() (any, error)", name)
		}
		out[name] = wrapScriptFunc(fn)
	}
	return out, nil
}

func wrapScriptFunc(fn reflect.Value) catalog.Producer {
	return func() (any, error) {
		results := fn.Call(nil)
		if len(results) == 2 && !results[1].IsNil() {
			if err, ok := results[1].Interface().(error); ok {
				return nil, err
			}
			return nil, fmt.Errorf("producer returned non-error second value")
		}
		return results[0].Interface(), nil
	}
}

package plugins

import (
	"fmt"
	"os"

	"github.com/kingrea/apiprobe/internal/catalog"
	"github.com/kingrea/apiprobe/internal/config"
)

// RegisterScriptProducers interprets the Go scripts under .apiprobe/producers
// and adds their producers to set.
func RegisterScriptProducers(set *catalog.ProducerSet, cfg *config.Config) error {
	if set == nil || cfg == nil {
		return nil
	}
	producers, err := LoadProducerDir(cfg.ProducersDir())
	if err != nil {
		return err
	}
	for _, producer := range producers {
		if err := set.Register(producer.Name, producer.Fn); err != nil {
			return fmt.Errorf("plugin: register producer %s from %s: %w", producer.Name, producer.Path, err)
		}
	}
	return nil
}

// LoadCatalog builds the catalog selected by cfg. An empty catalog path selects
// the built-in catalog; a file or a directory of definition files is loaded
// otherwise. Category keys that appear in more than one file are reported with
// both paths.
func LoadCatalog(cfg *config.Config, producers *catalog.ProducerSet) (*catalog.Catalog, error) {
	if cfg == nil || cfg.CatalogPath() == "" {
		return catalog.Builtin(producers)
	}
	path := cfg.CatalogPath()
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("plugin: catalog %s: %w", path, err)
	}
	var files []DefinitionFile
	if info.IsDir() {
		files, err = LoadDefinitionDir(path)
	} else {
		var file DefinitionFile
		file, err = LoadDefinitionFile(path)
		files = []DefinitionFile{file}
	}
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("plugin: no catalog definitions found in %s", path)
	}
	return buildMerged(files, producers)
}

func buildMerged(files []DefinitionFile, producers *catalog.ProducerSet) (*catalog.Catalog, error) {
	seen := make(map[string]string)
	var merged CatalogDefinition
	for _, file := range files {
		for _, category := range file.Definition.Categories {
			if existing, ok := seen[category.Key]; ok && existing != file.Path {
				return nil, &catalog.MalformedError{
					Location: file.Path,
					Kind:     "category key",
					Name:     category.Key,
					Reason:   fmt.Sprintf("is also defined in %s", existing),
				}
			}
			seen[category.Key] = file.Path
			merged.Categories = append(merged.Categories, category)
		}
	}
	c, err := merged.Build(producers)
	if err != nil {
		if len(files) == 1 {
			return nil, fmt.Errorf("plugin: %s: %w", files[0].Path, err)
		}
		return nil, fmt.Errorf("plugin: %w", err)
	}
	return c, nil
}

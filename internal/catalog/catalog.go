package catalog

import (
	"fmt"
	"strings"
)

// Catalog is a validated, read-only registry of categories and their APIs.
type Catalog struct {
	categories []Category
	byKey      map[string]int
	apis       []map[string]int
}

// New validates categories in a single pass and returns the catalog. The first
// violated invariant is reported as a *MalformedError; no partial catalog is
// returned. The input slices are copied, so later changes by the caller do not
// leak into the catalog.
func New(categories ...Category) (*Catalog, error) {
	c := &Catalog{
		categories: make([]Category, 0, len(categories)),
		byKey:      make(map[string]int, len(categories)),
		apis:       make([]map[string]int, 0, len(categories)),
	}
	for ci, category := range categories {
		location := fmt.Sprintf("categories[%d]", ci)
		if strings.TrimSpace(category.Key) == "" {
			return nil, &MalformedError{Location: location, Kind: "category key", Reason: "is required"}
		}
		if first, exists := c.byKey[category.Key]; exists {
			return nil, &MalformedError{
				Location: location,
				Kind:     "category key",
				Name:     category.Key,
				Reason:   fmt.Sprintf("duplicates categories[%d]", first),
			}
		}
		names, err := indexAPIs(location, category.APIs)
		if err != nil {
			return nil, err
		}
		c.byKey[category.Key] = ci
		c.apis = append(c.apis, names)
		c.categories = append(c.categories, category.clone())
	}
	return c, nil
}

// MustNew panics if the categories do not form a valid catalog.
func MustNew(categories ...Category) *Catalog {
	c, err := New(categories...)
	if err != nil {
		panic(err)
	}
	return c
}

func indexAPIs(location string, apis []APIEntry) (map[string]int, error) {
	names := make(map[string]int, len(apis))
	for ai, api := range apis {
		apiLocation := fmt.Sprintf("%s.apis[%d]", location, ai)
		if strings.TrimSpace(api.Name) == "" {
			return nil, &MalformedError{Location: apiLocation, Kind: "api name", Reason: "is required"}
		}
		if first, exists := names[api.Name]; exists {
			return nil, &MalformedError{
				Location: apiLocation,
				Kind:     "api name",
				Name:     api.Name,
				Reason:   fmt.Sprintf("duplicates %s.apis[%d]", location, first),
			}
		}
		if err := validateParams(apiLocation, api.Params); err != nil {
			return nil, err
		}
		names[api.Name] = ai
	}
	return names, nil
}

func validateParams(location string, params []ParamSpec) error {
	seen := make(map[string]int, len(params))
	for pi, param := range params {
		paramLocation := fmt.Sprintf("%s.params[%d]", location, pi)
		if strings.TrimSpace(param.Name) == "" {
			return &MalformedError{Location: paramLocation, Kind: "param name", Reason: "is required"}
		}
		if first, exists := seen[param.Name]; exists {
			return &MalformedError{
				Location: paramLocation,
				Kind:     "param name",
				Name:     param.Name,
				Reason:   fmt.Sprintf("duplicates %s.params[%d]", location, first),
			}
		}
		seen[param.Name] = pi
		switch v := param.Value.(type) {
		case Static:
			if f, ok := v.Value.(float64); ok && !isFinite(f) {
				return &MalformedError{Location: paramLocation, Kind: "param value", Name: param.Name, Reason: fmt.Sprintf("must be a finite number, got %v", f)}
			}
			if !IsScalar(v.Value) {
				return &MalformedError{
					Location: paramLocation,
					Kind:     "param value",
					Name:     param.Name,
					Reason:   fmt.Sprintf("must be a plain scalar, got %T", v.Value),
				}
			}
		case Dynamic:
			if v.Fn == nil {
				return &MalformedError{Location: paramLocation, Kind: "param value", Name: param.Name, Reason: "has no producer"}
			}
		default:
			return &MalformedError{Location: paramLocation, Kind: "param value", Name: param.Name, Reason: "is required"}
		}
	}
	return nil
}

// ListCategories returns every category in definition order. The result is a
// copy and may be modified freely.
func (c *Catalog) ListCategories() []Category {
	if c == nil {
		return nil
	}
	out := make([]Category, len(c.categories))
	for i, category := range c.categories {
		out[i] = category.clone()
	}
	return out
}

// Category returns the category registered under key.
func (c *Catalog) Category(key string) (Category, error) {
	if c == nil {
		return Category{}, &NotFoundError{CategoryKey: key, Missing: MissingCategory}
	}
	ci, ok := c.byKey[key]
	if !ok {
		return Category{}, &NotFoundError{CategoryKey: key, Missing: MissingCategory}
	}
	return c.categories[ci].clone(), nil
}

// FindAPI returns the API named apiName inside the category keyed categoryKey.
// Both keys must match exactly; there is no trimming or case folding.
func (c *Catalog) FindAPI(categoryKey, apiName string) (APIEntry, error) {
	if c == nil {
		return APIEntry{}, &NotFoundError{CategoryKey: categoryKey, APIName: apiName, Missing: MissingCategory}
	}
	ci, ok := c.byKey[categoryKey]
	if !ok {
		return APIEntry{}, &NotFoundError{CategoryKey: categoryKey, APIName: apiName, Missing: MissingCategory}
	}
	ai, ok := c.apis[ci][apiName]
	if !ok {
		return APIEntry{}, &NotFoundError{CategoryKey: categoryKey, APIName: apiName, Missing: MissingAPI}
	}
	return c.categories[ci].APIs[ai].clone(), nil
}

// Len returns the number of categories.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.categories)
}

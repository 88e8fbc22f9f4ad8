package r4

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// DanglingReference is a reference whose target is not an entry of the bundle.
type DanglingReference struct {
	Path      string `json:"path"`
	Reference string `json:"reference"`
}

func (d DanglingReference) String() string {
	return fmt.Sprintf("%s -> %s", d.Path, d.Reference)
}

// CheckReferences reports every reference in the bundle that does not match
// the fullUrl of one of its entries.
func (b *Bundle) CheckReferences() ([]DanglingReference, error) {
	data, err := b.ToJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal bundle: %w", err)
	}
	return CheckReferences(data)
}

// CheckReferences parses a serialized bundle and reports references that do
// not resolve inside it.
func CheckReferences(data []byte) ([]DanglingReference, error) {
	var raw struct {
		ResourceType string `json:"resourceType"`
		Entry        []struct {
			FullURL  string                 `json:"fullUrl"`
			Resource map[string]interface{} `json:"resource"`
		} `json:"entry"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse bundle: %w", err)
	}
	if raw.ResourceType != "Bundle" {
		return nil, fmt.Errorf("expected resourceType Bundle, got %q", raw.ResourceType)
	}

	targets := make(map[string]bool, len(raw.Entry))
	for _, e := range raw.Entry {
		if e.FullURL != "" {
			targets[e.FullURL] = true
		}
	}

	var dangling []DanglingReference
	for i, e := range raw.Entry {
		base := "entry[" + strconv.Itoa(i) + "].resource"
		collectReferences(e.Resource, base, func(path, ref string) {
			if !targets[ref] {
				dangling = append(dangling, DanglingReference{Path: path, Reference: ref})
			}
		})
	}
	return dangling, nil
}

// collectReferences walks a decoded resource depth first and calls visit for
// every Reference.reference string it finds.
func collectReferences(node interface{}, path string, visit func(path, ref string)) {
	switch v := node.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			child := v[k]
			if k == "reference" {
				if ref, ok := child.(string); ok && ref != "" {
					visit(path+".reference", ref)
					continue
				}
			}
			collectReferences(child, path+"."+k, visit)
		}
	case []interface{}:
		for i, item := range v {
			collectReferences(item, path+"["+strconv.Itoa(i)+"]", visit)
		}
	}
}

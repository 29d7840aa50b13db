package normalize

import (
	"sort"

	"dp-normalizer/api/internal/fields"
)

// FlatRecord maps canonical field names to raw values. It may be incomplete.
type FlatRecord struct {
	Values map[string]any
	// Dropped lists the keys that matched no field, as "group.key" paths.
	Dropped []string
}

// Flatten merges one level of grouping into a flat record keyed by schema
// names. Group header names carry no meaning: any mapping at the top level is
// a group. Entries inside groups win over top-level values, and groups are
// merged in sorted key order. Mappings nested inside a group are dropped.
func Flatten(obj map[string]any, s *fields.Schema) FlatRecord {
	flat := FlatRecord{Values: make(map[string]any, s.Len())}
	keys := sortedKeys(obj)

	var groups []string
	for _, k := range keys {
		v := obj[k]
		if _, ok := v.(map[string]any); ok {
			groups = append(groups, k)
			continue
		}
		flat.put(s, k, k, v)
	}
	for _, g := range groups {
		inner := obj[g].(map[string]any)
		for _, k := range sortedKeys(inner) {
			v := inner[k]
			path := g + "." + k
			if _, deep := v.(map[string]any); deep {
				flat.Dropped = append(flat.Dropped, path)
				continue
			}
			flat.put(s, k, path, v)
		}
	}
	return flat
}

func (f *FlatRecord) put(s *fields.Schema, key, path string, v any) {
	fd, ok := s.Lookup(key)
	if !ok {
		f.Dropped = append(f.Dropped, path)
		return
	}
	f.Values[fd.Name] = v
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

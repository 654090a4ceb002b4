package reference

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadCatalogs reads every *.yaml/*.yml option catalog in dir. A catalog with
// no explicit name takes its file name.
func LoadCatalogs(dir string) (map[string]Catalog, error) {
	result := make(map[string]Catalog)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || (!strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml")) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		var cat Catalog
		if err := yaml.Unmarshal(data, &cat); err != nil {
			return nil, err
		}
		if cat.Name == "" {
			cat.Name = strings.TrimSuffix(name, filepath.Ext(name))
		}
		sort.SliceStable(cat.Items, func(i, j int) bool { return cat.Items[i].Order < cat.Items[j].Order })
		result[cat.Name] = cat
	}
	return result, nil
}

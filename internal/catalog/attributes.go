package catalog

import "sort"

// AttributeOrder is the display order of known spec attributes
var AttributeOrder = []string{"ram", "storage", "battery", "camera", "processor", "graphics", "display", "os"}

// AttributeNames lists the keys of attrs: known attributes in
// AttributeOrder, then any others sorted
func AttributeNames(attrs map[string]string) []string {
	names := make([]string, 0, len(attrs))
	known := make(map[string]bool, len(AttributeOrder))
	for _, name := range AttributeOrder {
		known[name] = true
		if _, ok := attrs[name]; ok {
			names = append(names, name)
		}
	}

	var extra []string
	for name := range attrs {
		if !known[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(names, extra...)
}

package registry

import (
	"errors"
	"strings"
)

var ErrInvalidService = errors.New("invalid service")

// Descriptor identifies one queueing line. Prefix is the physical counter
// number encoded into every ticket handed out for the service.
type Descriptor struct {
	Name   string `json:"name"`
	Prefix int    `json:"prefix"`
}

var canonical = []Descriptor{
	{Name: "Chứng thực - Hộ tịch", Prefix: 1},
	{Name: "Văn thư", Prefix: 2},
	{Name: "Đất đai", Prefix: 3},
	{Name: "Kinh tế - Hạ tầng", Prefix: 4},
}

// aliases folds historical spellings onto the canonical names: variants
// left behind by a lossy encoding migration (diacritics replaced by "?")
// and renames from earlier service lists.
var aliases = map[string]string{
	"Chứng thực Hộ tịch":    "Chứng thực - Hộ tịch",
	"Chứng thực-Hộ tịch":    "Chứng thực - Hộ tịch",
	"Ch?ng th?c H? t?ch":    "Chứng thực - Hộ tịch",
	"Ch?ng th?c - H? t?ch":  "Chứng thực - Hộ tịch",
	"Văn thư - Lưu trữ":     "Văn thư",
	"V?n th?":               "Văn thư",
	"Đất đai - Môi trường":  "Đất đai",
	"??t ?ai":               "Đất đai",
	"Kinh tế Hạ tầng":       "Kinh tế - Hạ tầng",
	"Kinh t? - H? t?ng":     "Kinh tế - Hạ tầng",
}

var byName = buildIndex()

func buildIndex() map[string]Descriptor {
	index := make(map[string]Descriptor, len(canonical))
	for _, desc := range canonical {
		index[desc.Name] = desc
	}
	return index
}

// Resolve maps a raw service name to its canonical descriptor. Exact match
// wins; otherwise the legacy alias table is consulted.
func Resolve(raw string) (Descriptor, error) {
	name := strings.TrimSpace(raw)
	if desc, ok := byName[name]; ok {
		return desc, nil
	}
	if canon, ok := aliases[name]; ok {
		return byName[canon], nil
	}
	return Descriptor{}, ErrInvalidService
}

// All returns the canonical services in counter-prefix order.
func All() []Descriptor {
	out := make([]Descriptor, len(canonical))
	copy(out, canonical)
	return out
}

// Names returns the canonical service names in counter-prefix order.
func Names() []string {
	names := make([]string, len(canonical))
	for i, desc := range canonical {
		names[i] = desc.Name
	}
	return names
}

package apperrors

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// JSONBody renders the default envelope: {"error": "<base>(<original>)"}.
func (e *Wrappable) JSONBody() []byte {
	body := map[string]string{"error": e.errorField()}
	data, err := json.Marshal(body)
	if err != nil {
		// Marshaling a map[string]string cannot fail; this is unreachable.
		return []byte(`{"error":"internal"}`)
	}
	return data
}

// PlainTextBody renders "<description>\n" followed by a newline-separated
// JSON dump of the extras map, for callers whose Accept header prefers text.
func (e *Wrappable) PlainTextBody() []byte {
	var b strings.Builder
	b.WriteString(e.errorField())
	b.WriteByte('\n')

	keys := make([]string, 0, len(e.extras))
	for k := range e.extras {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		data, err := json.Marshal(e.extras[k])
		if err != nil {
			data = []byte(`null`)
		}
		fmt.Fprintf(&b, "%s: %s\n", k, data)
	}
	return []byte(b.String())
}

func (e *Wrappable) errorField() string {
	if e.original != nil {
		return fmt.Sprintf("%s(%s)", e.base, e.original.Error())
	}
	if e.inner != nil {
		return fmt.Sprintf("%s(%s)", e.base, e.inner.errorField())
	}
	return fmt.Sprintf("%s()", e.base)
}

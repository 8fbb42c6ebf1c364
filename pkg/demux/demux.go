// Package demux splits one group-chat model response into per-speaker
// messages. It is the only parser in the system, and it is deliberately
// lossy: lines that cannot be attributed to a roster member are noise, not
// failure.
package demux

import (
	"strings"

	"yaari/pkg/schema"
)

// Resolve matches a speaker label against the roster, case-insensitively.
// With duplicate names, the first match in roster order wins.
func Resolve(name string, roster []schema.Character) (schema.Character, bool) {
	for _, ch := range roster {
		if strings.EqualFold(ch.Name, name) {
			return ch, true
		}
	}
	return schema.Character{}, false
}

// Demux splits finalText on line boundaries and emits one Message per
// resolvable "Name: text" line, in line order. Lines without a ": "
// separator and lines whose speaker is not in the roster are dropped.
func Demux(finalText string, roster []schema.Character) []schema.Message {
	var out []schema.Message
	for _, line := range strings.Split(finalText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.Contains(line, ": ") {
			continue
		}
		idx := strings.Index(line, ":")
		name := strings.TrimSpace(line[:idx])
		text := strings.TrimSpace(line[idx+1:])
		ch, ok := Resolve(name, roster)
		if !ok {
			continue
		}
		out = append(out, schema.NewMessage(ch.ID, text))
	}
	return out
}

package script

import "strings"

// ParseFlagSpec parses the payload of a [set ...] clause into a flag
// map. The grammar is comma-separated key=value pairs; an optional
// "flag:" prefix on the whole spec or on individual keys is stripped.
// A bare key or the literal "true" yields boolean true, "false" yields
// boolean false, anything else is kept as a string.
func ParseFlagSpec(spec string) map[string]any {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil
	}

	flags := make(map[string]any)
	for _, pair := range strings.Split(spec, ",") {
		pair = strings.TrimSpace(pair)
		if lower := strings.ToLower(pair); strings.HasPrefix(lower, "flag:") {
			pair = pair[len("flag:"):]
		}

		parts := strings.Split(pair, "=")
		key := strings.TrimSpace(parts[0])
		if key == "" {
			continue
		}

		if len(parts) == 1 {
			flags[key] = true
			continue
		}
		switch value := strings.TrimSpace(parts[1]); value {
		case "true":
			flags[key] = true
		case "false":
			flags[key] = false
		default:
			flags[key] = value
		}
	}

	if len(flags) == 0 {
		return nil
	}
	return flags
}

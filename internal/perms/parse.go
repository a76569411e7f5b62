package perms

// DecodeUpdates converts the camelCase permission update objects the
// remote side suggests into typed Updates. Entries that are not
// objects are dropped.
func DecodeUpdates(raw []any) []*Update {
	if len(raw) == 0 {
		return nil
	}

	out := make([]*Update, 0, len(raw))

	for _, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}

		out = append(out, decodeUpdate(obj))
	}

	return out
}

func decodeUpdate(obj map[string]any) *Update {
	u := &Update{}

	if t, ok := obj["type"].(string); ok {
		u.Type = UpdateType(t)
	}

	if d, ok := obj["destination"].(string); ok {
		dest := Destination(d)
		u.Destination = &dest
	}

	if b, ok := obj["behavior"].(string); ok {
		behavior := Behavior(b)
		u.Behavior = &behavior
	}

	if m, ok := obj["mode"].(string); ok {
		mode := Mode(Normalize(m))
		u.Mode = &mode
	}

	if rules, ok := obj["rules"].([]any); ok {
		for _, rr := range rules {
			rule, ok := rr.(map[string]any)
			if !ok {
				continue
			}

			r := &Rule{}
			r.ToolName, _ = rule["toolName"].(string)

			if content, ok := rule["ruleContent"].(string); ok {
				r.RuleContent = &content
			}

			u.Rules = append(u.Rules, r)
		}
	}

	if dirs, ok := obj["directories"].([]any); ok {
		for _, d := range dirs {
			if s, ok := d.(string); ok {
				u.Directories = append(u.Directories, s)
			}
		}
	}

	return u
}

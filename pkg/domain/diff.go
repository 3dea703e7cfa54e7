package domain

// Diff calculates the state delta between two snapshots.
// Added and modified variables map to their new value; deleted variables
// map to nil so clients can merge the delta into a local copy.
// It returns nil when nothing changed.
func Diff(before, after map[string]Value) map[string]any {
	delta := make(map[string]any)

	for name, v := range after {
		old, exists := before[name]
		if !exists || !old.Equal(v) {
			delta[name] = v
		}
	}

	for name := range before {
		if _, exists := after[name]; !exists {
			delta[name] = nil
		}
	}

	// Return nil if delta is empty so omitempty can remove the key
	if len(delta) == 0 {
		return nil
	}
	return delta
}

// Merge applies a delta produced by Diff onto dst.
func Merge(dst map[string]Value, delta map[string]any) {
	for name, raw := range delta {
		switch v := raw.(type) {
		case nil:
			delete(dst, name)
		case Value:
			dst[name] = v
		default:
			if parsed, err := ValueOf(v); err == nil {
				dst[name] = parsed
			}
		}
	}
}

package value

// Merge returns a deep copy of base with partial laid over it. Nested records
// are merged key by key; any other value in partial replaces the base value
// wholesale. Neither input is modified.
func Merge(base, partial Record) Record {
	out := base.Clone()
	if out == nil {
		out = Record{}
	}
	for k, pv := range partial {
		if bv, ok := out[k]; ok && bv.kind == KindRecord && pv.kind == KindRecord {
			out[k] = Object(Merge(bv.rec, pv.rec))
			continue
		}
		out[k] = pv.Clone()
	}
	return out
}

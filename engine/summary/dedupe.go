package summary

// Dedupe drops records whose Resumo was already seen, keeping the first
// occurrence and its position. The input is not modified.
func Dedupe(records []Record) []Record {
	seen := make(map[string]struct{}, len(records))
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if _, ok := seen[r.Resumo]; ok {
			continue
		}
		seen[r.Resumo] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Sentences returns the Resumo of each record in order.
func Sentences(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Resumo
	}
	return out
}

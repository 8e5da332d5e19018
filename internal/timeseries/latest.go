package timeseries

// Snapshot is the most recent observation of one indicator and the change
// from the observation before it.
type Snapshot struct {
	Indicator string  `json:"indicator"`
	Month     Month   `json:"month"`
	Value     float64 `json:"value"`

	// Previous is set when the indicator has an earlier observation.
	Previous *PriorValue `json:"previous,omitempty"`
}

// PriorValue is the observation preceding a snapshot.
type PriorValue struct {
	Month Month   `json:"month"`
	Value float64 `json:"value"`
	Delta float64 `json:"delta"`
}

// Latest returns one snapshot per column that has at least one value, in
// column order. Each indicator is judged on its own observations, so a
// series that lags the others still reports its own latest month.
func Latest(t *Table) []Snapshot {
	if t.Empty() {
		return nil
	}
	months := t.Months()
	var out []Snapshot
	for _, c := range t.Columns() {
		var (
			snap  *Snapshot
			found bool
		)
		for i := len(months) - 1; i >= 0; i-- {
			v, ok := t.Get(months[i], c)
			if !ok {
				continue
			}
			if !found {
				snap = &Snapshot{Indicator: c, Month: months[i], Value: v}
				found = true
				continue
			}
			snap.Previous = &PriorValue{Month: months[i], Value: v, Delta: snap.Value - v}
			break
		}
		if found {
			out = append(out, *snap)
		}
	}
	return out
}

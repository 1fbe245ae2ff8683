package order

// HistoryCapacity is how many orders are kept per user.
const HistoryCapacity = 4

// History is a fixed-capacity, insertion-ordered buffer of records.
// Appending to a full history evicts the oldest record.
type History struct {
	capacity int
	records  []Record
}

// NewHistory builds a history of the given capacity seeded with existing
// records, oldest first. Seeds beyond capacity keep only the newest.
func NewHistory(capacity int, existing ...Record) *History {
	if capacity < 1 {
		capacity = 1
	}
	h := &History{
		capacity: capacity,
		records:  make([]Record, 0, capacity),
	}
	for _, r := range existing {
		h.Append(r)
	}
	return h
}

func (h *History) Append(r Record) {
	if len(h.records) == h.capacity {
		copy(h.records, h.records[1:])
		h.records = h.records[:h.capacity-1]
	}
	h.records = append(h.records, r)
}

func (h *History) Len() int { return len(h.records) }

// Records returns the records oldest first.
func (h *History) Records() []Record {
	out := make([]Record, len(h.records))
	copy(out, h.records)
	return out
}

// NewestFirst returns the records most recent first.
func (h *History) NewestFirst() []Record {
	out := make([]Record, len(h.records))
	for i, r := range h.records {
		out[len(h.records)-1-i] = r
	}
	return out
}

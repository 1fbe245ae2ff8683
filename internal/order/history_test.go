package order

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func rec(n int) Record {
	return Record{OrderID: fmt.Sprintf("ORD-%d-x", n), PizzaID: "p", PizzaName: "P", Price: 1}
}

func ids(rs []Record) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.OrderID
	}
	return out
}

func TestHistoryEvictsOldest(t *testing.T) {
	h := NewHistory(HistoryCapacity)
	for i := 1; i <= 6; i++ {
		h.Append(rec(i))
		assert.LessOrEqual(t, h.Len(), HistoryCapacity)
	}

	assert.Equal(t, []string{"ORD-3-x", "ORD-4-x", "ORD-5-x", "ORD-6-x"}, ids(h.Records()))
	assert.Equal(t, []string{"ORD-6-x", "ORD-5-x", "ORD-4-x", "ORD-3-x"}, ids(h.NewestFirst()))
}

func TestHistorySeedTruncatesToNewest(t *testing.T) {
	h := NewHistory(2, rec(1), rec(2), rec(3))
	assert.Equal(t, []string{"ORD-2-x", "ORD-3-x"}, ids(h.Records()))
}

func TestHistoryRecordsIsACopy(t *testing.T) {
	h := NewHistory(2, rec(1))
	out := h.Records()
	out[0].OrderID = "changed"
	assert.Equal(t, "ORD-1-x", h.Records()[0].OrderID)
}

func TestHistoryEmpty(t *testing.T) {
	h := NewHistory(0)
	assert.Equal(t, 0, h.Len())
	assert.Empty(t, h.NewestFirst())

	h.Append(rec(1))
	h.Append(rec(2))
	assert.Equal(t, []string{"ORD-2-x"}, ids(h.Records()), "capacity is at least one")
}

package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Record is a placed order as stored in the user's history.
type Record struct {
	OrderID   string  `json:"orderId"`
	PizzaID   string  `json:"pizzaId"`
	PizzaName string  `json:"pizzaName"`
	Price     float64 `json:"price"`
	Timestamp string  `json:"timestamp"` // RFC 3339, UTC, millisecond precision
}

// Payload is the order request body.
type Payload struct {
	PizzaID   string  `json:"pizzaId" binding:"required"`
	PizzaName string  `json:"pizzaName" binding:"required"`
	Price     float64 `json:"price" binding:"required,gt=0"`
}

// Valid reports whether p satisfies the same rules the binding tags encode.
func (p Payload) Valid() bool {
	return strings.TrimSpace(p.PizzaID) != "" && strings.TrimSpace(p.PizzaName) != "" && p.Price > 0
}

const (
	idPrefix     = "ORD"
	suffixLength = 8
	timeLayout   = "2006-01-02T15:04:05.000Z07:00"
)

// NewID returns ORD-<unix millis>-<alnum suffix>.
func NewID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:suffixLength]
	return fmt.Sprintf("%s-%d-%s", idPrefix, now.UnixMilli(), suffix)
}

// NewRecord builds the record for an accepted payload.
func NewRecord(p Payload, now time.Time) Record {
	return Record{
		OrderID:   NewID(now),
		PizzaID:   p.PizzaID,
		PizzaName: p.PizzaName,
		Price:     p.Price,
		Timestamp: now.UTC().Format(timeLayout),
	}
}

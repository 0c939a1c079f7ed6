package floor

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"floorstate/internal/domain"
)

// Aggregate derives the per-table floor view from the two working
// sets. Pure: no I/O, never fails, empty inputs yield an empty view.
//
// A table appears iff it has at least one non-terminal order or one
// pending service request. Orders without a table number (takeout,
// delivery) are excluded entirely. Output is ordered by table number
// with numeric-aware comparison, so "2" sorts before "10".
func Aggregate(orders []domain.Order, requests []domain.ServiceRequest) []domain.LiveTable {
	buckets := make(map[string]*domain.LiveTable)

	bucket := func(tn string) *domain.LiveTable {
		if b, ok := buckets[tn]; ok {
			return b
		}
		b := &domain.LiveTable{TableNumber: tn}
		buckets[tn] = b
		return b
	}

	for _, o := range orders {
		tn, ok := o.Table()
		if !ok || !o.Open() {
			continue
		}
		b := bucket(tn)
		b.Orders = append(b.Orders, o)
	}

	for _, r := range requests {
		if r.Status != domain.RequestPending {
			continue
		}
		tn := strings.TrimSpace(r.TableNumber)
		if tn == "" {
			continue
		}
		b := bucket(tn)
		b.ServiceRequests = append(b.ServiceRequests, r)
	}

	out := make([]domain.LiveTable, 0, len(buckets))
	for _, b := range buckets {
		served := 0
		for _, o := range b.Orders {
			b.TotalAmount += o.Total
			switch o.Status {
			case domain.StatusReady:
				b.HasReadyOrders = true
			case domain.StatusServed:
				b.HasServedOrders = true
				served++
			}
		}
		b.AllServed = len(b.Orders) > 0 && served == len(b.Orders)
		out = append(out, *b)
	}

	// collate.Collator is not safe for concurrent use, so each call
	// builds its own.
	c := collate.New(language.Und, collate.Numeric)
	sort.Slice(out, func(i, j int) bool {
		return c.CompareString(out[i].TableNumber, out[j].TableNumber) < 0
	})
	return out
}

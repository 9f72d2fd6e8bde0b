package service

import (
	"math"
	"sort"
	"time"

	"github.com/avetos/rental-backoffice/internal/model"
)

// Need is a consolidated reservation requirement: a quantity of one
// rentable item for a half-open window [StartAt, EndAt).
type Need struct {
	ItemID   uint64
	Quantity int
	StartAt  time.Time
	EndAt    time.Time
}

type needKey struct {
	itemID     uint64
	start, end int64
}

// BuildNeeds converts quotation lines into consolidated reservation
// needs.  The window of a line is its own start/end when set, otherwise
// the event window.  Rentable lines contribute directly; bundle lines
// expand one level into their rentable components, multiplying the
// per-unit component quantity by the line quantity (nested bundles are
// not recursed).  Consumable and service lines, and non-rentable
// components, never generate needs.
//
// Lines whose explicit window is invalid (end not after start) are
// returned in badLines; the caller treats any such line as a validation
// failure rather than silently dropping it.  Needs for the same item
// and identical window are summed.
func BuildNeeds(
	lines []model.QuotationLine,
	meta map[uint64]model.Item,
	components map[uint64][]model.BundleComponent,
	eventStart, eventEnd time.Time,
) (needs []Need, badLines []uint64) {
	acc := make(map[needKey]int)

	for _, l := range lines {
		start, end := eventStart, eventEnd
		if l.StartAt != nil {
			start = *l.StartAt
		}
		if l.EndAt != nil {
			end = *l.EndAt
		}
		if !end.After(start) {
			badLines = append(badLines, l.ID)
			continue
		}

		switch l.ItemType {
		case model.ItemTypeRentable:
			addNeed(acc, l.ItemID, int(math.Round(l.Quantity)), start, end)
		case model.ItemTypeBundle:
			for _, c := range components[l.ItemID] {
				comp, ok := meta[c.ComponentID]
				if !ok || comp.ItemType != model.ItemTypeRentable {
					continue
				}
				qty := int(math.Round(c.Quantity * l.Quantity))
				addNeed(acc, c.ComponentID, qty, start, end)
			}
		}
	}

	needs = make([]Need, 0, len(acc))
	for k, qty := range acc {
		needs = append(needs, Need{
			ItemID:   k.itemID,
			Quantity: qty,
			StartAt:  time.Unix(k.start, 0).UTC(),
			EndAt:    time.Unix(k.end, 0).UTC(),
		})
	}
	sort.Slice(needs, func(i, j int) bool {
		if needs[i].ItemID != needs[j].ItemID {
			return needs[i].ItemID < needs[j].ItemID
		}
		return needs[i].StartAt.Before(needs[j].StartAt)
	})
	return needs, badLines
}

func addNeed(acc map[needKey]int, itemID uint64, qty int, start, end time.Time) {
	if qty <= 0 {
		return
	}
	acc[needKey{itemID: itemID, start: start.UTC().Unix(), end: end.UTC().Unix()}] += qty
}

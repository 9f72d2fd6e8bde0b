package service

import (
	"testing"
	"time"

	"github.com/avetos/rental-backoffice/internal/model"
)

func rentable(id uint64) model.Item {
	return model.Item{ID: id, ItemType: model.ItemTypeRentable, Active: true}
}

func TestBuildNeedsEventWindowFallback(t *testing.T) {
	lines := []model.QuotationLine{
		{ID: 1, ItemID: 10, ItemType: model.ItemTypeRentable, Quantity: 2},
	}
	meta := map[uint64]model.Item{10: rentable(10)}
	needs, bad := BuildNeeds(lines, meta, nil, jan(10, 8), jan(12, 8))
	if len(bad) != 0 {
		t.Fatalf("unexpected bad lines: %v", bad)
	}
	if len(needs) != 1 {
		t.Fatalf("got %d needs, want 1", len(needs))
	}
	n := needs[0]
	if n.ItemID != 10 || n.Quantity != 2 || !n.StartAt.Equal(jan(10, 8)) || !n.EndAt.Equal(jan(12, 8)) {
		t.Errorf("need = %+v", n)
	}
}

func TestBuildNeedsLineWindowOverridesEvent(t *testing.T) {
	lines := []model.QuotationLine{
		{ID: 1, ItemID: 10, ItemType: model.ItemTypeRentable, Quantity: 1,
			StartAt: timep(jan(11, 0)), EndAt: timep(jan(13, 0))},
	}
	meta := map[uint64]model.Item{10: rentable(10)}
	needs, _ := BuildNeeds(lines, meta, nil, jan(10, 0), jan(12, 0))
	if len(needs) != 1 || !needs[0].StartAt.Equal(jan(11, 0)) || !needs[0].EndAt.Equal(jan(13, 0)) {
		t.Errorf("needs = %+v", needs)
	}
}

func TestBuildNeedsBundleExpansion(t *testing.T) {
	// Bundle 20 = 2× item 10 (rentable) + 1× item 11 (consumable) + 1× item 12 (rentable).
	lines := []model.QuotationLine{
		{ID: 1, ItemID: 20, ItemType: model.ItemTypeBundle, Quantity: 3},
	}
	meta := map[uint64]model.Item{
		10: rentable(10),
		11: {ID: 11, ItemType: model.ItemTypeConsumable, Active: true},
		12: rentable(12),
	}
	components := map[uint64][]model.BundleComponent{
		20: {
			{BundleID: 20, ComponentID: 10, Quantity: 2},
			{BundleID: 20, ComponentID: 11, Quantity: 1},
			{BundleID: 20, ComponentID: 12, Quantity: 1},
		},
	}
	needs, bad := BuildNeeds(lines, meta, components, jan(10, 0), jan(12, 0))
	if len(bad) != 0 {
		t.Fatalf("unexpected bad lines: %v", bad)
	}
	if len(needs) != 2 {
		t.Fatalf("got %d needs, want 2 (consumable component must be skipped): %+v", len(needs), needs)
	}
	// Needs come back sorted by item id.
	if needs[0].ItemID != 10 || needs[0].Quantity != 6 {
		t.Errorf("component 10 need = %+v, want qty 6", needs[0])
	}
	if needs[1].ItemID != 12 || needs[1].Quantity != 3 {
		t.Errorf("component 12 need = %+v, want qty 3", needs[1])
	}
}

func TestBuildNeedsConsolidatesSameItemAndWindow(t *testing.T) {
	// A direct rentable line and a bundle expanding to the same item over
	// the same window must merge into one need.
	lines := []model.QuotationLine{
		{ID: 1, ItemID: 10, ItemType: model.ItemTypeRentable, Quantity: 2},
		{ID: 2, ItemID: 20, ItemType: model.ItemTypeBundle, Quantity: 1},
	}
	meta := map[uint64]model.Item{10: rentable(10)}
	components := map[uint64][]model.BundleComponent{
		20: {{BundleID: 20, ComponentID: 10, Quantity: 4}},
	}
	needs, _ := BuildNeeds(lines, meta, components, jan(10, 0), jan(12, 0))
	if len(needs) != 1 || needs[0].Quantity != 6 {
		t.Errorf("needs = %+v, want one need of qty 6", needs)
	}
}

func TestBuildNeedsDistinctWindowsStaySeparate(t *testing.T) {
	lines := []model.QuotationLine{
		{ID: 1, ItemID: 10, ItemType: model.ItemTypeRentable, Quantity: 1},
		{ID: 2, ItemID: 10, ItemType: model.ItemTypeRentable, Quantity: 1,
			StartAt: timep(jan(15, 0)), EndAt: timep(jan(16, 0))},
	}
	meta := map[uint64]model.Item{10: rentable(10)}
	needs, _ := BuildNeeds(lines, meta, nil, jan(10, 0), jan(12, 0))
	if len(needs) != 2 {
		t.Fatalf("got %d needs, want 2: %+v", len(needs), needs)
	}
}

func TestBuildNeedsServiceAndConsumableLinesIgnored(t *testing.T) {
	lines := []model.QuotationLine{
		{ID: 1, ItemID: 30, ItemType: model.ItemTypeService, Quantity: 5},
		{ID: 2, ItemID: 31, ItemType: model.ItemTypeConsumable, Quantity: 100},
	}
	needs, bad := BuildNeeds(lines, nil, nil, jan(10, 0), jan(12, 0))
	if len(needs) != 0 || len(bad) != 0 {
		t.Errorf("needs=%v bad=%v, want none", needs, bad)
	}
}

func TestBuildNeedsMissingWindowIsBadLine(t *testing.T) {
	// No event and no line window: zero times, end is not after start.
	lines := []model.QuotationLine{
		{ID: 7, ItemID: 10, ItemType: model.ItemTypeRentable, Quantity: 1},
	}
	meta := map[uint64]model.Item{10: rentable(10)}
	needs, bad := BuildNeeds(lines, meta, nil, time.Time{}, time.Time{})
	if len(needs) != 0 {
		t.Errorf("unexpected needs: %+v", needs)
	}
	if len(bad) != 1 || bad[0] != 7 {
		t.Errorf("bad = %v, want [7]", bad)
	}
}

func TestBuildNeedsInvertedLineWindowIsBadLine(t *testing.T) {
	lines := []model.QuotationLine{
		{ID: 3, ItemID: 10, ItemType: model.ItemTypeRentable, Quantity: 1,
			StartAt: timep(jan(12, 0)), EndAt: timep(jan(10, 0))},
	}
	meta := map[uint64]model.Item{10: rentable(10)}
	_, bad := BuildNeeds(lines, meta, nil, jan(1, 0), jan(2, 0))
	if len(bad) != 1 || bad[0] != 3 {
		t.Errorf("bad = %v, want [3]", bad)
	}
}

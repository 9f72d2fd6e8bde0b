package model

import "time"

// Item types as stored in the items.item_type column.  Rentable items
// occupy limited concurrent capacity per time window; consumables and
// services never generate reservations; bundles expand into component
// items at acceptance time.
const (
	ItemTypeRentable   = "rentable"
	ItemTypeConsumable = "consumable"
	ItemTypeService    = "service"
	ItemTypeBundle     = "bundle"
)

// ValidItemType reports whether t is one of the accepted item types.
func ValidItemType(t string) bool {
	switch t {
	case ItemTypeRentable, ItemTypeConsumable, ItemTypeService, ItemTypeBundle:
		return true
	}
	return false
}

// Item represents a catalog entry in the `items` table.  DefaultRate and
// TaxRate are snapshotted onto quotation lines at line-add time, so later
// edits to the item never change existing quotes.
//
// Fields:
//  ID               – primary key identifier.
//  SKU              – unique stock keeping unit code.
//  Name             – display name.
//  ItemType         – one of rentable, consumable, service, bundle.
//  Unit             – billing unit (e.g. "unit", "day", "hour").
//  DefaultRate      – default unit price.
//  TaxRate          – default tax percentage (0–100).
//  RentableCapacity – max units rentable in parallel; nil means the
//                     capacity derives from the count of active assets.
//  SupplierID       – preferred supplier for restocking; optional.
//  Active           – whether the item can be added to new quotes.
type Item struct {
	ID               uint64
	SKU              string
	Name             string
	ItemType         string
	Unit             string
	DefaultRate      float64
	TaxRate          float64
	RentableCapacity *int
	SupplierID       *uint64
	Active           bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// BundleComponent maps a bundle item to one of its component items.
// Quantity is the number of component units included per single unit of
// the bundle.  Rows are only meaningful when the parent item's type is
// bundle.
type BundleComponent struct {
	BundleID    uint64
	ComponentID uint64
	Quantity    float64
}

// InventoryBalance tracks stock of a consumable item.  OnHand is the
// current quantity in the warehouse; MinLevel is the reorder threshold.
// Rentable items are not tracked here, their availability is derived
// from reservations.
type InventoryBalance struct {
	ItemID    uint64
	OnHand    float64
	MinLevel  float64
	UpdatedAt time.Time
}

// Asset is a serialized physical unit of an item.  When an item has no
// explicit rentable capacity, its capacity is the number of active
// assets.
type Asset struct {
	ID        uint64
	ItemID    uint64
	SerialNo  string
	Active    bool
	CreatedAt time.Time
}

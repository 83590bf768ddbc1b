package events

import (
	"encoding/hex"
	"strconv"

	"popmarket/core/types"
)

const (
	TypeInventoryAdded    = "inventory.added"
	TypeInventoryVerified = "inventory.verified"
	TypeInventoryReserved = "inventory.reserved"
	TypeInventoryReleased = "inventory.released"
)

// InventoryAdded is emitted when a seller registers raw stock for a SKU size.
type InventoryAdded struct {
	Seller [20]byte
	SKU    uint64
	Size   string
	Qty    uint64
}

func (InventoryAdded) EventType() string { return TypeInventoryAdded }

func (e InventoryAdded) Event() *types.Event {
	return &types.Event{
		Type:       TypeInventoryAdded,
		Attributes: inventoryAttributes(e.Seller, e.SKU, e.Size, e.Qty, 0),
	}
}

// InventoryVerified is emitted when a verifier attests a sub-quantity of raw
// stock.
type InventoryVerified struct {
	Seller     [20]byte
	SKU        uint64
	Size       string
	Qty        uint64
	VerifiedAt int64
}

func (InventoryVerified) EventType() string { return TypeInventoryVerified }

func (e InventoryVerified) Event() *types.Event {
	return &types.Event{
		Type:       TypeInventoryVerified,
		Attributes: inventoryAttributes(e.Seller, e.SKU, e.Size, e.Qty, e.VerifiedAt),
	}
}

// InventoryReserved is emitted when verified units are moved out of the pool to
// back a listing.
type InventoryReserved struct {
	Seller [20]byte
	SKU    uint64
	Size   string
	Qty    uint64
}

func (InventoryReserved) EventType() string { return TypeInventoryReserved }

func (e InventoryReserved) Event() *types.Event {
	return &types.Event{
		Type:       TypeInventoryReserved,
		Attributes: inventoryAttributes(e.Seller, e.SKU, e.Size, e.Qty, 0),
	}
}

// InventoryReleased is emitted when previously reserved units are restored to
// the verified pool.
type InventoryReleased struct {
	Seller [20]byte
	SKU    uint64
	Size   string
	Qty    uint64
}

func (InventoryReleased) EventType() string { return TypeInventoryReleased }

func (e InventoryReleased) Event() *types.Event {
	return &types.Event{
		Type:       TypeInventoryReleased,
		Attributes: inventoryAttributes(e.Seller, e.SKU, e.Size, e.Qty, 0),
	}
}

func inventoryAttributes(seller [20]byte, sku uint64, size string, qty uint64, ts int64) map[string]string {
	attrs := map[string]string{
		"seller": hex.EncodeToString(seller[:]),
		"sku":    strconv.FormatUint(sku, 10),
		"size":   size,
		"qty":    strconv.FormatUint(qty, 10),
	}
	if ts > 0 {
		attrs["verifiedAt"] = intToString(ts)
	}
	return attrs
}

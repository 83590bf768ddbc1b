package events

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"popmarket/core/types"
)

const (
	TypeCustodyMinted   = "custody.minted"
	TypeCustodyLocked   = "custody.locked"
	TypeCustodyReleased = "custody.released"
	TypeCustodyReturned = "custody.returned"
)

// CustodyMinted is emitted when new proof-of-purchase units are minted into a
// seller's tradable balance.
type CustodyMinted struct {
	SKU    uint64
	To     [20]byte
	Size   string
	Qty    uint64
	Minter [20]byte
}

func (CustodyMinted) EventType() string { return TypeCustodyMinted }

func (e CustodyMinted) Event() *types.Event {
	return &types.Event{
		Type: TypeCustodyMinted,
		Attributes: map[string]string{
			"sku":    strconv.FormatUint(e.SKU, 10),
			"to":     hex.EncodeToString(e.To[:]),
			"size":   e.Size,
			"qty":    strconv.FormatUint(e.Qty, 10),
			"minter": hex.EncodeToString(e.Minter[:]),
		},
	}
}

// CustodyLocked is emitted when units move from a seller's tradable balance
// into the contract escrow account.
type CustodyLocked struct {
	SKU    uint64
	Seller [20]byte
	Size   string
	Qty    uint64
}

func (CustodyLocked) EventType() string { return TypeCustodyLocked }

func (e CustodyLocked) Event() *types.Event {
	return &types.Event{
		Type: TypeCustodyLocked,
		Attributes: map[string]string{
			"sku":    strconv.FormatUint(e.SKU, 10),
			"seller": hex.EncodeToString(e.Seller[:]),
			"size":   e.Size,
			"qty":    strconv.FormatUint(e.Qty, 10),
		},
	}
}

// CustodyReleased is emitted when escrowed units are handed to the buyer on a
// verified delivery.
type CustodyReleased struct {
	SKU    uint64
	Seller [20]byte
	Buyer  [20]byte
	Size   string
	Qty    uint64
}

func (CustodyReleased) EventType() string { return TypeCustodyReleased }

func (e CustodyReleased) Event() *types.Event {
	return &types.Event{
		Type: TypeCustodyReleased,
		Attributes: map[string]string{
			"sku":    strconv.FormatUint(e.SKU, 10),
			"seller": hex.EncodeToString(e.Seller[:]),
			"buyer":  hex.EncodeToString(e.Buyer[:]),
			"size":   e.Size,
			"qty":    strconv.FormatUint(e.Qty, 10),
		},
	}
}

// CustodyReturned is emitted when escrowed units are returned to the seller on
// a cancelled listing or order.
type CustodyReturned struct {
	SKU    uint64
	Seller [20]byte
	Size   string
	Qty    uint64
}

func (CustodyReturned) EventType() string { return TypeCustodyReturned }

func (e CustodyReturned) Event() *types.Event {
	return &types.Event{
		Type: TypeCustodyReturned,
		Attributes: map[string]string{
			"sku":    strconv.FormatUint(e.SKU, 10),
			"seller": hex.EncodeToString(e.Seller[:]),
			"size":   e.Size,
			"qty":    strconv.FormatUint(e.Qty, 10),
		},
	}
}

func intToString(v int64) string {
	return big.NewInt(v).String()
}

package market

import (
	"math/big"

	"popmarket/native/access"
)

// ConfirmDelivery finalises an order in the buyer's favour: the escrowed
// custody unit is released to the buyer, the order escrow moves into the
// seller's withdrawable balance and the order becomes Delivered. Verifier
// gated; valid only from Created. The custody transfer happens before any
// state is written so a custody failure aborts the whole call cleanly.
func (e *Engine) ConfirmDelivery(caller [20]byte, orderID uint64) error {
	return e.settleOrder(caller, orderID, OrderDelivered)
}

// CancelOrder finalises an order in the buyer's favour monetarily: the custody
// unit returns to the seller and the full escrow is credited to the buyer with
// no deduction. Verifier gated; valid only from Created.
func (e *Engine) CancelOrder(caller [20]byte, orderID uint64) error {
	return e.settleOrder(caller, orderID, OrderCancelled)
}

func (e *Engine) settleOrder(caller [20]byte, orderID uint64, terminal OrderState) error {
	if err := e.lock.Enter(); err != nil {
		return err
	}
	defer e.lock.Exit()
	if err := e.guardMutating(); err != nil {
		return err
	}
	if e.access == nil || !e.access.HasRole(access.RoleVerifier, caller[:]) {
		return ErrUnauthorized
	}
	order, ok := e.state.OrderGet(orderID)
	if !ok {
		return ErrInvalidOrder
	}
	if order.State != OrderCreated {
		return ErrInvalidState
	}
	if e.catalog == nil {
		return errNilCatalog
	}
	token, ok := e.catalog.TokenFor(order.SKU)
	if !ok {
		return ErrInvalidOrder
	}
	var creditTo [20]byte
	var eventType string
	var outcome string
	switch terminal {
	case OrderDelivered:
		if err := token.ReleaseTokensToBuyer(order.Seller, order.Buyer, order.Size, 1); err != nil {
			return err
		}
		creditTo = order.Seller
		eventType = EventTypeOrderDelivered
		outcome = "delivered"
	case OrderCancelled:
		if err := token.ReturnTokensToSeller(order.Seller, order.Buyer, order.Size, 1); err != nil {
			return err
		}
		creditTo = order.Buyer
		eventType = EventTypeOrderCancelled
		outcome = "cancelled"
	default:
		return ErrInvalidState
	}
	escrow := e.state.OrderEscrow(orderID)
	if err := e.state.SetOrderEscrow(orderID, big.NewInt(0)); err != nil {
		return err
	}
	owed := e.state.OwedFunds(creditTo)
	if err := e.state.SetOwedFunds(creditTo, new(big.Int).Add(owed, escrow)); err != nil {
		return err
	}
	order.State = terminal
	if err := e.state.OrderPut(order); err != nil {
		return err
	}
	if err := e.state.SetLockedInventory(order.ListingID, 0); err != nil {
		return err
	}
	e.emit(newOrderEvent(eventType, order))
	e.telemetry.RecordOrderSettled(outcome)
	e.telemetry.AddEscrowHeld(-float64(escrow.Int64()))
	return nil
}

// PayDeliveryFees pulls the delivery fee from the buyer into the protocol fee
// accumulator. Buyer only; valid only while the order is Created and only
// once per order regardless of amount.
func (e *Engine) PayDeliveryFees(caller [20]byte, orderID uint64, amount *big.Int) error {
	if err := e.lock.Enter(); err != nil {
		return err
	}
	defer e.lock.Exit()
	if err := e.guardMutating(); err != nil {
		return err
	}
	order, ok := e.state.OrderGet(orderID)
	if !ok {
		return ErrInvalidOrder
	}
	if order.Buyer != caller {
		return ErrUnauthorized
	}
	if order.State != OrderCreated {
		return ErrInvalidState
	}
	if e.state.OrderFeesPaid(orderID) {
		return ErrDeliveryFeesAlreadyPaid
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidPrice
	}
	if err := e.pullFunds(caller, amount); err != nil {
		return err
	}
	fees := e.state.AccumulatedFees()
	if err := e.state.SetAccumulatedFees(new(big.Int).Add(fees, amount)); err != nil {
		return err
	}
	if err := e.state.SetOrderFeesPaid(orderID); err != nil {
		return err
	}
	e.emit(newFeesEvent(EventTypeFeesPaid, orderID, amount))
	e.telemetry.AddAccumulatedFees(float64(amount.Int64()))
	return nil
}

// WithdrawDeliveryFees transfers the accumulated delivery fees to the calling
// admin. The accumulator is zeroed before the outgoing transfer and restored
// if the transfer fails, so the call is all-or-nothing.
func (e *Engine) WithdrawDeliveryFees(caller [20]byte) (*big.Int, error) {
	if err := e.lock.Enter(); err != nil {
		return nil, err
	}
	defer e.lock.Exit()
	if err := e.guardMutating(); err != nil {
		return nil, err
	}
	if e.access == nil || !e.access.HasRole(access.RoleAdmin, caller[:]) {
		return nil, ErrUnauthorized
	}
	fees := e.state.AccumulatedFees()
	if fees.Sign() == 0 {
		return nil, ErrNoFeesToWithdraw
	}
	if e.funds == nil {
		return nil, errNilFunds
	}
	if err := e.state.SetAccumulatedFees(big.NewInt(0)); err != nil {
		return nil, err
	}
	if err := e.funds.Transfer(e.vault, caller, fees); err != nil {
		if restoreErr := e.state.SetAccumulatedFees(fees); restoreErr != nil {
			return nil, restoreErr
		}
		return nil, err
	}
	e.emit(newFeesEvent(EventTypeFeesWithdrawn, 0, fees))
	e.telemetry.RecordWithdrawal("fees")
	e.telemetry.AddAccumulatedFees(-float64(fees.Int64()))
	return fees, nil
}

// WithdrawFunds transfers the caller's withdrawable credit out of the vault.
// The balance is zeroed before the outgoing transfer and restored if the
// transfer fails.
func (e *Engine) WithdrawFunds(caller [20]byte) (*big.Int, error) {
	if err := e.lock.Enter(); err != nil {
		return nil, err
	}
	defer e.lock.Exit()
	if err := e.guardMutating(); err != nil {
		return nil, err
	}
	owed := e.state.OwedFunds(caller)
	if owed.Sign() == 0 {
		return nil, ErrNoFeesToWithdraw
	}
	if e.funds == nil {
		return nil, errNilFunds
	}
	if err := e.state.SetOwedFunds(caller, big.NewInt(0)); err != nil {
		return nil, err
	}
	if err := e.funds.Transfer(e.vault, caller, owed); err != nil {
		if restoreErr := e.state.SetOwedFunds(caller, owed); restoreErr != nil {
			return nil, restoreErr
		}
		return nil, err
	}
	e.emit(newWithdrawalEvent(caller, owed))
	e.telemetry.RecordWithdrawal("funds")
	return owed, nil
}

// Pause blocks all state-mutating entry points. Verifier gated; view
// functions remain available and completed operations are never rolled back.
func (e *Engine) Pause(caller [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.access == nil || !e.access.HasRole(access.RoleVerifier, caller[:]) {
		return ErrUnauthorized
	}
	if err := e.state.SetMarketPaused(true); err != nil {
		return err
	}
	e.emit(newPauseEvent(EventTypeMarketPaused))
	return nil
}

// Unpause re-enables state-mutating entry points. Verifier gated.
func (e *Engine) Unpause(caller [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.access == nil || !e.access.HasRole(access.RoleVerifier, caller[:]) {
		return ErrUnauthorized
	}
	if err := e.state.SetMarketPaused(false); err != nil {
		return err
	}
	e.emit(newPauseEvent(EventTypeMarketResumed))
	return nil
}

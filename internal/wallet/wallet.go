// Package wallet keeps the balance and locked funds of a backtest.
//
// Amounts are held as decimals so that repeated lock, unlock and commit cycles do not
// accumulate floating point drift. Every mutation that would make the free balance negative
// is rejected without changing the wallet.
package wallet

import (
	"math"

	"github.com/shopspring/decimal"
)

type Wallet struct {
	initial decimal.Decimal
	balance decimal.Decimal
	locked  decimal.Decimal
}

// NewWallet creates a wallet holding initialBalance. Negative balances are clamped to zero.
func NewWallet(initialBalance float64) *Wallet {
	initial := decimal.Zero
	if valid(initialBalance) && initialBalance > 0 {
		initial = decimal.NewFromFloat(initialBalance)
	}

	return &Wallet{
		initial: initial,
		balance: initial,
		locked:  decimal.Zero,
	}
}

func valid(amount float64) bool {
	return !math.IsNaN(amount) && !math.IsInf(amount, 0)
}

func (w *Wallet) free() decimal.Decimal {
	return w.balance.Sub(w.locked)
}

// Lock reserves amount if the free balance covers it.
func (w *Wallet) Lock(amount float64) bool {
	if !valid(amount) || amount < 0 {
		return false
	}

	d := decimal.NewFromFloat(amount)
	if w.free().LessThan(d) {
		return false
	}

	w.locked = w.locked.Add(d)

	return true
}

// Unlock releases up to amount of locked funds. Locked funds never go below zero.
func (w *Wallet) Unlock(amount float64) {
	if !valid(amount) || amount <= 0 {
		return
	}

	w.locked = w.locked.Sub(decimal.Min(decimal.NewFromFloat(amount), w.locked))
}

// Sub withdraws amount from the balance if the free balance covers it.
func (w *Wallet) Sub(amount float64) bool {
	if !valid(amount) || amount < 0 {
		return false
	}

	d := decimal.NewFromFloat(amount)
	if w.free().LessThan(d) {
		return false
	}

	w.balance = w.balance.Sub(d)

	return true
}

// Add credits amount to the balance. Negative amounts are ignored; losses go through Sub.
func (w *Wallet) Add(amount float64) {
	if !valid(amount) || amount <= 0 {
		return
	}

	w.balance = w.balance.Add(decimal.NewFromFloat(amount))
}

func (w *Wallet) FreeBalance() float64 {
	return w.free().InexactFloat64()
}

func (w *Wallet) Balance() float64 {
	return w.balance.InexactFloat64()
}

func (w *Wallet) Locked() float64 {
	return w.locked.InexactFloat64()
}

func (w *Wallet) InitialBalance() float64 {
	return w.initial.InexactFloat64()
}

// Reset restores the initial balance and releases every lock.
func (w *Wallet) Reset() {
	w.balance = w.initial
	w.locked = decimal.Zero
}

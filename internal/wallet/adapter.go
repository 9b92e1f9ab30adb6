// Package wallet applies settlement actions to wallet balances and the
// trade log. Every operation commits the balance change and the trade
// record together or not at all.
package wallet

import (
	"fmt"
	"time"

	"tradeflow/internal/store"
	"tradeflow/internal/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Adapter is the execution adapter over the entity store's wallets.
type Adapter struct {
	store *store.EntityStore
}

// New creates an Adapter.
func New(s *store.EntityStore) *Adapter {
	return &Adapter{store: s}
}

// Airdrop credits the wallet and records an AIRDROP trade.
func (a *Adapter) Airdrop(address string, amount decimal.Decimal) (types.Trade, error) {
	if amount.Sign() <= 0 {
		return types.Trade{}, fmt.Errorf("airdrop amount must be positive")
	}
	trade := newTrade("airdrop", types.TradeAirdrop, "SOL", amount, decimal.Zero, decimal.Zero)
	err := a.store.ApplyTrade(address, func(w *types.Wallet) error {
		w.BalanceSOL = w.BalanceSOL.Add(amount)
		return nil
	}, trade)
	if err != nil {
		return types.Trade{}, err
	}
	return trade, nil
}

// Buy debits price*quantity from the wallet and records a BUY trade.
// Returns ErrInsufficientFunds, leaving wallet and trade log untouched,
// when the balance cannot cover the cost.
func (a *Adapter) Buy(address, asset string, quantity, price decimal.Decimal) (types.Trade, error) {
	if quantity.Sign() <= 0 || price.Sign() < 0 {
		return types.Trade{}, fmt.Errorf("invalid buy quantity/price")
	}
	cost := price.Mul(quantity)
	trade := newTrade("buy", types.TradeBuy, asset, quantity, price, decimal.Zero)
	err := a.store.ApplyTrade(address, func(w *types.Wallet) error {
		if w.BalanceSOL.LessThan(cost) {
			return store.ErrInsufficientFunds
		}
		w.BalanceSOL = w.BalanceSOL.Sub(cost)
		return nil
	}, trade)
	if err != nil {
		return types.Trade{}, err
	}
	return trade, nil
}

// Sell credits price*quantity to the wallet and records a SELL trade.
func (a *Adapter) Sell(address, asset string, quantity, price decimal.Decimal) (types.Trade, error) {
	if quantity.Sign() <= 0 || price.Sign() < 0 {
		return types.Trade{}, fmt.Errorf("invalid sell quantity/price")
	}
	proceeds := price.Mul(quantity)
	trade := newTrade("sell", types.TradeSell, asset, quantity, price, decimal.Zero)
	err := a.store.ApplyTrade(address, func(w *types.Wallet) error {
		w.BalanceSOL = w.BalanceSOL.Add(proceeds)
		return nil
	}, trade)
	if err != nil {
		return types.Trade{}, err
	}
	return trade, nil
}

func newTrade(strategyID string, action types.TradeAction, asset string, qty, price, pnl decimal.Decimal) types.Trade {
	return types.Trade{
		ID:         uuid.NewString(),
		StrategyID: strategyID,
		Action:     action,
		Asset:      asset,
		Quantity:   qty,
		Price:      price,
		PnL:        pnl,
		Status:     types.TradeClosedStatus,
		ExecutedAt: time.Now().UTC(),
		Duration:   "00:00:01",
	}
}

package wallet

import (
	"testing"

	"tradeflow/internal/store"
	"tradeflow/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFundedStore(t *testing.T, balance float64) *store.EntityStore {
	t.Helper()
	s := store.New()
	s.PutWallet(types.Wallet{Address: "w1", BalanceSOL: decimal.NewFromFloat(balance)})
	return s
}

func TestAirdrop(t *testing.T) {
	s := newFundedStore(t, 0)
	a := New(s)

	trade, err := a.Airdrop("w1", decimal.NewFromFloat(2.5))
	require.NoError(t, err)
	assert.Equal(t, types.TradeAirdrop, trade.Action)
	assert.Equal(t, "airdrop", trade.StrategyID)
	assert.Equal(t, types.TradeClosedStatus, trade.Status)

	w, _ := s.GetWallet("w1")
	assert.True(t, w.BalanceSOL.Equal(decimal.NewFromFloat(2.5)))
	assert.Len(t, s.ListTrades(nil, 0), 1)
}

func TestAirdropRejectsNonPositive(t *testing.T) {
	a := New(newFundedStore(t, 0))
	_, err := a.Airdrop("w1", decimal.Zero)
	assert.Error(t, err)
}

func TestAirdropUnknownWallet(t *testing.T) {
	a := New(store.New())
	_, err := a.Airdrop("ghost", decimal.NewFromFloat(1))
	assert.ErrorIs(t, err, store.ErrWalletNotFound)
}

func TestBuyDebitsCost(t *testing.T) {
	s := newFundedStore(t, 10)
	a := New(s)

	trade, err := a.Buy("w1", "BONK", decimal.NewFromFloat(4), decimal.NewFromFloat(1.5))
	require.NoError(t, err)
	assert.Equal(t, types.TradeBuy, trade.Action)
	assert.Equal(t, "BONK", trade.Asset)

	w, _ := s.GetWallet("w1")
	assert.True(t, w.BalanceSOL.Equal(decimal.NewFromFloat(4)), "10 - 4*1.5 = 4")
}

func TestBuyInsufficientFundsLeavesNoTrace(t *testing.T) {
	s := newFundedStore(t, 1)
	a := New(s)

	_, err := a.Buy("w1", "BONK", decimal.NewFromFloat(4), decimal.NewFromFloat(1.5))
	require.ErrorIs(t, err, store.ErrInsufficientFunds)

	w, _ := s.GetWallet("w1")
	assert.True(t, w.BalanceSOL.Equal(decimal.NewFromFloat(1)), "failed buy must not touch the balance")
	assert.Empty(t, s.ListTrades(nil, 0), "failed buy must not record a trade")
}

func TestBuyExactBalanceSucceeds(t *testing.T) {
	s := newFundedStore(t, 6)
	a := New(s)

	_, err := a.Buy("w1", "JUP", decimal.NewFromFloat(4), decimal.NewFromFloat(1.5))
	require.NoError(t, err)
	w, _ := s.GetWallet("w1")
	assert.True(t, w.BalanceSOL.IsZero())
}

func TestSellCreditsProceeds(t *testing.T) {
	s := newFundedStore(t, 1)
	a := New(s)

	trade, err := a.Sell("w1", "RAY", decimal.NewFromFloat(2), decimal.NewFromFloat(0.25))
	require.NoError(t, err)
	assert.Equal(t, types.TradeSell, trade.Action)

	w, _ := s.GetWallet("w1")
	assert.True(t, w.BalanceSOL.Equal(decimal.NewFromFloat(1.5)))
}

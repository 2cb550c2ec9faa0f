package ledger

import (
	"errors"
	"math/big"
	"testing"

	"emberchain/native/common"
)

func addr(index byte) [20]byte {
	var out [20]byte
	out[19] = index
	return out
}

func newBoundToken(t *testing.T, genesis map[[20]byte]*big.Int) (*Token, *EngineSession) {
	t.Helper()
	token := NewToken(genesis)
	session, err := token.Bind(addr(0xEE))
	if err != nil {
		t.Fatalf("bind engine: %v", err)
	}
	return token, session
}

func TestBindRejectsRebindToDifferentEngine(t *testing.T) {
	token := NewToken(nil)
	if _, err := token.Bind(addr(1)); err != nil {
		t.Fatalf("first bind: %v", err)
	}
	if _, err := token.Bind(addr(1)); err != nil {
		t.Fatalf("rebind same engine should succeed: %v", err)
	}
	_, err := token.Bind(addr(2))
	if !errors.Is(err, common.ErrAlreadyConfigured) {
		t.Fatalf("expected already-configured error, got %v", err)
	}
	if _, err := token.Bind([20]byte{}); !errors.Is(err, common.ErrValidation) {
		t.Fatalf("expected validation error for zero address, got %v", err)
	}
}

func TestCustodyRoundTrip(t *testing.T) {
	holder := addr(5)
	token, session := newBoundToken(t, map[[20]byte]*big.Int{holder: big.NewInt(1000)})
	if err := session.TransferIn(holder, big.NewInt(400)); err != nil {
		t.Fatalf("transfer in: %v", err)
	}
	if got := token.BalanceOf(holder); got.Cmp(big.NewInt(600)) != 0 {
		t.Fatalf("balance after transfer in: %s", got)
	}
	if err := session.TransferOut(holder, big.NewInt(150)); err != nil {
		t.Fatalf("transfer out: %v", err)
	}
	if got := token.BalanceOf(holder); got.Cmp(big.NewInt(750)) != 0 {
		t.Fatalf("balance after transfer out: %s", got)
	}
	if err := session.TransferIn(holder, big.NewInt(10_000)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if err := session.TransferOut(holder, big.NewInt(10_000)); !errors.Is(err, ErrInsufficientCustody) {
		t.Fatalf("expected insufficient custody, got %v", err)
	}
}

func TestBurnFromSpendsAllowanceAndTracksTotals(t *testing.T) {
	holder := addr(7)
	engine := addr(0xEE)
	token, session := newBoundToken(t, map[[20]byte]*big.Int{holder: big.NewInt(500)})

	if err := session.BurnFrom(holder, big.NewInt(100)); !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("expected allowance failure, got %v", err)
	}
	if err := token.Approve(holder, engine, big.NewInt(300)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := session.BurnFrom(holder, big.NewInt(200)); err != nil {
		t.Fatalf("burn: %v", err)
	}
	if got := token.Allowance(holder, engine); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("allowance after burn: %s", got)
	}
	if got := session.BurnedAmountOf(holder); got.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("cumulative burned: %s", got)
	}
	if got := session.TotalBurned(); got.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("total burned: %s", got)
	}
	if got := session.TotalSupply(); got.Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("total supply: %s", got)
	}
	// Allowance left but balance exhausted.
	if err := session.BurnFrom(holder, big.NewInt(100)); err != nil {
		t.Fatalf("second burn: %v", err)
	}
	if err := token.Approve(holder, engine, big.NewInt(500)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := session.BurnFrom(holder, big.NewInt(300)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected balance failure, got %v", err)
	}
}

func TestMintAdvancesMonotonicTotal(t *testing.T) {
	recipient := addr(9)
	token, session := newBoundToken(t, map[[20]byte]*big.Int{addr(1): big.NewInt(50)})
	if err := session.Mint(recipient, big.NewInt(25)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if got := session.TotalMinted(); got.Cmp(big.NewInt(75)) != 0 {
		t.Fatalf("total minted: %s", got)
	}
	if got := token.BalanceOf(recipient); got.Cmp(big.NewInt(25)) != 0 {
		t.Fatalf("recipient balance: %s", got)
	}
	if err := session.Mint(recipient, big.NewInt(0)); !errors.Is(err, common.ErrValidation) {
		t.Fatalf("expected validation error for zero mint, got %v", err)
	}
}

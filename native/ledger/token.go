package ledger

import (
	"math/big"
	"sync"
)

// Token is the in-memory fungible balance ledger consumed by the emission
// engine. Amounts are wei-style integers at 10^18 scale. The ledger itself
// carries no reward logic: it tracks balances, allowances, custody and the
// monotonic mint/burn totals the reward path reads.
type Token struct {
	mu          sync.Mutex
	balances    map[[20]byte]*big.Int
	allowances  map[[20]byte]map[[20]byte]*big.Int
	burned      map[[20]byte]*big.Int
	custody     *big.Int
	totalMinted *big.Int
	totalBurned *big.Int
	engine      [20]byte
	engineBound bool
}

// NewToken constructs a ledger seeded with the supplied genesis balances.
// Genesis credits count towards the minted total so supply accounting stays
// consistent from the first block.
func NewToken(genesis map[[20]byte]*big.Int) *Token {
	t := &Token{
		balances:    make(map[[20]byte]*big.Int),
		allowances:  make(map[[20]byte]map[[20]byte]*big.Int),
		burned:      make(map[[20]byte]*big.Int),
		custody:     big.NewInt(0),
		totalMinted: big.NewInt(0),
		totalBurned: big.NewInt(0),
	}
	for addr, amount := range genesis {
		if amount == nil || amount.Sign() <= 0 {
			continue
		}
		t.balances[addr] = new(big.Int).Set(amount)
		t.totalMinted.Add(t.totalMinted, amount)
	}
	return t
}

// Bind registers the reward engine address and returns the session through
// which the engine performs its restricted operations. Binding is one-time:
// rebinding to a different address fails, rebinding to the same address
// returns a fresh session.
func (t *Token) Bind(engine [20]byte) (*EngineSession, error) {
	if engine == ([20]byte{}) {
		return nil, ErrZeroAddress
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.engineBound && t.engine != engine {
		return nil, ErrEngineRebind
	}
	t.engine = engine
	t.engineBound = true
	return &EngineSession{token: t}, nil
}

// Approve sets the allowance the spender may burn on behalf of the owner.
func (t *Token) Approve(owner, spender [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrAmountNotPositive
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	row, ok := t.allowances[owner]
	if !ok {
		row = make(map[[20]byte]*big.Int)
		t.allowances[owner] = row
	}
	row[spender] = new(big.Int).Set(amount)
	return nil
}

// BalanceOf returns the free (non-custodied) balance of the address.
func (t *Token) BalanceOf(addr [20]byte) *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return copyOrZero(t.balances[addr])
}

// Allowance returns the remaining burn allowance granted to the spender.
func (t *Token) Allowance(owner, spender [20]byte) *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return copyOrZero(t.allowances[owner][spender])
}

// EngineSession exposes the ledger operations restricted to the registered
// reward engine. Holding the session is the authorisation: it can only be
// obtained through Bind.
type EngineSession struct {
	token *Token
}

// TransferIn moves amount from the participant's free balance into engine
// custody.
func (s *EngineSession) TransferIn(from [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrAmountNotPositive
	}
	t := s.token
	t.mu.Lock()
	defer t.mu.Unlock()
	balance := t.balances[from]
	if balance == nil || balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	balance.Sub(balance, amount)
	t.custody.Add(t.custody, amount)
	return nil
}

// TransferOut returns amount from engine custody to the participant's free
// balance.
func (s *EngineSession) TransferOut(to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrAmountNotPositive
	}
	t := s.token
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.custody.Cmp(amount) < 0 {
		return ErrInsufficientCustody
	}
	t.custody.Sub(t.custody, amount)
	t.creditLocked(to, amount)
	return nil
}

// Mint credits newly created tokens to the recipient and advances the
// monotonic minted total.
func (s *EngineSession) Mint(to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrAmountNotPositive
	}
	t := s.token
	t.mu.Lock()
	defer t.mu.Unlock()
	t.creditLocked(to, amount)
	t.totalMinted.Add(t.totalMinted, amount)
	return nil
}

// BurnFrom destroys amount from the holder's balance, spending the allowance
// previously granted to the engine. The holder's cumulative burned amount and
// the global burned total advance monotonically.
func (s *EngineSession) BurnFrom(from [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrAmountNotPositive
	}
	t := s.token
	t.mu.Lock()
	defer t.mu.Unlock()
	allowance := t.allowances[from][t.engine]
	if allowance == nil || allowance.Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}
	balance := t.balances[from]
	if balance == nil || balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	allowance.Sub(allowance, amount)
	balance.Sub(balance, amount)
	cumulative, ok := t.burned[from]
	if !ok {
		cumulative = big.NewInt(0)
		t.burned[from] = cumulative
	}
	cumulative.Add(cumulative, amount)
	t.totalBurned.Add(t.totalBurned, amount)
	return nil
}

// BurnedAmountOf returns the holder's cumulative burned amount.
func (s *EngineSession) BurnedAmountOf(addr [20]byte) *big.Int {
	t := s.token
	t.mu.Lock()
	defer t.mu.Unlock()
	return copyOrZero(t.burned[addr])
}

// TotalMinted returns the monotonic minted total including genesis credits.
func (s *EngineSession) TotalMinted() *big.Int {
	t := s.token
	t.mu.Lock()
	defer t.mu.Unlock()
	return new(big.Int).Set(t.totalMinted)
}

// TotalBurned returns the monotonic burned total.
func (s *EngineSession) TotalBurned() *big.Int {
	t := s.token
	t.mu.Lock()
	defer t.mu.Unlock()
	return new(big.Int).Set(t.totalBurned)
}

// TotalSupply returns minted minus burned.
func (s *EngineSession) TotalSupply() *big.Int {
	t := s.token
	t.mu.Lock()
	defer t.mu.Unlock()
	return new(big.Int).Sub(t.totalMinted, t.totalBurned)
}

func (t *Token) creditLocked(addr [20]byte, amount *big.Int) {
	balance, ok := t.balances[addr]
	if !ok {
		balance = big.NewInt(0)
		t.balances[addr] = balance
	}
	balance.Add(balance, amount)
}

func copyOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

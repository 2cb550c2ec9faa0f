package emission

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// EntropySource supplies the unpredictable component of the tier seed. The
// engine combines it with the clock, the claimant address and a per-address
// monotonic nonce, so a source only needs to be hard to predict, not unique
// per call.
type EntropySource interface {
	Current() [32]byte
}

// CryptoEntropy draws from the operating system entropy pool.
type CryptoEntropy struct{}

// Current returns 32 bytes of OS randomness. A failed read yields zeroes; the
// nonce still prevents seed reuse in that degraded case.
func (CryptoEntropy) Current() [32]byte {
	var out [32]byte
	_, _ = cryptorand.Read(out[:])
	return out
}

// Tier describes one reward band. Multipliers are scaled by ten so the table
// stays integral: 10 means x1.0, 18 means x1.8.
type Tier struct {
	ID            uint8
	Name          string
	MultiplierX10 uint64
}

const tierMultiplierScale = 10

var tierTable = [4]Tier{
	{ID: 0, Name: "common", MultiplierX10: 10},
	{ID: 1, Name: "rare", MultiplierX10: 18},
	{ID: 2, Name: "epic", MultiplierX10: 35},
	{ID: 3, Name: "legendary", MultiplierX10: 80},
}

// Cumulative upper bounds of the roll bands out of 100: common [0,70),
// rare [70,92), epic [92,99), legendary [99,100).
var tierUpperBounds = [4]uint64{70, 92, 99, 100}

// Tiers returns the reward tier table.
func Tiers() []Tier {
	out := make([]Tier, len(tierTable))
	copy(out[:], tierTable[:])
	return out
}

func tierForRoll(roll uint64) Tier {
	for i, bound := range tierUpperBounds {
		if roll < bound {
			return tierTable[i]
		}
	}
	return tierTable[len(tierTable)-1]
}

// TierSelector draws a pseudo-random reward tier per claim. Per-address
// nonces make every seed unique even when the entropy source and timestamp
// repeat within one time slot.
type TierSelector struct {
	entropy EntropySource
	nonces  map[[20]byte]uint64
}

// NewTierSelector constructs a selector over the supplied entropy source.
func NewTierSelector(entropy EntropySource) *TierSelector {
	if entropy == nil {
		entropy = CryptoEntropy{}
	}
	return &TierSelector{
		entropy: entropy,
		nonces:  make(map[[20]byte]uint64),
	}
}

// Draw advances the claimant's nonce, derives the seed and returns the
// tier-multiplied reward together with the selected tier. The caller
// serialises access and restores the nonce if its surrounding operation
// fails.
func (s *TierSelector) Draw(addr [20]byte, rawMintPower *big.Int, now uint64) (*big.Int, Tier) {
	nonce := s.nonces[addr] + 1
	s.nonces[addr] = nonce

	var nowBytes, nonceBytes [8]byte
	binary.BigEndian.PutUint64(nowBytes[:], now)
	binary.BigEndian.PutUint64(nonceBytes[:], nonce)
	entropy := s.entropy.Current()
	seed := ethcrypto.Keccak256(entropy[:], nowBytes[:], addr[:], nonceBytes[:])

	roll := new(big.Int).SetBytes(seed)
	roll.Mod(roll, big.NewInt(100))
	tier := tierForRoll(roll.Uint64())

	reward := new(big.Int).Mul(rawMintPower, new(big.Int).SetUint64(tier.MultiplierX10))
	reward.Quo(reward, big.NewInt(tierMultiplierScale))
	return reward, tier
}

// NonceOf returns the claimant's current draw nonce.
func (s *TierSelector) NonceOf(addr [20]byte) uint64 {
	return s.nonces[addr]
}

func (s *TierSelector) setNonce(addr [20]byte, nonce uint64) {
	if nonce == 0 {
		delete(s.nonces, addr)
		return
	}
	s.nonces[addr] = nonce
}

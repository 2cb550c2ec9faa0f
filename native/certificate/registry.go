package certificate

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/google/uuid"

	"emberchain/storage"
)

const (
	recordKeyPrefix = "cert/record/"
	burnerKeyPrefix = "cert/burner/"
)

// Record is the immutable certificate persisted for every burn-boost. The
// mint power snapshot reflects the burner's standing immediately before the
// recorded burn, not after it.
type Record struct {
	ID                  string   `json:"id"`
	Burner              [20]byte `json:"-"`
	BurnerHex           string   `json:"burner"`
	AmountBurned        *big.Int `json:"amountBurned"`
	MintPowerBeforeBurn *big.Int `json:"mintPowerBeforeBurn"`
	DAOPoints           *big.Int `json:"daoPoints"`
	AirdropRights       *big.Int `json:"airdropRights"`
	CreatedAt           uint64   `json:"createdAt"`
}

// Registry issues and serves burn-boost certificates. Issuance is restricted
// to the registered reward engine via the session returned by Bind.
type Registry struct {
	mu          sync.Mutex
	db          storage.Database
	engine      [20]byte
	engineBound bool
}

// NewRegistry constructs a registry over the supplied key-value store.
func NewRegistry(db storage.Database) *Registry {
	return &Registry{db: db}
}

// Bind registers the reward engine address and returns the issuing session.
// One-time semantics: a different engine cannot rebind, the same engine may.
func (r *Registry) Bind(engine [20]byte) (*IssuerSession, error) {
	if engine == ([20]byte{}) {
		return nil, ErrZeroAddress
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.engineBound && r.engine != engine {
		return nil, ErrEngineRebind
	}
	r.engine = engine
	r.engineBound = true
	return &IssuerSession{registry: r}, nil
}

// Record returns the certificate with the given identifier.
func (r *Registry) Record(id string) (Record, error) {
	raw, err := r.db.Get([]byte(recordKeyPrefix + id))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return Record{}, ErrRecordNotFound
		}
		return Record{}, err
	}
	return decodeRecord(raw)
}

// RecordsOf returns every certificate issued to the burner, oldest
// identifier first.
func (r *Registry) RecordsOf(burner [20]byte) ([]Record, error) {
	prefix := []byte(burnerKeyPrefix + hex.EncodeToString(burner[:]) + "/")
	var records []Record
	err := r.db.IteratePrefix(prefix, func(_, value []byte) error {
		record, err := r.Record(string(value))
		if err != nil {
			return err
		}
		records = append(records, record)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// IssuerSession is the engine-held handle that can append certificates.
type IssuerSession struct {
	registry *Registry
}

// Issue persists a new immutable certificate and returns its identifier.
func (s *IssuerSession) Issue(burner [20]byte, amountBurned, mintPowerBeforeBurn, daoPoints, airdropRights *big.Int, createdAt uint64) (string, error) {
	if amountBurned == nil || amountBurned.Sign() <= 0 {
		return "", ErrInvalidRecord
	}
	if mintPowerBeforeBurn == nil || daoPoints == nil || airdropRights == nil {
		return "", ErrInvalidRecord
	}
	record := Record{
		ID:                  uuid.New().String(),
		Burner:              burner,
		BurnerHex:           hex.EncodeToString(burner[:]),
		AmountBurned:        new(big.Int).Set(amountBurned),
		MintPowerBeforeBurn: new(big.Int).Set(mintPowerBeforeBurn),
		DAOPoints:           new(big.Int).Set(daoPoints),
		AirdropRights:       new(big.Int).Set(airdropRights),
		CreatedAt:           createdAt,
	}
	encoded, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("certificate: encode record: %w", err)
	}
	r := s.registry
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.db.Put([]byte(recordKeyPrefix+record.ID), encoded); err != nil {
		return "", fmt.Errorf("certificate: persist record: %w", err)
	}
	indexKey := burnerKeyPrefix + record.BurnerHex + "/" + record.ID
	if err := r.db.Put([]byte(indexKey), []byte(record.ID)); err != nil {
		return "", fmt.Errorf("certificate: persist burner index: %w", err)
	}
	return record.ID, nil
}

func decodeRecord(raw []byte) (Record, error) {
	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return Record{}, fmt.Errorf("certificate: decode record: %w", err)
	}
	decoded, err := hex.DecodeString(record.BurnerHex)
	if err != nil || len(decoded) != len(record.Burner) {
		return Record{}, ErrInvalidRecord
	}
	copy(record.Burner[:], decoded)
	return record, nil
}

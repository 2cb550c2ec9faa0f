package gateway

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"emberchain/config"
	"emberchain/native/certificate"
	"emberchain/native/common"
	"emberchain/native/emission"
	"emberchain/native/halving"
	"emberchain/native/ledger"
)

const requestLimit = 1 << 20 // 1 MiB

// Server exposes the emission engine over HTTP.
type Server struct {
	engine   *emission.Engine
	token    *ledger.Token
	registry *certificate.Registry
	halving  *halving.Controller
	log      *slog.Logger
}

// NewServer wires the engine and its collaborators into the HTTP surface.
func NewServer(engine *emission.Engine, token *ledger.Token, registry *certificate.Registry, controller *halving.Controller, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{engine: engine, token: token, registry: registry, halving: controller, log: log}
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		v1.Post("/stake", s.handleStake)
		v1.Post("/unstake", s.handleUnstake)
		v1.Post("/claim", s.handleClaim)
		v1.Post("/burn-boost", s.handleBurnBoost)
		v1.Post("/halving/check", s.handleHalvingCheck)
		v1.Get("/participants/{addr}", s.handleParticipant)
		v1.Get("/participants/{addr}/records", s.handleParticipantRecords)
		v1.Get("/cooldown", s.handleCooldown)
		v1.Get("/halving", s.handleHalving)
		v1.Get("/records/{id}", s.handleRecord)
	})

	return r
}

type amountRequest struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

type addressRequest struct {
	Address string `json:"address"`
}

func (s *Server) handleStake(w http.ResponseWriter, r *http.Request) {
	addr, amount, ok := s.decodeAmountRequest(w, r)
	if !ok {
		return
	}
	if err := s.engine.Stake(addr, amount); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"address": hexAddr(addr),
		"staked":  s.engine.StakedAmountOf(addr).String(),
	})
}

func (s *Server) handleUnstake(w http.ResponseWriter, r *http.Request) {
	addr, amount, ok := s.decodeAmountRequest(w, r)
	if !ok {
		return
	}
	if err := s.engine.Unstake(addr, amount); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"address": hexAddr(addr),
		"staked":  s.engine.StakedAmountOf(addr).String(),
	})
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	var req addressRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	addr, err := config.ParseAddress(req.Address)
	if err != nil {
		s.writeStatus(w, http.StatusBadRequest, err)
		return
	}
	reward, tier, err := s.engine.ClaimReward(addr)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.log.Info("reward claimed", "address", hexAddr(addr), "reward", reward.String(), "tier", tier.Name)
	writeJSON(w, http.StatusOK, map[string]any{
		"address": hexAddr(addr),
		"reward":  reward.String(),
		"tier":    tier.Name,
	})
}

func (s *Server) handleBurnBoost(w http.ResponseWriter, r *http.Request) {
	addr, amount, ok := s.decodeAmountRequest(w, r)
	if !ok {
		return
	}
	recordID, err := s.engine.BoostBurn(addr, amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.log.Info("burn boost recorded", "address", hexAddr(addr), "amount", amount.String(), "record", recordID)
	writeJSON(w, http.StatusOK, map[string]string{
		"address":  hexAddr(addr),
		"recordId": recordID,
	})
}

func (s *Server) handleHalvingCheck(w http.ResponseWriter, r *http.Request) {
	triggered, err := s.engine.CheckHalving()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"triggered": triggered,
		"threshold": s.halving.Threshold().String(),
		"count":     s.halving.Count(),
	})
}

func (s *Server) handleParticipant(w http.ResponseWriter, r *http.Request) {
	addr, err := config.ParseAddress(chi.URLParam(r, "addr"))
	if err != nil {
		s.writeStatus(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"address":   hexAddr(addr),
		"staked":    s.engine.StakedAmountOf(addr).String(),
		"lastClaim": s.engine.LastClaimOf(addr),
		"balance":   s.token.BalanceOf(addr).String(),
		"shield":    s.halving.HasShield(addr),
	})
}

func (s *Server) handleParticipantRecords(w http.ResponseWriter, r *http.Request) {
	addr, err := config.ParseAddress(chi.URLParam(r, "addr"))
	if err != nil {
		s.writeStatus(w, http.StatusBadRequest, err)
		return
	}
	records, err := s.registry.RecordsOf(addr)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if records == nil {
		records = []certificate.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleCooldown(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"cooldownSeconds":    s.engine.Cooldown(),
		"activeParticipants": s.engine.ActiveParticipants(),
	})
}

func (s *Server) handleHalving(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"threshold":      s.halving.Threshold().String(),
		"count":          s.halving.Count(),
		"rateCutPercent": s.halving.RateCutPercent(),
	}
	if rate, err := s.halving.AdjustedRate(); err == nil {
		resp["adjustedRate"] = rate
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	record, err := s.registry.Record(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, certificate.ErrRecordNotFound) {
			s.writeStatus(w, http.StatusNotFound, err)
			return
		}
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) decodeAmountRequest(w http.ResponseWriter, r *http.Request) ([20]byte, *big.Int, bool) {
	var req amountRequest
	if !s.decodeBody(w, r, &req) {
		return [20]byte{}, nil, false
	}
	addr, err := config.ParseAddress(req.Address)
	if err != nil {
		s.writeStatus(w, http.StatusBadRequest, err)
		return [20]byte{}, nil, false
	}
	amount, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok {
		s.writeStatus(w, http.StatusBadRequest, errors.New("amount must be a base-10 integer"))
		return [20]byte{}, nil, false
	}
	return addr, amount, true
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	body := http.MaxBytesReader(w, r.Body, requestLimit)
	defer func() {
		_, _ = io.Copy(io.Discard, body)
		_ = body.Close()
	}()
	if err := json.NewDecoder(body).Decode(out); err != nil {
		s.writeStatus(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

// writeError maps the failure taxonomy onto HTTP statuses: malformed input is
// 400, callers without authority 403, precondition and configuration
// conflicts 409.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrValidation):
		s.writeStatus(w, http.StatusBadRequest, err)
	case errors.Is(err, common.ErrAuthorization):
		s.writeStatus(w, http.StatusForbidden, err)
	case errors.Is(err, common.ErrAlreadyConfigured), errors.Is(err, common.ErrState):
		s.writeStatus(w, http.StatusConflict, err)
	default:
		s.log.Error("request failed", "error", err)
		s.writeStatus(w, http.StatusInternalServerError, err)
	}
}

func (s *Server) writeStatus(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func hexAddr(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

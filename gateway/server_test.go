package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"emberchain/native/certificate"
	"emberchain/native/emission"
	"emberchain/native/halving"
	"emberchain/native/ledger"
	"emberchain/storage"
)

type testClock struct {
	mu sync.Mutex
	ts int64
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Unix(c.ts, 0)
}

func (c *testClock) Advance(seconds int64) {
	c.mu.Lock()
	c.ts += seconds
	c.mu.Unlock()
}

type testStack struct {
	server *httptest.Server
	clock  *testClock
	token  *ledger.Token
	engine [20]byte
	user   [20]byte
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	var engineAddr, owner, user [20]byte
	engineAddr[19] = 0xEE
	owner[19] = 0x01
	user[19] = 0xAB

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	genesis := map[[20]byte]*big.Int{
		user: new(big.Int).Mul(big.NewInt(1_000), scale),
	}
	token := ledger.NewToken(genesis)
	session, err := token.Bind(engineAddr)
	require.NoError(t, err)

	registry := certificate.NewRegistry(storage.NewMemDB())
	issuer, err := registry.Bind(engineAddr)
	require.NoError(t, err)

	controller := halving.NewController(owner, nil)
	require.NoError(t, controller.SetRewardEngine(engineAddr))
	require.NoError(t, controller.SetStatsSource(session))

	engine, err := emission.NewEngine(engineAddr, emission.DefaultParams(), nil, nil)
	require.NoError(t, err)
	clock := &testClock{ts: 1_700_000_000}
	engine.SetClock(clock.Now)
	require.NoError(t, controller.SetStakeView(engine))
	require.NoError(t, engine.SetLedger(session))
	require.NoError(t, engine.SetCertificateRegistry(issuer))
	require.NoError(t, engine.SetHalvingController(controller))

	srv := NewServer(engine, token, registry, controller, nil)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return &testStack{server: ts, clock: clock, token: token, engine: engineAddr, user: user}
}

func (s *testStack) userHex() string {
	return fmt.Sprintf("0x%040x", new(big.Int).SetBytes(s.user[:]))
}

func (s *testStack) post(t *testing.T, path string, payload any) (*http.Response, map[string]any) {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(s.server.URL+path, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func (s *testStack) get(t *testing.T, path string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(s.server.URL + path)
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil
	}
	return out
}

func TestHealthz(t *testing.T) {
	s := newTestStack(t)
	resp, err := http.Get(s.server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStakeAndClaimFlow(t *testing.T) {
	s := newTestStack(t)
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	stake := new(big.Int).Mul(big.NewInt(100), scale)

	resp, body := s.post(t, "/v1/stake", map[string]string{
		"address": s.userHex(),
		"amount":  stake.String(),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, stake.String(), body["staked"])

	// The staked amount left the free balance.
	want := new(big.Int).Mul(big.NewInt(900), scale)
	require.Equal(t, want.String(), s.token.BalanceOf(s.user).String())

	// A claim inside the cooldown is a precondition conflict.
	resp, _ = s.post(t, "/v1/claim", map[string]string{"address": s.userHex()})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	s.clock.Advance(24 * 60 * 60)
	resp, body = s.post(t, "/v1/claim", map[string]string{"address": s.userHex()})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, body["reward"])
	require.Contains(t, []string{"common", "rare", "epic", "legendary"}, body["tier"])

	// The reward landed on the free balance.
	require.Equal(t, 1, s.token.BalanceOf(s.user).Cmp(want))

	resp, body = s.get(t, "/v1/cooldown")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, float64(888), body["cooldownSeconds"])
	require.Equal(t, float64(1), body["activeParticipants"])
}

func TestStakeValidationMapping(t *testing.T) {
	s := newTestStack(t)

	resp, _ := s.post(t, "/v1/stake", map[string]string{"address": "0x1234", "amount": "1"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = s.post(t, "/v1/stake", map[string]string{"address": s.userHex(), "amount": "not-a-number"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = s.post(t, "/v1/stake", map[string]string{"address": s.userHex(), "amount": "0"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Unstaking more than staked is a state conflict.
	resp, _ = s.post(t, "/v1/unstake", map[string]string{"address": s.userHex(), "amount": "1"})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestBurnBoostAndRecords(t *testing.T) {
	s := newTestStack(t)
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	burn := new(big.Int).Mul(big.NewInt(50), scale)

	// No allowance granted yet.
	resp, _ := s.post(t, "/v1/burn-boost", map[string]string{
		"address": s.userHex(),
		"amount":  burn.String(),
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	require.NoError(t, s.token.Approve(s.user, s.engine, burn))
	resp, body := s.post(t, "/v1/burn-boost", map[string]string{
		"address": s.userHex(),
		"amount":  burn.String(),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	recordID, ok := body["recordId"].(string)
	require.True(t, ok)
	require.NotEmpty(t, recordID)

	recordResp, err := http.Get(s.server.URL + "/v1/records/" + recordID)
	require.NoError(t, err)
	defer recordResp.Body.Close()
	require.Equal(t, http.StatusOK, recordResp.StatusCode)
	dec := json.NewDecoder(recordResp.Body)
	dec.UseNumber()
	var record map[string]any
	require.NoError(t, dec.Decode(&record))
	require.Equal(t, json.Number(burn.String()), record["amountBurned"])
	require.Equal(t, json.Number("200"), record["daoPoints"])
	require.Equal(t, json.Number("50"), record["airdropRights"])

	resp, _ = s.get(t, "/v1/records/no-such-record")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	recordsResp, err := http.Get(s.server.URL + "/v1/participants/" + s.userHex() + "/records")
	require.NoError(t, err)
	defer recordsResp.Body.Close()
	var records []map[string]any
	require.NoError(t, json.NewDecoder(recordsResp.Body).Decode(&records))
	require.Len(t, records, 1)
	require.Equal(t, recordID, records[0]["id"])
}

func TestParticipantAndHalvingViews(t *testing.T) {
	s := newTestStack(t)
	resp, body := s.get(t, "/v1/participants/"+s.userHex())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "0", body["staked"])
	require.Equal(t, false, body["shield"])

	resp, body = s.get(t, "/v1/halving")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	threshold, _ := new(big.Int).SetString("21000000000000000000000000", 10)
	require.Equal(t, threshold.String(), body["threshold"])
	require.Equal(t, float64(0), body["count"])

	resp, body = s.post(t, "/v1/halving/check", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, false, body["triggered"])
}

package gateway

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"stablepay.backend/internal/config"
	domainerrors "stablepay.backend/internal/domain/errors"
	"stablepay.backend/pkg/redis"
)

func setupGateway(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	mr := miniredis.RunT(t)
	redis.SetClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(srv.URL, redis.NewGatewayCache(time.Minute))
}

var fujiChain = &config.ChainConfig{
	Key:           "avalanche-fuji",
	ChainID:       43113,
	GatewayDomain: 1,
}

func TestClient_DepositContractCaches(t *testing.T) {
	var calls int32
	c := setupGateway(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		require.Equal(t, "/v1/contracts/deposit", r.URL.Path)
		require.Equal(t, "1", r.URL.Query().Get("domain"))
		json.NewEncoder(w).Encode(map[string]string{"address": "0x00000000000000000000000000000000000000dc"})
	})

	addr, err := c.DepositContract(context.Background(), fujiChain)
	require.NoError(t, err)
	assert.Equal(t, "0x00000000000000000000000000000000000000dc", addr)

	addr, err = c.DepositContract(context.Background(), fujiChain)
	require.NoError(t, err)
	assert.Equal(t, "0x00000000000000000000000000000000000000dc", addr)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "second lookup served from cache")
}

type stubSigner struct {
	signature string
	err       error
	lastData  apitypes.TypedData
}

func (s *stubSigner) SignTypedData(ctx context.Context, walletID string, typedData apitypes.TypedData) (string, error) {
	s.lastData = typedData
	return s.signature, s.err
}

func TestClient_SubmitBurnIntent(t *testing.T) {
	c := setupGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/transfers", r.URL.Path)

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "1000000", req["amount"])
		require.Equal(t, "0xsig", req["signature"])

		json.NewEncoder(w).Encode(map[string]string{"transferId": "tr-1"})
	})

	signer := &stubSigner{signature: "0xsig"}
	intent := &BurnIntent{
		SourceDomain:      1,
		DestinationDomain: 6,
		Amount:            big.NewInt(1_000_000),
		Depositor:         "0x00000000000000000000000000000000000000aa",
		Recipient:         "0x00000000000000000000000000000000000000bb",
		Nonce:             big.NewInt(7),
	}

	id, err := c.SubmitBurnIntent(context.Background(), signer, "w-1", intent)
	require.NoError(t, err)
	assert.Equal(t, "tr-1", id)
	assert.Equal(t, "BurnIntent", signer.lastData.PrimaryType)
}

func TestClient_SubmitBurnIntentRejected(t *testing.T) {
	c := setupGateway(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"unsupported domain"}`, http.StatusUnprocessableEntity)
	})

	intent := &BurnIntent{Amount: big.NewInt(1), Nonce: big.NewInt(1)}
	_, err := c.SubmitBurnIntent(context.Background(), &stubSigner{signature: "0xsig"}, "w-1", intent)
	require.ErrorIs(t, err, domainerrors.ErrBridgeRejected)
}

func TestClient_WaitForAttestation(t *testing.T) {
	var calls int32
	c := setupGateway(t, func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		att := Attestation{Status: AttestationPending}
		if n >= 3 {
			att = Attestation{Status: AttestationComplete, Message: "0xmsg", Attestation: "0xatt"}
		}
		json.NewEncoder(w).Encode(att)
	})

	att, err := c.WaitForAttestation(context.Background(), "tr-1", time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "0xmsg", att.Message)
	assert.Equal(t, "0xatt", att.Attestation)
}

func TestClient_WaitForAttestationTerminalFailure(t *testing.T) {
	c := setupGateway(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Attestation{Status: AttestationFailed, Error: "burn reverted"})
	})

	_, err := c.WaitForAttestation(context.Background(), "tr-1", time.Millisecond)
	require.ErrorIs(t, err, domainerrors.ErrAttestationFailed)
	assert.Contains(t, err.Error(), "burn reverted")
}

func TestClient_WaitForAttestationCallerOwnsDeadline(t *testing.T) {
	c := setupGateway(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Attestation{Status: AttestationPending})
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := c.WaitForAttestation(ctx, "tr-1", time.Millisecond)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

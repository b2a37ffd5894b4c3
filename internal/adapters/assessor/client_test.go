package assessor_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alejandrodnm/outcomex/internal/adapters/assessor"
	"github.com/alejandrodnm/outcomex/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDispute() (domain.Resolution, domain.Dispute) {
	market := domain.Key{0xaa}
	res := domain.Resolution{
		Market:      market,
		YesRatioBps: 10_000,
		Winner:      domain.TokenYes,
		EvidenceRef: "ipfs://result",
	}
	d := domain.Dispute{
		ID:       "d-1",
		Market:   market,
		Reason:   "the official feed reported the opposite result",
		Evidence: []string{"https://feed.example.org/final"},
	}
	return res, d
}

func newTestClient(srv *httptest.Server) *assessor.Client {
	return assessor.NewClient(srv.URL, assessor.WithToken("secret"), assessor.WithRetryWait(time.Millisecond))
}

func TestClient_Assess_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/assess", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "d-1", body["dispute_id"])
		assert.Equal(t, "YES", body["winner"])
		assert.Equal(t, "ipfs://result", body["resolution_evidence"])
		assert.Len(t, body["evidence"], 1)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"decision":"overturn","confidence":0.82,"rationale":"feed disagrees"}`))
	}))
	defer srv.Close()

	res, d := sampleDispute()
	got, err := newTestClient(srv).Assess(context.Background(), res, d)

	require.NoError(t, err)
	assert.Equal(t, domain.DecisionOverturn, got.Decision)
	assert.InDelta(t, 0.82, got.Confidence, 1e-9)
	assert.Equal(t, "feed disagrees", got.Rationale)
}

func TestClient_Assess_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"decision":"UPHOLD","confidence":1}`))
	}))
	defer srv.Close()

	res, d := sampleDispute()
	got, err := newTestClient(srv).Assess(context.Background(), res, d)

	require.NoError(t, err)
	assert.Equal(t, domain.DecisionUphold, got.Decision)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_Assess_ServerErrorExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	res, d := sampleDispute()
	_, err := newTestClient(srv).Assess(context.Background(), res, d)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "server error 500")
	assert.Equal(t, int32(4), calls.Load())
}

func TestClient_Assess_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("bad token"))
	}))
	defer srv.Close()

	res, d := sampleDispute()
	_, err := newTestClient(srv).Assess(context.Background(), res, d)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "client error 401: bad token")
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_Assess_RejectsInvalidResponses(t *testing.T) {
	cases := map[string]string{
		"unknown decision":    `{"decision":"MAYBE","confidence":0.5}`,
		"confidence too high": `{"decision":"UPHOLD","confidence":1.5}`,
		"not json":            `<html>`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(payload))
			}))
			defer srv.Close()

			res, d := sampleDispute()
			_, err := newTestClient(srv).Assess(context.Background(), res, d)
			assert.Error(t, err)
		})
	}
}

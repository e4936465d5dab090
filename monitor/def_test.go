package monitor

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRequest(t *testing.T) {
	before := testutil.ToFloat64(requests.WithLabelValues(TransportGRPC))
	beforeFail := testutil.ToFloat64(failures.WithLabelValues(TransportGRPC))

	ObserveRequest(TransportGRPC, nil)
	ObserveRequest(TransportGRPC, errors.New("not found"))

	assert.Equal(t, before+2, testutil.ToFloat64(requests.WithLabelValues(TransportGRPC)))
	assert.Equal(t, beforeFail+1, testutil.ToFloat64(failures.WithLabelValues(TransportGRPC)))
}

func TestHandler(t *testing.T) {
	ObserveRequest(TransportHTTP, nil)
	ObserveInference(12 * time.Millisecond)

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `detect_requests_total{transport="http"}`)
	assert.Contains(t, string(body), "inference_duration_seconds_count")
}

func TestStartMon(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- StartMon(ctx, 0) }()

	time.Sleep(600 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("StartMon did not return after cancel")
	}
}

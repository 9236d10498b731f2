package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/rail-scheduler/internal/scheduler"
)

func TestStatusEndpoint(t *testing.T) {
	st := &Status{}
	srv := httptest.NewServer((&Server{Status: st}).Routes())
	defer srv.Close()

	get := func(path string) (int, statusView) {
		res, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		defer res.Body.Close()
		var v statusView
		if res.StatusCode == http.StatusOK {
			require.NoError(t, json.NewDecoder(res.Body).Decode(&v))
		}
		return res.StatusCode, v
	}

	code, v := get("/status")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "starting", v.State)

	st.Attempt(4, 3*time.Second)
	st.Failure(scheduler.Recovery{Category: scheduler.SoldOutTransient}, errors.New("잔여석없음"))
	_, v = get("/status")
	assert.Equal(t, "running", v.State)
	assert.Equal(t, 4, v.Attempts)
	assert.Equal(t, 3.0, v.ElapsedSecs)
	assert.Equal(t, "sold_out: 잔여석없음", v.LastFailure)

	st.Finished(scheduler.Result{State: scheduler.Succeeded, Attempts: 5, Elapsed: 4 * time.Second})
	_, v = get("/status")
	assert.Equal(t, "succeeded", v.State)

	code, _ = get("/runs")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestHealthAndMetrics(t *testing.T) {
	srv := httptest.NewServer((&Server{}).Routes())
	defer srv.Close()

	res, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(res.Body)
	res.Body.Close()
	assert.Equal(t, "ok\n", string(body))

	res, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestServeStopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, ln, (&Server{}).Routes()) }()

	require.Eventually(t, func() bool {
		res, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		res.Body.Close()
		return res.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

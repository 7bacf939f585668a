package scraper

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPSolverSolve(t *testing.T) {
	var gotContentType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"offset": 123.5}`))
	}))
	defer srv.Close()

	solver := NewHTTPSolver(srv.URL)
	offset, err := solver.Solve(context.Background(), []byte("fake-png-bytes"))
	require.NoError(t, err)

	assert.Equal(t, 123.5, offset)
	assert.Equal(t, "image/png", gotContentType)
	assert.Equal(t, []byte("fake-png-bytes"), gotBody)
}

func TestHTTPSolverErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	solver := NewHTTPSolver(srv.URL)
	_, err := solver.Solve(context.Background(), []byte("png"))
	require.Error(t, err)

	var solveErr *CaptchaSolveError
	assert.ErrorAs(t, err, &solveErr)
	assert.Contains(t, solveErr.Error(), "503")
}

func TestHTTPSolverBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	solver := NewHTTPSolver(srv.URL)
	_, err := solver.Solve(context.Background(), []byte("png"))

	var solveErr *CaptchaSolveError
	assert.ErrorAs(t, err, &solveErr)
}

func TestHTTPSolverUnreachable(t *testing.T) {
	solver := NewHTTPSolver("http://127.0.0.1:1/solve")
	_, err := solver.Solve(context.Background(), []byte("png"))

	var solveErr *CaptchaSolveError
	assert.ErrorAs(t, err, &solveErr)
}

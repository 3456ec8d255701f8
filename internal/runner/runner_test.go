package runner

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/cybersmurf/realestate-aggregator/internal/model"
)

type fakeAdapter struct {
	code       string
	found      int
	err        error
	panicValue any
}

func (f *fakeAdapter) SourceCode() string { return f.code }

func (f *fakeAdapter) Run(_ context.Context, _ bool) (int, error) {
	if f.panicValue != nil {
		panic(f.panicValue)
	}
	return f.found, f.err
}

func newTestRunner() *Runner {
	return &Runner{log: zerolog.Nop()}
}

func TestRunAdapterReturnsResult(t *testing.T) {
	r := newTestRunner()
	adapter := &fakeAdapter{code: "sreality", found: 42}

	found, err := r.runAdapter(context.Background(), adapter, false)
	require.NoError(t, err)
	require.Equal(t, 42, found)
}

func TestRunAdapterPropagatesError(t *testing.T) {
	r := newTestRunner()
	adapter := &fakeAdapter{code: "remax", err: errors.New("fetch failed")}

	_, err := r.runAdapter(context.Background(), adapter, false)
	require.Error(t, err)
	require.Contains(t, err.Error(), "fetch failed")
}

func TestRunAdapterRecoversFromPanic(t *testing.T) {
	r := newTestRunner()
	adapter := &fakeAdapter{code: "century21", panicValue: "boom"}

	found, err := r.runAdapter(context.Background(), adapter, false)
	require.Error(t, err)
	require.Zero(t, found)
	require.Contains(t, err.Error(), "century21")
	require.Contains(t, err.Error(), "boom")
}

func TestJoinErrorsSingle(t *testing.T) {
	err := errors.New("only one")
	require.Equal(t, err, joinErrors([]error{err}))
}

func TestJoinErrorsMultiple(t *testing.T) {
	err := joinErrors([]error{errors.New("a failed"), errors.New("b failed")})
	require.Contains(t, err.Error(), "2 source(s) failed")
	require.Contains(t, err.Error(), "a failed")
	require.Contains(t, err.Error(), "b failed")
}

func TestStatusPtrAndIntPtr(t *testing.T) {
	status := statusPtr(model.JobStatusSucceeded)
	require.Equal(t, model.JobStatusSucceeded, *status)

	n := intPtr(100)
	require.Equal(t, 100, *n)
}

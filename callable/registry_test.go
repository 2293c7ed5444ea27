package callable

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lucerna-run/workflow-go/token"
)

func TestRegistryRoundTripsWorkFn(t *testing.T) {
	r := NewRegistry()
	_, ok := r.WorkFn("missing")
	require.False(t, ok)

	r.RegisterWorkFn("double", func(_ context.Context, d token.Data) (token.Data, error) {
		n, _ := d["n"].(int)
		return token.Data{"n": n * 2}, nil
	})

	fn, ok := r.WorkFn("double")
	require.True(t, ok)
	out, err := fn(context.Background(), token.Data{"n": 3})
	require.NoError(t, err)
	require.Equal(t, 6, out["n"])
}

func TestRegistryRoundTripsConditionFn(t *testing.T) {
	r := NewRegistry()
	r.RegisterConditionFn("large", func(d token.Data, _ string) bool {
		amt, _ := d["amount"].(int)
		return amt >= 1000
	})

	fn, ok := r.ConditionFn("large")
	require.True(t, ok)
	require.True(t, fn(token.Data{"amount": 2000}, "x"))
	require.False(t, fn(token.Data{"amount": 5}, "x"))
}

func TestMustWorkFnPanicsWhenMissing(t *testing.T) {
	r := NewRegistry()
	require.Panics(t, func() { r.MustWorkFn("nope") })
}

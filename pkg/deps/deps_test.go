package deps

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/dig"

	"github.com/hanfei1991/rcmanager/pkg/errors"
)

type store struct {
	namespace string
}

type manager struct {
	store *store
}

type components struct {
	dig.In

	Store   *store
	Manager *manager
}

func TestDepsBasics(t *testing.T) {
	t.Parallel()

	deps := NewDeps()
	err := deps.Provide(func() *store {
		return &store{namespace: "rcm"}
	})
	require.NoError(t, err)

	out, err := deps.Construct(func(s *store) (*manager, error) {
		return &manager{store: s}, nil
	})
	require.NoError(t, err)
	require.IsType(t, &manager{}, out)
	require.Equal(t, &manager{store: &store{namespace: "rcm"}}, out)

	err = deps.Provide(func(s *store) *manager {
		return &manager{store: s}
	})
	require.NoError(t, err)

	var c components
	require.NoError(t, deps.Fill(&c))
	require.Equal(t, "rcm", c.Store.namespace)
	require.Same(t, c.Store, c.Manager.store)
}

func TestDepsConstructorError(t *testing.T) {
	t.Parallel()

	deps := NewDeps()
	err := deps.Provide(func() (*store, error) {
		return nil, errors.ErrMetaNewClientFail.GenWithStackByArgs()
	})
	require.NoError(t, err)

	var c components
	err = deps.Fill(&c)
	require.Error(t, err)
	require.Contains(t, err.Error(), "create meta client fail")

	_, err = deps.Construct(func(s *store) (*manager, error) {
		return &manager{store: s}, nil
	})
	require.Error(t, err)
}

func TestDepsMissing(t *testing.T) {
	t.Parallel()

	deps := NewDeps()
	var c components
	require.Error(t, deps.Fill(&c))
	require.Nil(t, c.Store)
}

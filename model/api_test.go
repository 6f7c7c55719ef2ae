package model

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanfei1991/rcmanager/pkg/errors"
)

func TestResponseCodeOf(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		code ResponseCode
	}{
		{nil, ResponseCodeSuccess},
		{errors.ErrClusterSpecNotFound.GenWithStackByArgs("c1"), ResponseCodeClientErrorNotFound},
		{errors.ErrTaskExecutorNotFound.GenWithStackByArgs("e1"), ResponseCodeClientErrorNotFound},
		{errors.ErrUnknownTaskExecutor.GenWithStackByArgs("e1"), ResponseCodeClientErrorNotFound},
		{errors.ErrResourceClusterNotFound.GenWithStackByArgs("c1"), ResponseCodeClientErrorNotFound},
		{errors.ErrInvalidArgument.GenWithStackByArgs("bad"), ResponseCodeClientError},
		{errors.ErrTaskExecutorClusterMismatch.GenWithStackByArgs("e1", "c1", "c2"), ResponseCodeClientError},
		{errors.ErrNoResourceAvailable.GenWithStackByArgs("c1", "1 cores"), ResponseCodeServerError},
		{errors.ErrRequestPanicked.GenWithStackByArgs("scale", "boom"), ResponseCodeServerError},
		{errors.New("unexpected"), ResponseCodeServerError},
	}
	for _, tc := range cases {
		require.Equal(t, tc.code, ResponseCodeOf(tc.err), "%v", tc.err)
	}

	resp := ErrorResponse(errors.ErrTaskExecutorClusterMismatch.GenWithStackByArgs("e1", "c1", "c2"))
	require.False(t, resp.IsSuccess())
	require.Contains(t, resp.Message, "belongs to cluster c1")
}

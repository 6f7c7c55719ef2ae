package metaclient

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStoreConfigAdjust(t *testing.T) {
	t.Parallel()

	var conf StoreConfigParams
	conf.Adjust()
	require.Equal(t, []string{DefaultEtcdEndpoints}, conf.Endpoints)
	require.Equal(t, DefaultDialTimeout, conf.DialTimeout)

	conf.SetEndpoints("10.0.0.1:2379,10.0.0.2:2379")
	require.Len(t, conf.Endpoints, 2)
	conf.SetEndpoints("")
	require.Len(t, conf.Endpoints, 2)
}

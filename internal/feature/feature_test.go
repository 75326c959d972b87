package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcube-dev/bcube-setup/internal/config"
)

func TestParseAcceptsEnumeration(t *testing.T) {
	for _, value := range []string{"", "TCP", "RDMA"} {
		t.Run(value, func(t *testing.T) {
			got, err := Parse(config.EnvGPUAllreduce, value)
			require.NoError(t, err)
			assert.Equal(t, Transport(value), got)
		})
	}
}

func TestParseRejectsEverythingElse(t *testing.T) {
	for _, value := range []string{"tcp", "rdma", "NCCL", " TCP", "TCP ", "0", "T"} {
		t.Run(value, func(t *testing.T) {
			_, err := Parse(config.EnvGPUAllgather, value)

			var ce *ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, config.EnvGPUAllgather, ce.Variable)
			assert.Equal(t, value, ce.Value)
			assert.Equal(t,
				"BCUBE_GPU_ALLGATHER="+value+` is invalid, supported values are "", "TCP", "RDMA".`,
				err.Error())
		})
	}
}

func TestTransportSelector(t *testing.T) {
	assert.Equal(t, "'T'", TransportTCP.Selector())
	assert.Equal(t, "'R'", TransportRDMA.Selector())
	assert.Equal(t, "", TransportUnset.Selector())
	assert.False(t, TransportUnset.Enabled())
}

func TestSelect(t *testing.T) {
	sels, err := Select(config.Env{
		config.EnvGPUAllreduce: "RDMA",
		config.EnvGPUBroadcast: "TCP",
	})
	require.NoError(t, err)
	require.Len(t, sels, 3)

	assert.True(t, sels.AnyEnabled())
	assert.Equal(t, TransportRDMA, sels.Of("allreduce"))
	assert.Equal(t, TransportUnset, sels.Of("allgather"))
	assert.Equal(t, TransportTCP, sels.Of("broadcast"))
	assert.Equal(t, TransportUnset, sels.Of("reduce"))
	assert.Equal(t, "BCUBE_GPU_BROADCAST", sels[2].Operation.Macro)
}

func TestSelectNothingEnabled(t *testing.T) {
	sels, err := Select(config.Env{})
	require.NoError(t, err)
	assert.False(t, sels.AnyEnabled())
}

func TestSelectReadsTransposedBroadcastVariable(t *testing.T) {
	sels, err := Select(config.Env{"BCBUE_GPU_BROADCAST": "TCP"})
	require.NoError(t, err)
	assert.Equal(t, TransportTCP, sels.Of("broadcast"))

	_, err = Select(config.Env{"BCBUE_GPU_BROADCAST": "UDP"})
	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "BCBUE_GPU_BROADCAST", ce.Variable)
}

func TestSelectStopsAtFirstInvalid(t *testing.T) {
	_, err := Select(config.Env{
		config.EnvGPUAllreduce: "tcp",
		config.EnvGPUAllgather: "bogus",
	})
	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, config.EnvGPUAllreduce, ce.Variable)
}

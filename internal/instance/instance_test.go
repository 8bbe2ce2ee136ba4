package instance

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusRoundTrip(t *testing.T) {
	for _, st := range []Status{StatusStopped, StatusStarting, StatusRunning, StatusStopping} {
		b, err := json.Marshal(st)
		require.NoError(t, err)
		var got Status
		require.NoError(t, json.Unmarshal(b, &got))
		assert.Equal(t, st, got)
	}
}

func TestParseStatusUnknownNormalizesToStopped(t *testing.T) {
	assert.Equal(t, StatusStopped, ParseStatus(""))
	assert.Equal(t, StatusStopped, ParseStatus("unknown"))
	assert.Equal(t, StatusStopped, ParseStatus("RUNNING")) // case-sensitive on purpose
}

func TestCloneIsIndependent(t *testing.T) {
	in := &Instance{ID: "a", Name: "alpha", JVMArgs: []string{"-XX:+UseG1GC"}}
	cp := in.Clone()
	cp.Name = "beta"
	cp.JVMArgs[0] = "-Xint"

	assert.Equal(t, "alpha", in.Name)
	assert.Equal(t, "-XX:+UseG1GC", in.JVMArgs[0])
}

package craftd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftd/craftd/internal/instance"
)

func newFacadeManager(t *testing.T) *Manager {
	t.Helper()
	mgr, err := New(ManagerOptions{DataDir: filepath.Join(t.TempDir(), "servers")})
	require.NoError(t, err)
	t.Cleanup(mgr.Shutdown)
	return mgr
}

func TestFacadeCRUD(t *testing.T) {
	mgr := newFacadeManager(t)
	require.NoError(t, mgr.LoadAll())
	assert.Empty(t, mgr.All())

	inst, err := mgr.Create(CreateRequest{Name: "alpha", CoreType: "paper", MCVersion: "1.21"})
	require.NoError(t, err)
	assert.Equal(t, instance.StatusStopped, inst.Status)

	got, err := mgr.Get(inst.ID)
	require.NoError(t, err)
	assert.Equal(t, "alpha", got.Name)

	name := "beta"
	updated, err := mgr.Update(UpdateRequest{ID: inst.ID, Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "beta", updated.Name)

	require.NoError(t, mgr.Delete(inst.ID))
	assert.Empty(t, mgr.All())
}

func TestFacadeEventBus(t *testing.T) {
	mgr := newFacadeManager(t)

	var statuses []string
	mgr.Bus().SubscribeStatus(func(e StatusChangeEvent) { statuses = append(statuses, e.Status) })

	inst, err := mgr.Create(CreateRequest{Name: "alpha"})
	require.NoError(t, err)
	// Creation is a registry operation, not a lifecycle transition.
	assert.Empty(t, statuses)

	// Stop on a stopped instance is rejected and publishes nothing.
	err = mgr.Stop(inst.ID)
	assert.Equal(t, instance.KindInvalidState, instance.KindOf(err))
	assert.Empty(t, statuses)
}

func TestFacadeHistorySink(t *testing.T) {
	sink, err := NewHistorySink(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	require.NotNil(t, sink)

	mgr := newFacadeManager(t)
	mgr.SetHistorySinks(sink)
	_, err = mgr.Create(CreateRequest{Name: "alpha"})
	assert.NoError(t, err)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7420", cfg.Listen)
	assert.Equal(t, "./servers", cfg.DataDir)
}

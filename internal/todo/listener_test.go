package todo

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heartwork/internal/service"
	"heartwork/internal/testutil"
)

var snapshot = []service.Task{
	{ID: "p1", Text: "Breakfast", Category: "panda", IsDefault: true},
	{ID: "b1", Text: "Lunch", Category: "bear", IsDefault: true},
	{ID: "p2", Text: "Water plants", Category: "panda", Completed: true},
}

func TestListener_FiltersByCategory(t *testing.T) {
	ch := testutil.NewFakeChannel()
	store := NewStore()
	l := NewListener(ch, store, "panda", zerolog.Nop())
	defer l.Close()

	require.NoError(t, ch.Emit(EventTaskUpdate, snapshot))

	assert.Equal(t, []string{"p1", "p2"}, ids(store.Tasks("panda")))
	assert.Empty(t, store.Tasks("bear"))
}

func TestListener_EmptySnapshotClears(t *testing.T) {
	ch := testutil.NewFakeChannel()
	store := NewStore()
	store.Replace("panda", []service.Task{{ID: "old", Category: "panda"}})
	l := NewListener(ch, store, "panda", zerolog.Nop())
	defer l.Close()

	require.NoError(t, ch.Emit(EventTaskUpdate, []service.Task{}))
	assert.Empty(t, store.Tasks("panda"))
}

func TestListener_IgnoresMalformedPayload(t *testing.T) {
	ch := testutil.NewFakeChannel()
	store := NewStore()
	store.Replace("panda", []service.Task{{ID: "keep", Category: "panda"}})
	l := NewListener(ch, store, "panda", zerolog.Nop())
	defer l.Close()

	ch.EmitRaw(EventTaskUpdate, []byte(`{"not":"a list"}`))
	assert.Equal(t, []string{"keep"}, ids(store.Tasks("panda")))
}

func TestListener_CloseRemovesOnlyItsHandler(t *testing.T) {
	ch := testutil.NewFakeChannel()
	store := NewStore()
	panda := NewListener(ch, store, "panda", zerolog.Nop())
	bear := NewListener(ch, store, "bear", zerolog.Nop())
	require.Equal(t, 2, ch.Handlers(EventTaskUpdate))

	panda.Close()
	panda.Close()
	assert.Equal(t, 1, ch.Handlers(EventTaskUpdate))

	require.NoError(t, ch.Emit(EventTaskUpdate, snapshot))
	assert.Empty(t, store.Tasks("panda"))
	assert.Equal(t, []string{"b1"}, ids(store.Tasks("bear")))

	bear.Close()
	assert.Equal(t, 0, ch.Handlers(EventTaskUpdate))
}

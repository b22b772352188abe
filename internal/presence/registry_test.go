package presence

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeHandle struct{ accepted bool }

func (f *fakeHandle) Enqueue(payload []byte) bool { return f.accepted }

func TestRegisterReportsFirstHandleOnly(t *testing.T) {
	r := NewRegistry()
	h1 := &fakeHandle{}
	h2 := &fakeHandle{}

	require.True(t, r.Register(7, h1))
	require.False(t, r.Register(7, h2))
	require.True(t, r.IsOnline(7))
	require.Len(t, r.HandlesFor(7), 2)
}

func TestUnregisterReportsLastHandleOnly(t *testing.T) {
	r := NewRegistry()
	h1 := &fakeHandle{}
	h2 := &fakeHandle{}
	r.Register(7, h1)
	r.Register(7, h2)

	require.False(t, r.Unregister(7, h1))
	require.True(t, r.IsOnline(7))
	require.True(t, r.Unregister(7, h2))
	require.False(t, r.IsOnline(7))
	require.Empty(t, r.HandlesFor(7))
}

func TestUnregisterUnknownHandleIsNoop(t *testing.T) {
	r := NewRegistry()
	h1 := &fakeHandle{}
	h2 := &fakeHandle{}
	r.Register(7, h1)

	require.False(t, r.Unregister(7, h2))
	require.False(t, r.Unregister(8, h2))
	require.True(t, r.IsOnline(7))
}

func TestSnapshotIsSorted(t *testing.T) {
	r := NewRegistry()
	r.Register(30, &fakeHandle{})
	r.Register(10, &fakeHandle{})
	r.Register(20, &fakeHandle{})

	require.Equal(t, []int{10, 20, 30}, r.Snapshot())
}

func TestAllHandlesSpansUsers(t *testing.T) {
	r := NewRegistry()
	r.Register(1, &fakeHandle{})
	r.Register(1, &fakeHandle{})
	r.Register(2, &fakeHandle{})

	require.Len(t, r.AllHandles(), 3)
}

package speech

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticProvider struct {
	name string
	exec func(ctx context.Context, req *Request) (*Result, error)
}

func (p *staticProvider) Name() string { return p.name }

func (p *staticProvider) Execute(ctx context.Context, req *Request) (*Result, error) {
	if p.exec != nil {
		return p.exec(ctx, req)
	}
	return &Result{Provider: p.name, Text: "ok from " + p.name}, nil
}

func sttDescriptor(name string, priority int, available bool) Descriptor {
	return Descriptor{
		Name:       name,
		Kind:       name,
		Priority:   priority,
		Available:  available,
		Operations: []Operation{OpTranscription},
	}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	err := r.Register(&staticProvider{name: "whisper"}, sttDescriptor("whisper", 10, true))
	require.NoError(t, err)
	assert.Equal(t, 1, r.Len())

	// duplicate name is rejected
	err = r.Register(&staticProvider{name: "whisper"}, sttDescriptor("whisper", 5, true))
	assert.Error(t, err)

	// nil provider is rejected
	err = r.Register(nil, sttDescriptor("azure", 8, true))
	assert.Error(t, err)

	// descriptor must carry at least one operation
	err = r.Register(&staticProvider{name: "empty"}, Descriptor{Name: "empty", Priority: 1, Available: true})
	assert.Error(t, err)

	assert.Equal(t, 1, r.Len())
}

func TestRegistry_RegisterDefaultsNameFromProvider(t *testing.T) {
	r := NewRegistry()

	desc := sttDescriptor("", 10, true)
	require.NoError(t, r.Register(&staticProvider{name: "whisper"}, desc))

	_, ok := r.Get("whisper")
	assert.True(t, ok)
}

func TestRegistry_PriorityOrdering(t *testing.T) {
	r := NewRegistry()

	// A and C share a priority; A registers first and must stay ahead.
	require.NoError(t, r.Register(&staticProvider{name: "a"}, sttDescriptor("a", 10, true)))
	require.NoError(t, r.Register(&staticProvider{name: "b"}, sttDescriptor("b", 5, true)))
	require.NoError(t, r.Register(&staticProvider{name: "c"}, sttDescriptor("c", 10, true)))

	candidates := r.AvailableFor(OpTranscription)
	require.Len(t, candidates, 3)
	assert.Equal(t, "a", candidates[0].Descriptor.Name)
	assert.Equal(t, "c", candidates[1].Descriptor.Name)
	assert.Equal(t, "b", candidates[2].Descriptor.Name)
}

func TestRegistry_AvailableForFiltersOperationAndAvailability(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(&staticProvider{name: "whisper"}, sttDescriptor("whisper", 10, true)))
	require.NoError(t, r.Register(&staticProvider{name: "azure"}, Descriptor{
		Name:       "azure",
		Kind:       "azure",
		Priority:   8,
		Available:  true,
		Operations: []Operation{OpTranscription, OpSynthesis},
	}))
	require.NoError(t, r.Register(&staticProvider{name: "offline"}, sttDescriptor("offline", 1, false)))

	stt := r.AvailableFor(OpTranscription)
	require.Len(t, stt, 2)
	assert.Equal(t, "whisper", stt[0].Descriptor.Name)
	assert.Equal(t, "azure", stt[1].Descriptor.Name)

	tts := r.AvailableFor(OpSynthesis)
	require.Len(t, tts, 1)
	assert.Equal(t, "azure", tts[0].Descriptor.Name)
}

func TestRegistry_SetAvailability(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&staticProvider{name: "whisper"}, sttDescriptor("whisper", 10, true)))

	assert.True(t, r.SetAvailability("whisper", false))
	assert.Empty(t, r.AvailableFor(OpTranscription))

	assert.True(t, r.SetAvailability("whisper", true))
	assert.Len(t, r.AvailableFor(OpTranscription), 1)

	assert.False(t, r.SetAvailability("nope", true))
}

func TestRegistry_SnapshotKeepsRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&staticProvider{name: "b"}, sttDescriptor("b", 5, true)))
	require.NoError(t, r.Register(&staticProvider{name: "a"}, sttDescriptor("a", 10, false)))

	snap := r.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "b", snap[0].Name)
	assert.Equal(t, "a", snap[1].Name)
	assert.False(t, snap[1].Available)
}

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockDescriptor(name string) Descriptor {
	return Descriptor{
		Name:              name,
		DefaultProperties: map[string]any{"speed": 1.0, "tags": []any{"a"}},
	}
}

func TestRegisterAndGet(t *testing.T) {
	r := NewRegistry(mockDescriptor("Mock"))

	d, ok := r.Get("Mock")
	require.True(t, ok)
	assert.Equal(t, "Mock", d.Name)

	_, ok = r.Get("FooBar")
	assert.False(t, ok)
}

func TestRegisterDuplicatePanics(t *testing.T) {
	r := NewRegistry(mockDescriptor("Duplicate"))

	assert.PanicsWithValue(t, `component "Duplicate" already registered`, func() {
		r.Register(mockDescriptor("Duplicate"))
	})
	assert.Panics(t, func() { NewRegistry(mockDescriptor("X"), mockDescriptor("X")) })
	assert.Panics(t, func() { r.Register(Descriptor{}) })
}

func TestAllReturnsCopy(t *testing.T) {
	r := NewRegistry(mockDescriptor("A"), mockDescriptor("B"))

	all := r.All()
	delete(all, "A")
	all["C"] = mockDescriptor("C")

	assert.Equal(t, []string{"A", "B"}, r.Names())
}

func TestNewComponentClonesDefaults(t *testing.T) {
	r := NewRegistry(mockDescriptor("Mock"))

	c, ok := r.NewComponent("Mock")
	require.True(t, ok)
	c.Properties["speed"] = 9.0
	c.Properties["tags"].([]any)[0] = "changed"

	d, _ := r.Get("Mock")
	assert.Equal(t, 1.0, d.DefaultProperties["speed"])
	assert.Equal(t, "a", d.DefaultProperties["tags"].([]any)[0])

	_, ok = r.NewComponent("Unknown")
	assert.False(t, ok)
}

func TestFindSearchesWrappers(t *testing.T) {
	vs := []Visual{
		{Kind: KindBody, Children: []Visual{{Kind: KindMesh, Key: "geometry"}}},
	}

	v, ok := Find(vs, KindMesh)
	require.True(t, ok)
	assert.Equal(t, "geometry", v.Key)

	_, ok = Find(vs, KindLight)
	assert.False(t, ok)
}

package prefab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioJSON = `{
  "id": "scene-1",
  "name": "Scenario",
  "root": {
    "id": "root",
    "children": [
      {
        "id": "c1",
        "components": {
          "transform": {"type": "Transform", "properties": {"position": [0,0,0], "rotation": [0,0,0], "scale": [1,1,1]}},
          "material": {"type": "Material", "properties": {"color": "#ffffff", "roughness": 0.5}},
          "custom": {"type": "FooBar", "properties": {}}
        }
      },
      {"id": "c2", "hidden": true, "disabled": true, "children": [{"id": "c3", "name": "Leaf"}]}
    ]
  }
}`

func TestParseRoundTrip(t *testing.T) {
	p, err := Parse([]byte(scenarioJSON))
	require.NoError(t, err)

	data, err := Marshal(p)
	require.NoError(t, err)

	again, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, p, again)
	assert.Equal(t, "FooBar", again.Root.Children[0].Component("custom").Type)
}

func TestParseRoundTripEmptyCollections(t *testing.T) {
	p, err := Parse([]byte(`{"root": {"id": "r", "children": [], "components": {}}}`))
	require.NoError(t, err)
	assert.Nil(t, p.Root.Children)
	assert.Nil(t, p.Root.Components)

	data, err := Marshal(p)
	require.NoError(t, err)
	again, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, p, again)

	n, err := ParseNode([]byte(`{"id": "n", "children": [{"id": "m", "children": []}]}`))
	require.NoError(t, err)
	assert.Nil(t, n.Children[0].Children)
}

func TestParseKeepsUndefinedComponent(t *testing.T) {
	p, err := Parse([]byte(`{"root":{"id":"r","components":{"gone":null}}}`))
	require.NoError(t, err)

	_, present := p.Root.Components["gone"]
	assert.True(t, present)
	assert.Nil(t, p.Root.Component("gone"))

	data, err := Marshal(p)
	require.NoError(t, err)
	again, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, p, again)
}

func TestParseRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":        `{"root":`,
		"no root":         `{"id":"x"}`,
		"node without id": `{"root":{"children":[{}]}}`,
		"duplicate id":    `{"root":{"id":"a","children":[{"id":"a"}]}}`,
		"null child":      `{"root":{"id":"a","children":[null]}}`,
		"bad transform":   `{"root":{"id":"a","components":{"transform":{"type":"Transform","properties":{"position":[1,2]}}}}}`,
		"non numeric":     `{"root":{"id":"a","components":{"transform":{"type":"Transform","properties":{"scale":["x",1,1]}}}}}`,
		"untyped":         `{"root":{"id":"a","components":{"geometry":{"properties":{}}}}}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestParseNode(t *testing.T) {
	g, err := ParseNode([]byte(`{"id":"n","children":[{"id":"m"}]}`))
	require.NoError(t, err)
	assert.Len(t, Flatten(g), 2)

	_, err = ParseNode([]byte(`{"id":"n","children":[{"id":"n"}]}`))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestComponentAccessors(t *testing.T) {
	c := &ComponentData{Type: "Model", Properties: map[string]any{
		"filename":  "rock.glb",
		"instanced": true,
		"count":     3,
		"offset":    []any{1.0, 2.0, 3.0},
	}}

	assert.Equal(t, "rock.glb", c.String("filename"))
	assert.True(t, c.Bool("instanced"))
	n, ok := c.Number("count")
	assert.True(t, ok)
	assert.Equal(t, 3.0, n)
	v, ok := c.Vec3("offset")
	assert.True(t, ok)
	assert.Equal(t, [3]float64{1, 2, 3}, v)

	var missing *ComponentData
	assert.False(t, missing.Bool("instanced"))
	assert.Equal(t, "", missing.String("filename"))
}

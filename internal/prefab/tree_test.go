package prefab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleTree builds:
//
//	root
//	├── a
//	│   ├── a1
//	│   └── a2
//	└── b
//	    └── b1
func sampleTree() *GameObject {
	return &GameObject{
		ID: "root",
		Children: []*GameObject{
			{
				ID:   "a",
				Name: "Alpha",
				Children: []*GameObject{
					{ID: "a1", Components: map[string]*ComponentData{
						KeyMaterial: {Type: "Material", Properties: map[string]any{"color": "#ff0000"}},
					}},
					{ID: "a2"},
				},
			},
			{
				ID:       "b",
				Children: []*GameObject{{ID: "b1"}},
			},
		},
	}
}

func ids(nodes []*GameObject) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func TestFindNode(t *testing.T) {
	root := sampleTree()

	assert.Same(t, root, FindNode(root, "root"))
	assert.Equal(t, "a2", FindNode(root, "a2").ID)
	assert.Equal(t, "b1", FindNode(root, "b1").ID)
	assert.Nil(t, FindNode(root, "missing"))
	assert.Nil(t, FindNode(nil, "root"))
}

func TestFindParent(t *testing.T) {
	root := sampleTree()

	assert.Equal(t, "a", FindParent(root, "a1").ID)
	assert.Equal(t, "root", FindParent(root, "b").ID)
	assert.Nil(t, FindParent(root, "root"))
	assert.Nil(t, FindParent(root, "missing"))
}

func TestPathAndFlatten(t *testing.T) {
	root := sampleTree()

	assert.Equal(t, []string{"root", "a", "a2"}, ids(Path(root, "a2")))
	assert.Nil(t, Path(root, "missing"))
	assert.Equal(t, []string{"root", "a", "a1", "a2", "b", "b1"}, ids(Flatten(root)))
}

func TestUpdateNodeMissingIDReturnsSameRoot(t *testing.T) {
	root := sampleTree()
	calls := 0

	out := UpdateNode(root, "missing", func(g *GameObject) *GameObject {
		calls++
		return g
	})

	assert.Same(t, root, out)
	assert.Zero(t, calls)
}

func TestUpdateNodeIdentityKeepsSiblings(t *testing.T) {
	root := sampleTree()

	out := UpdateNode(root, "a1", func(g *GameObject) *GameObject { return g })

	require.NotSame(t, root, out, "path to the node is replaced")
	assert.NotSame(t, root.Children[0], out.Children[0])
	assert.Same(t, root.Children[1], out.Children[1], "sibling subtree b is shared")
	assert.Same(t, root.Children[0].Children[0], out.Children[0].Children[0])
	assert.Same(t, root.Children[0].Children[1], out.Children[0].Children[1])
}

func TestUpdateNodeDoesNotMutateInput(t *testing.T) {
	root := sampleTree()

	out := UpdateNode(root, "a1", func(g *GameObject) *GameObject {
		mat := g.Component(KeyMaterial).WithProperty("color", "#00ff00")
		return g.WithComponent(KeyMaterial, mat)
	})

	assert.Equal(t, "#ff0000", FindNode(root, "a1").Component(KeyMaterial).String("color"))
	assert.Equal(t, "#00ff00", FindNode(out, "a1").Component(KeyMaterial).String("color"))
}

func TestDeleteNode(t *testing.T) {
	root := sampleTree()

	assert.Nil(t, DeleteNode(root, "root"), "root cannot be deleted")

	out := DeleteNode(root, "a1")
	require.NotNil(t, out)
	assert.Nil(t, FindNode(out, "a1"))
	assert.Len(t, FindNode(out, "a").Children, len(FindNode(root, "a").Children)-1)
	assert.Same(t, root.Children[1], out.Children[1])
	assert.NotNil(t, FindNode(root, "a1"), "input is untouched")

	assert.Same(t, root, DeleteNode(root, "missing"))
}

func TestCloneNodeAssignsFreshIDs(t *testing.T) {
	root := sampleTree()

	clone := CloneNode(root.Children[0])

	before := Flatten(root.Children[0])
	after := Flatten(clone)
	require.Len(t, after, len(before))

	original := make(map[string]bool)
	for _, n := range before {
		original[n.ID] = true
	}
	seen := make(map[string]bool)
	for _, n := range after {
		assert.False(t, original[n.ID], "id %s reused", n.ID)
		assert.False(t, seen[n.ID], "id %s duplicated", n.ID)
		seen[n.ID] = true
	}
	assert.Equal(t, "Alpha Copy", clone.Name)
	assert.Equal(t, "", clone.Children[0].Name, "only the top clone is renamed")
}

func TestCloneNodeDeepCopiesProperties(t *testing.T) {
	src := &GameObject{ID: "x", Components: map[string]*ComponentData{
		KeyTransform: {Type: "Transform", Properties: map[string]any{"position": []any{1.0, 2.0, 3.0}}},
	}}

	clone := CloneNode(src)
	clone.Components[KeyTransform].Properties["position"].([]any)[0] = 99.0

	assert.Equal(t, 1.0, src.Components[KeyTransform].Properties["position"].([]any)[0])
	assert.Equal(t, "x Copy", clone.Name)
}

func TestRegenerateIDsKeepsNames(t *testing.T) {
	root := sampleTree()

	out := RegenerateIDs(root.Children[0])

	assert.Equal(t, "Alpha", out.Name)
	assert.NotEqual(t, "a", out.ID)
	assert.Len(t, Flatten(out), 3)
}

func TestMoveNode(t *testing.T) {
	root := sampleTree()

	out, err := MoveNode(root, "a2", "b")
	require.NoError(t, err)
	assert.Equal(t, "b", FindParent(out, "a2").ID)
	assert.Len(t, Flatten(out), len(Flatten(root)))

	_, err = MoveNode(root, "a", "a1")
	assert.ErrorIs(t, err, ErrInvalidMove, "cannot move under own descendant")
	_, err = MoveNode(root, "root", "b")
	assert.ErrorIs(t, err, ErrInvalidMove)
}

func TestInsertChild(t *testing.T) {
	root := sampleTree()

	out := InsertChild(root, "b1", &GameObject{ID: "new"})

	assert.Equal(t, "b1", FindParent(out, "new").ID)
	assert.Nil(t, FindNode(root, "new"))
	assert.Same(t, root.Children[0], out.Children[0])
}

package service

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nrenier/ICorNet-sub000/model"
)

type recordingRenderer struct {
	calls []string
	last  *model.Graph
}

func (r *recordingRenderer) Render(g *model.Graph) error {
	r.calls = append(r.calls, "render")
	r.last = g
	return nil
}

func (r *recordingRenderer) Clear() {
	r.calls = append(r.calls, "clear")
}

func graphServer() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/reports/startup-relationships/{name}", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("name") {
		case "AlphaTech":
			writeJSON(w, http.StatusOK, model.RelationshipsResponse{Relationships: model.Graph{
				Nodes: []model.Node{
					{ID: "1", Name: "AlphaTech", Role: model.RoleCenter},
					{ID: "2", Name: "Beta", Role: model.RoleRelated},
				},
				Edges: []model.Edge{
					{Source: "1", Target: "2", Weight: 2, Properties: map[string]any{"settori_comuni": "ICT"}},
				},
			}})
		case "Lonely":
			writeJSON(w, http.StatusOK, model.RelationshipsResponse{})
		default:
			writeJSON(w, http.StatusInternalServerError, model.ErrorResponse{Error: "neo4j down"})
		}
	})
	return mux
}

func TestGraphLoadRendersNonEmptyGraph(t *testing.T) {
	renderer := &recordingRenderer{}
	loader := NewGraphLoader(newTestClient(t, graphServer()), StartupDomain, newTestScope(t), renderer)

	var states []GraphState
	loader.OnChange(func(s GraphState) { states = append(states, s) })

	g, err := loader.Load(context.Background(), "AlphaTech")

	require.NoError(t, err)
	assert.Len(t, g.Nodes, 2)
	assert.Equal(t, []string{"clear", "render"}, renderer.calls)

	require.Len(t, states, 2)
	assert.True(t, states[0].Loading)
	assert.False(t, states[1].Loading)
	assert.Empty(t, states[1].Error)
	assert.Len(t, loader.State().Graph.Edges, 1)
}

func TestGraphLoadEmptyGraphSkipsRender(t *testing.T) {
	renderer := &recordingRenderer{}
	loader := NewGraphLoader(newTestClient(t, graphServer()), StartupDomain, newTestScope(t), renderer)

	_, err := loader.Load(context.Background(), "Lonely")

	require.NoError(t, err)
	assert.Equal(t, []string{"clear"}, renderer.calls)
}

func TestGraphLoadFailureEmptiesGraph(t *testing.T) {
	loader := NewGraphLoader(newTestClient(t, graphServer()), StartupDomain, newTestScope(t), nil)
	_, err := loader.Load(context.Background(), "AlphaTech")
	require.NoError(t, err)

	_, err = loader.Load(context.Background(), "Broken")

	require.Error(t, err)
	st := loader.State()
	assert.False(t, st.Loading)
	assert.Equal(t, StartupDomain.Labels.GraphError, st.Error)
	assert.True(t, st.Graph.Empty())
}

func TestGraphLoadWithoutRenderer(t *testing.T) {
	loader := NewGraphLoader(newTestClient(t, graphServer()), StartupDomain, newTestScope(t), nil)

	g, err := loader.Load(context.Background(), "AlphaTech")

	require.NoError(t, err)
	assert.False(t, g.Empty())
	assert.Equal(t, "AlphaTech", loader.State().Entity)
}

func TestSelectEdge(t *testing.T) {
	loader := NewGraphLoader(newTestClient(t, graphServer()), StartupDomain, newTestScope(t), nil)
	_, err := loader.Load(context.Background(), "AlphaTech")
	require.NoError(t, err)

	var got RelationshipSelected
	loader.OnRelationship(func(r RelationshipSelected) { got = r })

	sel, err := loader.SelectEdge(0)
	require.NoError(t, err)
	assert.Equal(t, sel, got)
	assert.Equal(t, "AlphaTech", sel.SourceName)
	assert.Equal(t, "Beta", sel.TargetName)
	assert.Equal(t, "ICT", sel.Properties["settori_comuni"])

	_, err = loader.SelectEdge(3)
	assert.Error(t, err)
}

func TestDOTRenderer(t *testing.T) {
	var buf bytes.Buffer
	g := &model.Graph{
		Nodes: []model.Node{
			{ID: "1", Name: `Alpha "Tech"`, Role: model.RoleCenter},
			{ID: "2", Name: "Beta", Role: model.RoleRelated},
		},
		Edges: []model.Edge{{Source: "1", Target: "2", Weight: 1.5, Properties: map[string]any{"b": 2, "a": "x"}}},
	}

	require.NoError(t, DOTRenderer{W: &buf}.Render(g))

	out := buf.String()
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "graph relationships"), out)
	assert.Contains(t, out, `label="Alpha \"Tech\""`)
	assert.Contains(t, out, `fillcolor="#f4a261"`)
	assert.Contains(t, out, `label="Beta"`)
	assert.Contains(t, out, "--")
	assert.Contains(t, out, `label="a: x\nb: 2"`)
	assert.Contains(t, out, `weight="1.5"`)
	assert.Equal(t, 1, strings.Count(out, "--"))
}

package service

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/emicklei/dot"

	"github.com/nrenier/ICorNet-sub000/model"
	"github.com/nrenier/ICorNet-sub000/pkg/logger"
)

// Renderer draws a relationship graph. Every load tears the previous drawing
// down with Clear before Render is called again.
type Renderer interface {
	Render(g *model.Graph) error
	Clear()
}

// RelationshipSelected describes the edge a user picked.
type RelationshipSelected struct {
	SourceName string
	TargetName string
	Properties map[string]any
}

// GraphState is a snapshot of a graph view.
type GraphState struct {
	Entity  string
	Loading bool
	Error   string
	Graph   model.Graph
}

// GraphLoader fetches the relationship neighborhood of one entity and hands
// it to an optional renderer.
type GraphLoader struct {
	client   *APIClient
	domain   ReportDomain
	scope    *Scope
	renderer Renderer

	mu             sync.Mutex
	state          GraphState
	onChange       func(GraphState)
	onRelationship func(RelationshipSelected)
}

// NewGraphLoader builds a loader. renderer may be nil, in which case loads
// still update the state and only drawing is skipped.
func NewGraphLoader(client *APIClient, domain ReportDomain, scope *Scope, renderer Renderer) *GraphLoader {
	return &GraphLoader{
		client:   client,
		domain:   domain,
		scope:    scope,
		renderer: renderer,
	}
}

func (l *GraphLoader) OnChange(fn func(GraphState)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = fn
}

// OnRelationship registers the consumer of edge selections.
func (l *GraphLoader) OnRelationship(fn func(RelationshipSelected)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onRelationship = fn
}

// Load replaces the graph with the neighborhood of name. On failure the graph
// is emptied and Error carries the domain's message.
func (l *GraphLoader) Load(ctx context.Context, name string) (*model.Graph, error) {
	l.update(func() {
		l.state = GraphState{Entity: name, Loading: true}
	})
	if l.renderer != nil {
		l.renderer.Clear()
	}

	var resp model.RelationshipsResponse
	endpoint := l.domain.RelationshipsPath + "/" + url.PathEscape(name)
	if err := l.client.Get(ctx, endpoint, nil, &resp); err != nil {
		logger.Warn(ctx, "relationship load failed", "company", name, "error", err)
		l.update(func() {
			if l.state.Entity != name {
				return
			}
			l.state.Loading = false
			l.state.Error = l.domain.Labels.GraphError
			l.state.Graph = model.Graph{}
		})
		return nil, err
	}

	graph := resp.Relationships
	applied := false
	l.update(func() {
		if l.state.Entity != name {
			return
		}
		l.state.Loading = false
		l.state.Graph = graph
		applied = true
	})

	if applied && l.renderer != nil && !graph.Empty() && l.scope.Alive() {
		if err := l.renderer.Render(&graph); err != nil {
			logger.Warn(ctx, "graph render failed", "company", name, "error", err)
		}
	}
	return &graph, nil
}

// SelectEdge emits the relationship at index i of the current graph.
func (l *GraphLoader) SelectEdge(i int) (RelationshipSelected, error) {
	l.mu.Lock()
	g := l.state.Graph
	fn := l.onRelationship
	l.mu.Unlock()

	if i < 0 || i >= len(g.Edges) {
		return RelationshipSelected{}, fmt.Errorf("edge %d out of range (%d edges)", i, len(g.Edges))
	}
	e := g.Edges[i]
	sel := RelationshipSelected{
		SourceName: g.NodeName(e.Source),
		TargetName: g.NodeName(e.Target),
		Properties: e.Properties,
	}
	if fn != nil && l.scope.Alive() {
		fn(sel)
	}
	return sel, nil
}

func (l *GraphLoader) State() GraphState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *GraphLoader) update(fn func()) {
	l.mu.Lock()
	if !l.scope.Alive() {
		l.mu.Unlock()
		return
	}
	fn()
	listener, snapshot := l.onChange, l.state
	l.mu.Unlock()

	if listener != nil {
		listener(snapshot)
	}
}

// DOTRenderer writes graphs in Graphviz DOT syntax.
type DOTRenderer struct {
	W io.Writer
}

func (r DOTRenderer) Clear() {}

func (r DOTRenderer) Render(g *model.Graph) error {
	graph := dot.NewGraph(dot.Undirected)
	graph.ID("relationships")

	nodes := make(map[string]dot.Node, len(g.Nodes))
	node := func(id string) dot.Node {
		if n, ok := nodes[id]; ok {
			return n
		}
		n := graph.Node(id)
		nodes[id] = n
		return n
	}
	for _, n := range g.Nodes {
		dn := node(n.ID).Attr("label", n.Name)
		if n.Role == model.RoleCenter {
			dn.Attr("style", "filled").Attr("fillcolor", "#f4a261")
		}
	}
	for _, e := range g.Edges {
		de := graph.Edge(node(e.Source), node(e.Target)).Attr("weight", strconv.FormatFloat(e.Weight, 'f', -1, 64))
		if label := edgeLabel(e.Properties); label != "" {
			de.Attr("label", label)
		}
	}

	_, err := io.WriteString(r.W, graph.String())
	return err
}

func edgeLabel(props map[string]any) string {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %v", k, props[k]))
	}
	return strings.Join(parts, "\n")
}

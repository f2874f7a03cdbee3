package model

// Node roles
const (
	RoleCenter  = "center"
	RoleRelated = "related"
)

// Node is one company in a relationship graph.
type Node struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// Edge links two nodes. Properties carry whatever the graph database stored on
// the relationship (shared sectors, supply volumes, ...).
type Edge struct {
	Source     string         `json:"source"`
	Target     string         `json:"target"`
	Weight     float64        `json:"weight"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Graph is a server-defined relationship neighborhood around one entity.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Empty reports whether the graph has nothing to render.
func (g *Graph) Empty() bool {
	return g == nil || len(g.Nodes) == 0
}

// NodeName resolves a node id to its display name, falling back to the id.
func (g *Graph) NodeName(id string) string {
	if g == nil {
		return id
	}
	for _, n := range g.Nodes {
		if n.ID == id {
			return n.Name
		}
	}
	return id
}

// RelationshipsResponse is returned by GET /reports/relationships/{name}
type RelationshipsResponse struct {
	Relationships Graph `json:"relationships"`
}

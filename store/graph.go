package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/nrenier/ICorNet-sub000/config"
	"github.com/nrenier/ICorNet-sub000/model"
)

// ErrUnknownCompany is returned when the center of a graph does not exist.
var ErrUnknownCompany = errors.New("company not found")

// GraphSource returns the relationship neighborhood of a company.
type GraphSource interface {
	Relationships(ctx context.Context, ds Dataset, name string) (model.Graph, error)
}

// FixtureGraphSource links companies of the same dataset that share a sector.
type FixtureGraphSource struct {
	Fixtures *Fixtures
}

func (s FixtureGraphSource) Relationships(_ context.Context, ds Dataset, name string) (model.Graph, error) {
	center, ok := s.Fixtures.Find(ds, name)
	if !ok {
		return model.Graph{}, ErrUnknownCompany
	}

	g := model.Graph{
		Nodes: []model.Node{{ID: "0", Name: name, Role: model.RoleCenter}},
		Edges: []model.Edge{},
	}
	centerSectors := Sectors(center)
	for _, other := range s.Fixtures.List(ds) {
		if other.Name() == name {
			continue
		}
		shared := intersect(centerSectors, Sectors(other))
		if len(shared) == 0 {
			continue
		}
		id := strconv.Itoa(len(g.Nodes))
		g.Nodes = append(g.Nodes, model.Node{ID: id, Name: other.Name(), Role: model.RoleRelated})
		g.Edges = append(g.Edges, model.Edge{
			Source:     "0",
			Target:     id,
			Weight:     float64(len(shared)),
			Properties: map[string]any{"tipo": "stesso_settore", "settori_comuni": shared},
		})
	}
	return g, nil
}

func intersect(a, b []string) []string {
	seen := make(map[string]bool, len(a))
	for _, s := range a {
		seen[s] = true
	}
	var out []string
	for _, s := range b {
		if seen[s] {
			out = append(out, s)
			seen[s] = false
		}
	}
	return out
}

// datasetLabels maps datasets to node labels in the graph database.
var datasetLabels = map[Dataset]string{
	DatasetCompanies:      "Company",
	DatasetStartup:        "Startup",
	DatasetFederterziario: "Federterziario",
}

// Neo4jGraphSource reads one-hop neighborhoods from Neo4j.
type Neo4jGraphSource struct {
	driver   neo4j.DriverWithContext
	database string
}

func NewNeo4jGraphSource(ctx context.Context, cfg *config.Neo4jConfig) (*Neo4jGraphSource, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j: %w", err)
	}
	return &Neo4jGraphSource{driver: driver, database: cfg.Database}, nil
}

func (s *Neo4jGraphSource) Relationships(ctx context.Context, ds Dataset, name string) (model.Graph, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	query := fmt.Sprintf(`
		MATCH (c:%s {name: $name})
		OPTIONAL MATCH (c)-[r]-(n)
		RETURN c, r, n
		LIMIT 200
	`, datasetLabels[ds])

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx, query, map[string]any{"name": name})
		if err != nil {
			return nil, err
		}
		return records.Collect(ctx)
	})
	if err != nil {
		return model.Graph{}, fmt.Errorf("relationship query failed: %w", err)
	}

	records := result.([]*neo4j.Record)
	if len(records) == 0 {
		return model.Graph{}, ErrUnknownCompany
	}

	var hops []Hop
	var center neo4j.Node
	for i, rec := range records {
		c, _ := rec.Get("c")
		if i == 0 {
			center, _ = c.(neo4j.Node)
		}
		r, _ := rec.Get("r")
		n, _ := rec.Get("n")
		rel, okRel := r.(neo4j.Relationship)
		node, okNode := n.(neo4j.Node)
		if okRel && okNode {
			hops = append(hops, Hop{Relationship: rel, Neighbor: node})
		}
	}

	g := GraphFromHops(center, hops)
	slog.Debug("relationships loaded from neo4j", "company", name, "nodes", len(g.Nodes), "edges", len(g.Edges))
	return g, nil
}

func (s *Neo4jGraphSource) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// Hop is one relationship of the center node and the node at its other end.
type Hop struct {
	Relationship neo4j.Relationship
	Neighbor     neo4j.Node
}

// GraphFromHops converts a neighborhood returned by Neo4j into a graph. Edges
// keep the database direction; the weight comes from the "weight" property
// and defaults to 1.
func GraphFromHops(center neo4j.Node, hops []Hop) model.Graph {
	g := model.Graph{
		Nodes: []model.Node{{ID: center.ElementId, Name: nodeName(center), Role: model.RoleCenter}},
		Edges: []model.Edge{},
	}
	seen := map[string]bool{center.ElementId: true}

	for _, h := range hops {
		if !seen[h.Neighbor.ElementId] {
			seen[h.Neighbor.ElementId] = true
			g.Nodes = append(g.Nodes, model.Node{ID: h.Neighbor.ElementId, Name: nodeName(h.Neighbor), Role: model.RoleRelated})
		}

		props := make(map[string]any, len(h.Relationship.Props)+1)
		for k, v := range h.Relationship.Props {
			props[k] = v
		}
		props["tipo"] = h.Relationship.Type

		g.Edges = append(g.Edges, model.Edge{
			Source:     h.Relationship.StartElementId,
			Target:     h.Relationship.EndElementId,
			Weight:     weightOf(h.Relationship.Props["weight"]),
			Properties: props,
		})
	}
	return g
}

func nodeName(n neo4j.Node) string {
	if name, ok := n.Props["name"].(string); ok {
		return name
	}
	return n.ElementId
}

func weightOf(v any) float64 {
	switch w := v.(type) {
	case int64:
		return float64(w)
	case float64:
		return w
	}
	return 1
}

// Package flow builds the data-flow graph of a tenant's systems: nodes are
// data assets with inferred region, country and data category; edges are
// transfers with purpose, legal basis and the cross-border flag.
package flow

import (
	"errors"
	"fmt"

	"verisyntra.org/internal/ids"
)

var (
	ErrUnknownNode   = errors.New("flow: unknown node")
	ErrDuplicateNode = errors.New("flow: duplicate node")
)

// DataCategory is the PDPL classification of an asset's contents.
type DataCategory string

const (
	CategoryBasic       DataCategory = "Category 1"
	CategorySensitive   DataCategory = "Category 2"
	CategoryNonPersonal DataCategory = "Non-Personal"
)

// DataAssetNode is one system or store holding data.
type DataAssetNode struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Location    string       `json:"location"`
	Region      string       `json:"region,omitempty"`
	Country     string       `json:"country"`
	Category    DataCategory `json:"category"`
	Sensitive   bool         `json:"sensitive"`
	RecordCount int64        `json:"record_count"`
	RequiresMPS bool         `json:"requires_mps_notification"`
}

// DataFlowEdge is one transfer between two nodes. IsCrossBorder holds iff at
// least one endpoint country is not VN; the graph enforces this on insert.
type DataFlowEdge struct {
	ID            string  `json:"id"`
	SourceID      string  `json:"source_id"`
	TargetID      string  `json:"target_id"`
	Purpose       Purpose `json:"purpose"`
	Confidence    float64 `json:"purpose_confidence"`
	LegalBasis    string  `json:"legal_basis"`
	Encrypted     bool    `json:"encrypted"`
	IsCrossBorder bool    `json:"is_cross_border"`
	SourceCountry string  `json:"source_country"`
	TargetCountry string  `json:"target_country"`
	Volume        int64   `json:"volume,omitempty"`
	Description   string  `json:"description,omitempty"`
}

// Graph is a directed multigraph. It is not safe for concurrent mutation;
// callers build it in one pass and then treat it as read-only.
type Graph struct {
	nodes map[string]*DataAssetNode
	order []string
	edges []DataFlowEdge
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{nodes: make(map[string]*DataAssetNode)}
}

// AddNode inserts a node. An empty ID gets a generated one.
func (g *Graph) AddNode(node DataAssetNode) (DataAssetNode, error) {
	if node.ID == "" {
		node.ID = ids.New()
	}
	if _, dup := g.nodes[node.ID]; dup {
		return DataAssetNode{}, fmt.Errorf("%w: %s", ErrDuplicateNode, node.ID)
	}
	if node.Country == "" {
		node.Country = "VN"
	}
	n := node
	g.nodes[n.ID] = &n
	g.order = append(g.order, n.ID)
	return n, nil
}

// AddEdge inserts an edge between existing nodes. Endpoint countries are
// copied from the nodes when unset, and the cross-border flag is derived from
// the countries regardless of what the caller passed.
func (g *Graph) AddEdge(edge DataFlowEdge) (DataFlowEdge, error) {
	src, ok := g.nodes[edge.SourceID]
	if !ok {
		return DataFlowEdge{}, fmt.Errorf("%w: source %s", ErrUnknownNode, edge.SourceID)
	}
	dst, ok := g.nodes[edge.TargetID]
	if !ok {
		return DataFlowEdge{}, fmt.Errorf("%w: target %s", ErrUnknownNode, edge.TargetID)
	}
	if edge.ID == "" {
		edge.ID = ids.New()
	}
	if edge.SourceCountry == "" {
		edge.SourceCountry = src.Country
	}
	if edge.TargetCountry == "" {
		edge.TargetCountry = dst.Country
	}
	edge.IsCrossBorder = edge.SourceCountry != "VN" || edge.TargetCountry != "VN"
	g.edges = append(g.edges, edge)
	return edge, nil
}

// Node looks a node up by ID.
func (g *Graph) Node(id string) (DataAssetNode, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return DataAssetNode{}, false
	}
	return *n, true
}

// Nodes returns nodes in insertion order.
func (g *Graph) Nodes() []DataAssetNode {
	out := make([]DataAssetNode, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, *g.nodes[id])
	}
	return out
}

// Edges returns all edges.
func (g *Graph) Edges() []DataFlowEdge {
	return append([]DataFlowEdge(nil), g.edges...)
}

// CrossBorderEdges returns only edges leaving or entering Vietnam.
func (g *Graph) CrossBorderEdges() []DataFlowEdge {
	var out []DataFlowEdge
	for _, e := range g.edges {
		if e.IsCrossBorder {
			out = append(out, e)
		}
	}
	return out
}

// Report is the serializable projection of a graph, attached to scan results.
type Report struct {
	Nodes            []DataAssetNode `json:"nodes"`
	Edges            []DataFlowEdge  `json:"edges,omitempty"`
	CrossBorderCount int             `json:"cross_border_count"`
	MPSNotifications int             `json:"mps_notifications_required"`
}

// Report flattens the graph for storage and transport.
func (g *Graph) Report() *Report {
	r := &Report{
		Nodes: g.Nodes(),
		Edges: g.Edges(),
	}
	r.CrossBorderCount = len(g.CrossBorderEdges())
	for _, n := range r.Nodes {
		if n.RequiresMPS {
			r.MPSNotifications++
		}
	}
	return r
}

// Source describes one discovered system for graph construction.
type Source struct {
	Name        string
	Location    string
	Columns     []string
	RecordCount int64
	Connections []Connection
}

// Connection declares a transfer from the enclosing source to another one.
type Connection struct {
	Target      string
	Description string
	Encrypted   bool
	Volume      int64
}

// Build constructs a graph from sources in two passes, nodes first so every
// edge endpoint exists when edges are wired.
func Build(sources []Source, inf *Inferencer) (*Graph, error) {
	g := NewGraph()
	byName := make(map[string]string, len(sources))
	for _, src := range sources {
		node := inf.Node(src)
		added, err := g.AddNode(node)
		if err != nil {
			return nil, err
		}
		byName[src.Name] = added.ID
	}
	for _, src := range sources {
		for _, conn := range src.Connections {
			targetID, ok := byName[conn.Target]
			if !ok {
				return nil, fmt.Errorf("%w: connection target %q", ErrUnknownNode, conn.Target)
			}
			purpose, confidence := ClassifyPurpose(conn.Description)
			srcNode, _ := g.Node(byName[src.Name])
			basis := RecommendLegalBasis(purpose, srcNode.Sensitive)
			if _, err := g.AddEdge(DataFlowEdge{
				SourceID:    byName[src.Name],
				TargetID:    targetID,
				Purpose:     purpose,
				Confidence:  confidence,
				LegalBasis:  basis.Primary,
				Encrypted:   conn.Encrypted,
				Volume:      conn.Volume,
				Description: conn.Description,
			}); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

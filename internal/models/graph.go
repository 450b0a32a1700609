// internal/models/graph.go
package models

// GraphNode 故事图中的场景节点
type GraphNode struct {
	ID    string  `json:"id"`
	Label string  `json:"label"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// GraphEdge 由Choice投影出的有向边
type GraphEdge struct {
	ID       string `json:"id"`
	SourceID string `json:"source"`
	TargetID string `json:"target"`
	Label    string `json:"label"`
}

// GraphData 节点图视图消费的完整投影
type GraphData struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

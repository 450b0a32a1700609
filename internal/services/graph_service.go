// internal/services/graph_service.go
package services

import (
	"fmt"

	apperrors "github.com/Corphon/StoryCanvas/internal/errors"
	"github.com/Corphon/StoryCanvas/internal/models"
)

// GraphService 把场景选项投影成节点图，并把图上的编辑翻译回
// 数据模型的变更。这是一个双向边界：任何变更之后都能从选项
// 列表重新生成完整的图。
type GraphService struct {
	SceneService *SceneService
}

// NewGraphService 创建图视图服务
func NewGraphService(sceneService *SceneService) *GraphService {
	return &GraphService{
		SceneService: sceneService,
	}
}

// Project 把当前场景集合投影为节点和边
func (g *GraphService) Project() *models.GraphData {
	scenes := g.SceneService.Scenes()
	order := g.SceneService.SceneOrder()

	data := &models.GraphData{
		Nodes: make([]models.GraphNode, 0, len(scenes)),
		Edges: []models.GraphEdge{},
	}

	appendScene := func(scene *models.Scene) {
		data.Nodes = append(data.Nodes, models.GraphNode{
			ID:    scene.ID,
			Label: scene.Name,
			X:     scene.GraphX,
			Y:     scene.GraphY,
		})
		for _, choice := range scene.Choices {
			data.Edges = append(data.Edges, models.GraphEdge{
				ID:       fmt.Sprintf("%s-%s", scene.ID, choice.ID),
				SourceID: scene.ID,
				TargetID: choice.NextSceneID,
				Label:    choice.Label,
			})
		}
	}

	emitted := make(map[string]bool, len(scenes))
	for _, id := range order {
		if scene, ok := scenes[id]; ok {
			appendScene(scene)
			emitted[id] = true
		}
	}
	for id, scene := range scenes {
		if !emitted[id] {
			appendScene(scene)
		}
	}

	return data
}

// Connect 在图上连接两个场景节点，落为源场景上的一个选项
func (g *GraphService) Connect(sourceSceneID, targetSceneID string) error {
	if sourceSceneID == targetSceneID {
		return apperrors.NewValidationError("场景不能连接到自身", nil)
	}

	scenes := g.SceneService.Scenes()
	target, ok := scenes[targetSceneID]
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("目标场景不存在: %s", targetSceneID), nil)
	}
	source, ok := scenes[sourceSceneID]
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("源场景不存在: %s", sourceSceneID), nil)
	}

	// 已有指向同一目标的选项时拒绝重复连接
	for _, choice := range source.Choices {
		if choice.NextSceneID == targetSceneID {
			return apperrors.NewConflictError("两个场景之间已有连接", nil)
		}
	}

	label := target.Name
	if label == "" {
		label = target.ID
	}

	return g.SceneService.AddChoice(sourceSceneID, models.Choice{
		ID:          fmt.Sprintf("%s-%s", sourceSceneID, targetSceneID),
		Label:       label,
		NextSceneID: targetSceneID,
	})
}

// MoveNode 把节点的新位置持久化到场景的显示坐标
func (g *GraphService) MoveNode(sceneID string, x, y float64) {
	g.SceneService.SetGraphPosition(sceneID, x, y)
}

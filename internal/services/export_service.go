// internal/services/export_service.go
package services

import (
	"encoding/json"
	"fmt"
	"time"

	apperrors "github.com/Corphon/StoryCanvas/internal/errors"
	"github.com/Corphon/StoryCanvas/internal/models"
)

// ExportService 负责工程文件的导出与导入。
// 导出必须无损地往返数据模型的每一个字段（图层内条目顺序、
// 对话顺序、选项列表）；导入在触碰在线状态之前做整体校验，
// 半合法的文档不会污染当前工程。
type ExportService struct {
	SceneService *SceneService
	AssetService *AssetService
}

// NewExportService 创建导出服务
func NewExportService(sceneService *SceneService, assetService *AssetService) *ExportService {
	return &ExportService{
		SceneService: sceneService,
		AssetService: assetService,
	}
}

// ExportProject 把当前工程序列化为项目文件内容
func (e *ExportService) ExportProject() (*models.ExportResult, error) {
	project := models.Project{
		Name:   e.SceneService.Name(),
		Scenes: e.SceneService.Scenes(),
		Assets: e.AssetService.StoredAssets(),
	}

	content, err := json.MarshalIndent(project, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("序列化工程失败: %w", err)
	}

	filename := fmt.Sprintf("%s-%s.json", project.Name, time.Now().Format("2006-01-02"))

	return &models.ExportResult{
		ProjectName: project.Name,
		Format:      "json",
		Content:     string(content),
		GeneratedAt: time.Now(),
		FilePath:    filename,
		FileSize:    int64(len(content)),
		SceneCount:  len(project.Scenes),
	}, nil
}

// ImportProject 校验并导入一份工程文档。
// 结构不合法时返回校验错误，在线状态保持原样不动。
func (e *ExportService) ImportProject(doc *models.ProjectDocument) error {
	if err := validateProjectDocument(doc); err != nil {
		return err
	}

	scenes := make(map[string]*models.Scene, len(doc.Scenes))
	for key, sceneDoc := range doc.Scenes {
		scene := &models.Scene{
			ID:       sceneDoc.ID,
			Name:     sceneDoc.Name,
			Width:    sceneDoc.Width,
			Layers:   sceneDoc.Layers,
			Dialogue: sceneDoc.Dialogue,
			Choices:  sceneDoc.Choices,
			GraphX:   sceneDoc.GraphX,
			GraphY:   sceneDoc.GraphY,
		}
		models.ApplyDefaults(scene)
		scenes[key] = scene
	}

	// 校验全部通过后才替换在线状态
	e.SceneService.ReplaceAll(doc.Name, scenes, nil)

	project := &models.Project{
		Name:   doc.Name,
		Scenes: scenes,
		Assets: doc.Assets,
	}
	e.AssetService.LoadFromProject(project)

	return nil
}

// ImportProjectJSON 解析原始JSON并导入，入口给文件上传使用
func (e *ExportService) ImportProjectJSON(content []byte) error {
	var doc models.ProjectDocument
	if err := json.Unmarshal(content, &doc); err != nil {
		return apperrors.NewValidationError("工程文件不是合法的JSON", err)
	}
	return e.ImportProject(&doc)
}

// validateProjectDocument 对文档做整体结构校验。
// gin绑定层已经校验过binding标签，这里覆盖直接调用的路径并
// 补充键与ID的一致性、选项引用等深层检查。
func validateProjectDocument(doc *models.ProjectDocument) error {
	if doc == nil {
		return apperrors.NewValidationError("工程文档为空", nil)
	}
	if doc.Name == "" {
		return apperrors.NewValidationError("工程缺少名称", nil)
	}
	if doc.Scenes == nil {
		return apperrors.NewValidationError("工程缺少场景集合", nil)
	}

	for key, scene := range doc.Scenes {
		if scene.ID == "" {
			return apperrors.NewValidationError(fmt.Sprintf("场景 %q 缺少ID", key), nil)
		}
		if scene.ID != key {
			return apperrors.NewValidationError(fmt.Sprintf("场景键 %q 与ID %q 不一致", key, scene.ID), nil)
		}

		seen := make(map[models.LayerID]bool, len(scene.Layers))
		for _, layer := range scene.Layers {
			if !isCanonicalLayer(layer.ID) {
				return apperrors.NewValidationError(fmt.Sprintf("场景 %q 含有未知图层 %q", key, layer.ID), nil)
			}
			if seen[layer.ID] {
				return apperrors.NewValidationError(fmt.Sprintf("场景 %q 的图层 %q 重复", key, layer.ID), nil)
			}
			seen[layer.ID] = true

			for _, item := range layer.Items {
				if item.ID == "" {
					return apperrors.NewValidationError(fmt.Sprintf("场景 %q 图层 %q 中存在缺少ID的条目", key, layer.ID), nil)
				}
			}
		}

		for _, d := range scene.Dialogue {
			if d.ID == "" {
				return apperrors.NewValidationError(fmt.Sprintf("场景 %q 中存在缺少ID的台词", key), nil)
			}
		}

		for _, c := range scene.Choices {
			if c.NextSceneID == "" {
				return apperrors.NewValidationError(fmt.Sprintf("场景 %q 的选项 %q 缺少目标场景", key, c.ID), nil)
			}
		}
	}

	return nil
}

func isCanonicalLayer(id models.LayerID) bool {
	for _, canonical := range models.CanonicalLayers {
		if id == canonical {
			return true
		}
	}
	return false
}

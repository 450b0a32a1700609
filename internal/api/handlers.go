// internal/api/handlers.go
package api

import (
	"net/http"

	apperrors "github.com/Corphon/StoryCanvas/internal/errors"
	"github.com/Corphon/StoryCanvas/internal/models"
	"github.com/Corphon/StoryCanvas/internal/services"
	"github.com/gin-gonic/gin"
)

// Handler API处理器，持有全部注入的服务
type Handler struct {
	SceneService   *services.SceneService
	DragService    *services.DragService
	SectionService *services.SectionService
	ExportService  *services.ExportService
	AssetService   *services.AssetService
	GraphService   *services.GraphService

	rh *ResponseHelper
}

// NewHandler 创建API处理器
func NewHandler(
	sceneService *services.SceneService,
	dragService *services.DragService,
	sectionService *services.SectionService,
	exportService *services.ExportService,
	assetService *services.AssetService,
	graphService *services.GraphService,
) *Handler {
	return &Handler{
		SceneService:   sceneService,
		DragService:    dragService,
		SectionService: sectionService,
		ExportService:  exportService,
		AssetService:   assetService,
		GraphService:   graphService,
		rh:             NewResponseHelper(),
	}
}

// ===============================
// 工程
// ===============================

// GetProject 返回当前工程的完整状态
func (h *Handler) GetProject(c *gin.Context) {
	h.rh.Success(c, gin.H{
		"name":   h.SceneService.Name(),
		"scenes": h.SceneService.Scenes(),
		"order":  h.SceneService.SceneOrder(),
	})
}

// RenameProjectRequest 重命名工程请求
type RenameProjectRequest struct {
	Name string `json:"name" binding:"required"`
}

// RenameProject 修改工程名
func (h *Handler) RenameProject(c *gin.Context) {
	var req RenameProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.rh.BadRequest(c, "工程名称不能为空", err.Error())
		return
	}

	h.SceneService.SetName(req.Name)
	h.rh.Success(c, gin.H{"name": req.Name}, "工程重命名成功")
}

// ExportProject 导出工程文件
func (h *Handler) ExportProject(c *gin.Context) {
	result, err := h.ExportService.ExportProject()
	if err != nil {
		h.rh.Error(c, http.StatusInternalServerError, ErrorExportFailed, "导出工程失败", err.Error())
		return
	}

	if c.Query("download") == "true" {
		h.rh.FileResponse(c, result.Content, result.FilePath, "application/json; charset=utf-8")
		return
	}
	h.rh.Success(c, result, "导出成功")
}

// ImportProject 导入工程文件。
// 绑定和校验失败的文档被整体拒绝，在线状态保持不变。
func (h *Handler) ImportProject(c *gin.Context) {
	var doc models.ProjectDocument
	if err := c.ShouldBindJSON(&doc); err != nil {
		h.rh.Error(c, http.StatusBadRequest, ErrorImportInvalid, "工程文件结构不合法", err.Error())
		return
	}

	if err := h.ExportService.ImportProject(&doc); err != nil {
		if apperrors.IsValidationError(err) {
			h.rh.Error(c, http.StatusBadRequest, ErrorImportInvalid, err.Error())
			return
		}
		h.rh.InternalError(c, "导入工程失败", err.Error())
		return
	}

	h.rh.Success(c, gin.H{
		"name":   h.SceneService.Name(),
		"scenes": h.SceneService.Scenes(),
	}, "导入成功")
}

// SaveProject 把当前工程写入存储
func (h *Handler) SaveProject(c *gin.Context) {
	if err := h.SceneService.Save(h.AssetService.StoredAssets()); err != nil {
		h.rh.InternalError(c, "保存工程失败", err.Error())
		return
	}
	h.rh.Success(c, nil, "保存成功")
}

// ===============================
// 场景
// ===============================

// GetScenes 返回全部场景
func (h *Handler) GetScenes(c *gin.Context) {
	h.rh.Success(c, gin.H{
		"scenes": h.SceneService.Scenes(),
		"order":  h.SceneService.SceneOrder(),
	})
}

// CreateSceneRequest 创建场景请求
type CreateSceneRequest struct {
	Name string `json:"name" binding:"required"`
}

// CreateScene 创建新场景
func (h *Handler) CreateScene(c *gin.Context) {
	var req CreateSceneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.rh.Error(c, http.StatusBadRequest, ErrorSceneInvalid, "场景名称不能为空", err.Error())
		return
	}

	scene, err := h.SceneService.AddScene(req.Name)
	if err != nil {
		h.rh.Error(c, http.StatusBadRequest, ErrorSceneCreateFailed, "创建场景失败", err.Error())
		return
	}

	h.rh.Created(c, scene, "场景创建成功")
}

// GetScene 按ID获取场景
func (h *Handler) GetScene(c *gin.Context) {
	sceneID := c.Param("id")

	scene, ok := h.SceneService.GetScene(sceneID)
	if !ok {
		h.rh.Error(c, http.StatusNotFound, ErrorSceneNotFound, "场景不存在", sceneID)
		return
	}

	h.rh.Success(c, scene)
}

// ===============================
// 对话
// ===============================

// AddDialogueRequest 新增台词请求
type AddDialogueRequest struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// AddDialogue 向场景追加台词
func (h *Handler) AddDialogue(c *gin.Context) {
	sceneID := c.Param("id")

	var req AddDialogueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.rh.BadRequest(c, "请求格式不正确", err.Error())
		return
	}

	dialogue, err := h.SceneService.AddDialogue(sceneID, models.Dialogue{
		Speaker: req.Speaker,
		Text:    req.Text,
	})
	if err != nil {
		h.rh.Error(c, http.StatusNotFound, ErrorSceneNotFound, "场景不存在", sceneID)
		return
	}

	h.rh.Created(c, dialogue)
}

// UpsertDialogueRequest 更新台词请求
type UpsertDialogueRequest struct {
	Text    string `json:"text"`
	Speaker string `json:"speaker"`
}

// UpsertDialogue 更新或追加台词
func (h *Handler) UpsertDialogue(c *gin.Context) {
	sceneID := c.Param("id")
	dialogueID := c.Param("dialogue_id")

	var req UpsertDialogueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.rh.BadRequest(c, "请求格式不正确", err.Error())
		return
	}

	h.SceneService.UpsertDialogue(sceneID, dialogueID, req.Text, req.Speaker)
	h.rh.Success(c, nil)
}

// DeleteDialogue 删除台词
func (h *Handler) DeleteDialogue(c *gin.Context) {
	h.SceneService.DeleteItem(models.KindDialogue, c.Param("id"), c.Param("dialogue_id"), "")
	h.rh.Success(c, nil)
}

// GetSpeakers 汇总所有说话人
func (h *Handler) GetSpeakers(c *gin.Context) {
	h.rh.Success(c, gin.H{"speakers": h.SceneService.GetAllSpeakers()})
}

// ===============================
// 图片素材
// ===============================

// AddImageRequest 新增图片素材请求
type AddImageRequest struct {
	URL        string  `json:"url" binding:"required"`
	Name       string  `json:"name"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	ZoomFactor float64 `json:"zoomFactor"`
}

// AddImage 向图层追加图片素材
func (h *Handler) AddImage(c *gin.Context) {
	sceneID := c.Param("id")
	layerID := models.LayerID(c.Param("layer_id"))

	var req AddImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.rh.Error(c, http.StatusBadRequest, ErrorItemInvalid, "图片素材缺少URL", err.Error())
		return
	}

	item, err := h.SceneService.AddImage(sceneID, layerID, models.ImageItem{
		URL:        req.URL,
		Name:       req.Name,
		X:          req.X,
		Y:          req.Y,
		ZoomFactor: req.ZoomFactor,
	})
	if err != nil {
		h.rh.Error(c, http.StatusNotFound, ErrorLayerInvalid, "添加图片素材失败", err.Error())
		return
	}

	h.rh.Created(c, item)
}

// UpdateItemRequest 更新图片素材请求
type UpdateItemRequest struct {
	URL        string  `json:"url"`
	Name       string  `json:"name"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	ZoomFactor float64 `json:"zoomFactor"`
}

// UpdateItem 更新图片素材的位置、缩放等字段
func (h *Handler) UpdateItem(c *gin.Context) {
	sceneID := c.Param("id")
	layerID := models.LayerID(c.Param("layer_id"))
	itemID := c.Param("item_id")

	var req UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.rh.BadRequest(c, "请求格式不正确", err.Error())
		return
	}

	h.SceneService.UpdateItem(sceneID, layerID, itemID, models.ImageItem{
		URL:        req.URL,
		Name:       req.Name,
		X:          req.X,
		Y:          req.Y,
		ZoomFactor: req.ZoomFactor,
	})
	h.rh.Success(c, nil)
}

// DeleteImage 删除图片素材
func (h *Handler) DeleteImage(c *gin.Context) {
	h.SceneService.DeleteItem(models.KindImage, c.Param("id"), c.Param("item_id"), models.LayerID(c.Param("layer_id")))
	h.rh.Success(c, nil)
}

// ===============================
// 条目操作（移动/复制/重排）
// ===============================

// ItemTransferRequest 跨列表移动/复制请求
type ItemTransferRequest struct {
	Kind          models.ItemKind `json:"kind" binding:"required,oneof=dialogue image"`
	SourceSceneID string          `json:"sourceSceneId" binding:"required"`
	TargetSceneID string          `json:"targetSceneId" binding:"required"`
	ItemID        string          `json:"itemId" binding:"required"`
	NewIndex      int             `json:"newIndex"`
	SourceLayerID models.LayerID  `json:"sourceLayerId"`
	TargetLayerID models.LayerID  `json:"targetLayerId"`
}

// MoveItem 跨场景/图层移动条目
func (h *Handler) MoveItem(c *gin.Context) {
	var req ItemTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.rh.Error(c, http.StatusBadRequest, ErrorItemInvalid, "请求格式不正确", err.Error())
		return
	}

	h.SceneService.MoveItem(req.Kind, req.SourceSceneID, req.TargetSceneID, req.ItemID, req.NewIndex, req.SourceLayerID, req.TargetLayerID)
	h.rh.Success(c, gin.H{"scenes": h.SceneService.Scenes()})
}

// CopyItem 复制条目到目标列表，副本获得新ID
func (h *Handler) CopyItem(c *gin.Context) {
	var req ItemTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.rh.Error(c, http.StatusBadRequest, ErrorItemInvalid, "请求格式不正确", err.Error())
		return
	}

	h.SceneService.CopyItem(req.Kind, req.SourceSceneID, req.TargetSceneID, req.ItemID, req.NewIndex, req.SourceLayerID, req.TargetLayerID)
	h.rh.Success(c, gin.H{"scenes": h.SceneService.Scenes()})
}

// ReorderItemRequest 列表内重排请求
type ReorderItemRequest struct {
	Kind     models.ItemKind `json:"kind" binding:"required,oneof=dialogue image"`
	SceneID  string          `json:"sceneId" binding:"required"`
	OldIndex int             `json:"oldIndex"`
	NewIndex int             `json:"newIndex"`
	LayerID  models.LayerID  `json:"layerId"`
}

// ReorderItem 在同一列表内重排条目
func (h *Handler) ReorderItem(c *gin.Context) {
	var req ReorderItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.rh.Error(c, http.StatusBadRequest, ErrorItemInvalid, "请求格式不正确", err.Error())
		return
	}

	h.SceneService.ReorderItem(req.Kind, req.SceneID, req.OldIndex, req.NewIndex, req.LayerID)
	h.rh.Success(c, gin.H{"scenes": h.SceneService.Scenes()})
}

// ===============================
// 拖拽手势（REST入口，WebSocket通道是等价协议）
// ===============================

// DragStartRequest 开始拖拽请求
type DragStartRequest struct {
	Address models.Address `json:"address" binding:"required"`
}

// DragStart 开始一次拖拽手势
func (h *Handler) DragStart(c *gin.Context) {
	var req DragStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.rh.BadRequest(c, "缺少起点地址", err.Error())
		return
	}

	h.DragService.Begin(req.Address)
	h.rh.Success(c, gin.H{"itemId": req.Address.ItemID})
}

// DragHoverRequest 悬停事件请求
type DragHoverRequest struct {
	Target models.Address `json:"target" binding:"required"`
}

// DragHover 处理悬停事件，返回推测性变更后的场景状态
func (h *Handler) DragHover(c *gin.Context) {
	if !h.DragService.IsDragging() {
		h.rh.Error(c, http.StatusConflict, ErrorDragNotActive, "当前没有进行中的拖拽")
		return
	}

	var req DragHoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.rh.BadRequest(c, "缺少悬停目标", err.Error())
		return
	}

	h.DragService.Hover(req.Target)
	h.rh.Success(c, gin.H{"scenes": h.SceneService.Scenes()})
}

// DragDropRequest 落下事件请求。Target为空表示落在最后一次
// 悬停的位置上；AltAction为真时走复制分支。
type DragDropRequest struct {
	Target    *models.Address `json:"target"`
	AltAction bool            `json:"altAction"`
	SectionID string          `json:"sectionId"`
}

// DragDrop 在有效目标上释放，提交手势
func (h *Handler) DragDrop(c *gin.Context) {
	if !h.DragService.IsDragging() {
		h.rh.Error(c, http.StatusConflict, ErrorDragNotActive, "当前没有进行中的拖拽")
		return
	}

	var req DragDropRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.rh.BadRequest(c, "请求格式不正确", err.Error())
		return
	}

	h.DragService.Drop(req.Target, req.AltAction)
	if req.SectionID != "" {
		h.SectionService.Drop(req.SectionID)
	}
	h.rh.Success(c, gin.H{"scenes": h.SceneService.Scenes()})
}

// DragCancel 取消手势，整体回滚
func (h *Handler) DragCancel(c *gin.Context) {
	h.DragService.Cancel()
	h.SectionService.Reset()
	h.rh.Success(c, gin.H{"scenes": h.SceneService.Scenes()})
}

// DragState 查询拖拽状态机的当前状态
func (h *Handler) DragState(c *gin.Context) {
	current, active := h.DragService.Current()
	resp := gin.H{"active": active}
	if active {
		resp["current"] = current
	}
	h.rh.Success(c, resp)
}

// ===============================
// 选项（故事图）
// ===============================

// AddChoiceRequest 新增选项请求
type AddChoiceRequest struct {
	Label       string `json:"label" binding:"required"`
	NextSceneID string `json:"nextSceneId" binding:"required"`
}

// AddChoice 在场景上追加选项
func (h *Handler) AddChoice(c *gin.Context) {
	sceneID := c.Param("id")

	var req AddChoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.rh.BadRequest(c, "请求格式不正确", err.Error())
		return
	}

	if err := h.SceneService.AddChoice(sceneID, models.Choice{
		Label:       req.Label,
		NextSceneID: req.NextSceneID,
	}); err != nil {
		h.rh.Error(c, http.StatusNotFound, ErrorSceneNotFound, "场景不存在", sceneID)
		return
	}

	h.rh.Created(c, h.GraphService.Project())
}

// DeleteChoice 删除场景上的选项
func (h *Handler) DeleteChoice(c *gin.Context) {
	h.SceneService.DeleteChoice(c.Param("id"), c.Param("choice_id"))
	h.rh.Success(c, h.GraphService.Project())
}

// ===============================
// 图视图
// ===============================

// GetGraph 返回节点图投影
func (h *Handler) GetGraph(c *gin.Context) {
	h.rh.Success(c, h.GraphService.Project())
}

// ConnectRequest 连接两个场景节点的请求
type ConnectRequest struct {
	SourceSceneID string `json:"sourceSceneId" binding:"required"`
	TargetSceneID string `json:"targetSceneId" binding:"required"`
}

// ConnectScenes 在图上连接两个场景
func (h *Handler) ConnectScenes(c *gin.Context) {
	var req ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.rh.BadRequest(c, "请求格式不正确", err.Error())
		return
	}

	if err := h.GraphService.Connect(req.SourceSceneID, req.TargetSceneID); err != nil {
		switch {
		case apperrors.IsNotFoundError(err):
			h.rh.Error(c, http.StatusNotFound, ErrorSceneNotFound, err.Error())
		case apperrors.IsConflictError(err):
			h.rh.Conflict(c, err.Error())
		default:
			h.rh.Error(c, http.StatusBadRequest, ErrorGraphConnectFailed, err.Error())
		}
		return
	}

	h.rh.Created(c, h.GraphService.Project())
}

// MoveNodeRequest 节点位置变更请求
type MoveNodeRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// MoveNode 持久化节点在图视图中的位置
func (h *Handler) MoveNode(c *gin.Context) {
	sceneID := c.Param("id")

	var req MoveNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.rh.BadRequest(c, "请求格式不正确", err.Error())
		return
	}

	h.GraphService.MoveNode(sceneID, req.X, req.Y)
	h.rh.Success(c, nil)
}

// ===============================
// 素材上传
// ===============================

// UploadFile 接收上传的图片文件并注册为素材引用
func (h *Handler) UploadFile(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		h.rh.Error(c, http.StatusBadRequest, ErrorFileInvalid, "未找到上传文件", err.Error())
		return
	}

	key, err := h.AssetService.Upload(file)
	if err != nil {
		h.rh.Error(c, http.StatusBadRequest, ErrorFileUploadFailed, "上传素材失败", err.Error())
		return
	}

	h.rh.Created(c, gin.H{"url": key}, "素材上传成功")
}

// ResolveAsset 把素材引用解析为可渲染的数据
func (h *Handler) ResolveAsset(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		h.rh.BadRequest(c, "缺少url参数")
		return
	}
	h.rh.Success(c, gin.H{"url": url, "resolved": h.AssetService.ResolveURL(url)})
}

// ===============================
// 区块展开状态
// ===============================

// ToggleSection 用户显式开合侧栏区块
func (h *Handler) ToggleSection(c *gin.Context) {
	sectionID := c.Param("section_id")
	h.SectionService.Toggle(sectionID)
	h.rh.Success(c, gin.H{"sectionId": sectionID, "open": h.SectionService.IsOpen(sectionID)})
}

// GetSection 查询区块当前是否展开
func (h *Handler) GetSection(c *gin.Context) {
	sectionID := c.Param("section_id")
	h.rh.Success(c, gin.H{"sectionId": sectionID, "open": h.SectionService.IsOpen(sectionID)})
}

// internal/services/scene_service.go
package services

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/Corphon/StoryCanvas/internal/models"
	"github.com/Corphon/StoryCanvas/internal/storage"
)

// SceneService 持有整个场景集合并提供全部变更操作。
// 它是唯一的状态所有者：API层和编辑器通道都通过依赖注入
// 拿到同一个实例，不存在散落在各处的全局状态。
//
// 所有变更操作要么完整生效，要么在寻址失败时静默不做任何
// 修改，绝不留下写了一半的状态——拖拽协议依赖这一点。
type SceneService struct {
	Storage *storage.FileStorage

	mutex  sync.Mutex
	name   string
	scenes map[string]*models.Scene
	order  []string // 场景的显示顺序（创建顺序）

	// 快照槽：单槽设计，同一时刻最多一个未决快照
	snapshot map[string]*models.Scene
}

// NewSceneService 创建场景服务
func NewSceneService(fileStorage *storage.FileStorage) *SceneService {
	return &SceneService{
		Storage: fileStorage,
		name:    "Untitled Project",
		scenes:  make(map[string]*models.Scene),
	}
}

// ---------------------------------------------------
// 场景管理
// ---------------------------------------------------

// AddScene 创建新场景并应用结构默认值（三个规范图层等）
func (s *SceneService) AddScene(name string) (*models.Scene, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("场景名称不能为空")
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	scene := &models.Scene{
		ID:   models.NewID(),
		Name: name,
	}
	models.ApplyDefaults(scene)

	s.scenes[scene.ID] = scene
	s.order = append(s.order, scene.ID)

	return scene.Clone(), nil
}

// GetScene 按ID获取场景的深拷贝
func (s *SceneService) GetScene(sceneID string) (*models.Scene, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	scene, ok := s.scenes[sceneID]
	if !ok {
		return nil, false
	}
	return scene.Clone(), true
}

// Scenes 返回整个场景集合的深拷贝，供渲染和图视图等只读消费方使用
func (s *SceneService) Scenes() map[string]*models.Scene {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return models.CloneScenes(s.scenes)
}

// SceneOrder 返回场景的显示顺序
func (s *SceneService) SceneOrder() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Name 工程名
func (s *SceneService) Name() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.name
}

// SetName 修改工程名
func (s *SceneService) SetName(name string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.name = name
}

// SetGraphPosition 保存场景节点在图视图中的显示坐标
func (s *SceneService) SetGraphPosition(sceneID string, x, y float64) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	scene, ok := s.scenes[sceneID]
	if !ok {
		return
	}
	scene.GraphX = x
	scene.GraphY = y
}

// ---------------------------------------------------
// 条目变更操作（拖拽引擎的原语）
// ---------------------------------------------------

// MoveItem 把条目从源列表移除并插入目标列表。
// 寻址失败时静默不变；源地址与目标地址完全相同时是真正的
// 空操作——悬停事件会连续触发推测性移动，不能抖动列表。
func (s *SceneService) MoveItem(kind models.ItemKind, sourceSceneID, targetSceneID, itemID string, newIndex int, sourceLayerID, targetLayerID models.LayerID) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	sourceScene, ok := s.scenes[sourceSceneID]
	if !ok {
		return
	}
	targetScene, ok := s.scenes[targetSceneID]
	if !ok {
		return
	}

	switch kind {
	case models.KindDialogue:
		itemIndex := dialogueIndex(sourceScene.Dialogue, itemID)
		if itemIndex == -1 {
			return
		}
		if sourceSceneID == targetSceneID && itemIndex == newIndex {
			return
		}
		item := sourceScene.Dialogue[itemIndex]
		sourceScene.Dialogue = append(sourceScene.Dialogue[:itemIndex], sourceScene.Dialogue[itemIndex+1:]...)
		targetScene.Dialogue = insertDialogue(targetScene.Dialogue, item, newIndex)

	case models.KindImage:
		sourceLayer := findLayer(sourceScene, sourceLayerID)
		targetLayer := findLayer(targetScene, targetLayerID)
		if sourceLayer == nil || targetLayer == nil {
			return
		}

		itemIndex := imageIndex(sourceLayer.Items, itemID)
		if itemIndex == -1 {
			return
		}
		if sourceSceneID == targetSceneID && sourceLayerID == targetLayerID && itemIndex == newIndex {
			return
		}

		item := sourceLayer.Items[itemIndex]
		sourceLayer.Items = append(sourceLayer.Items[:itemIndex], sourceLayer.Items[itemIndex+1:]...)

		// 目标列表为空时忽略请求的下标直接追加
		if len(targetLayer.Items) == 0 {
			targetLayer.Items = append(targetLayer.Items, item)
		} else {
			targetLayer.Items = insertImage(targetLayer.Items, item, newIndex)
		}
	}
}

// CopyItem 与MoveItem寻址方式相同，但克隆源条目并分配新ID，
// 源列表保持不变。
func (s *SceneService) CopyItem(kind models.ItemKind, sourceSceneID, targetSceneID, itemID string, newIndex int, sourceLayerID, targetLayerID models.LayerID) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	sourceScene, ok := s.scenes[sourceSceneID]
	if !ok {
		return
	}
	targetScene, ok := s.scenes[targetSceneID]
	if !ok {
		return
	}

	switch kind {
	case models.KindDialogue:
		itemIndex := dialogueIndex(sourceScene.Dialogue, itemID)
		if itemIndex == -1 {
			return
		}
		clone := sourceScene.Dialogue[itemIndex]
		clone.ID = models.NewID()
		targetScene.Dialogue = insertDialogue(targetScene.Dialogue, clone, newIndex)

	case models.KindImage:
		sourceLayer := findLayer(sourceScene, sourceLayerID)
		targetLayer := findLayer(targetScene, targetLayerID)
		if sourceLayer == nil || targetLayer == nil {
			return
		}

		itemIndex := imageIndex(sourceLayer.Items, itemID)
		if itemIndex == -1 {
			return
		}
		clone := sourceLayer.Items[itemIndex]
		clone.ID = models.NewID()

		if len(targetLayer.Items) == 0 {
			targetLayer.Items = append(targetLayer.Items, clone)
		} else {
			targetLayer.Items = insertImage(targetLayer.Items, clone, newIndex)
		}
	}
}

// ReorderItem 在同一个有序列表内移动条目，不跨越场景/图层边界
func (s *SceneService) ReorderItem(kind models.ItemKind, sceneID string, oldIndex, newIndex int, layerID models.LayerID) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	scene, ok := s.scenes[sceneID]
	if !ok {
		return
	}
	if oldIndex == newIndex {
		return
	}

	switch kind {
	case models.KindDialogue:
		if oldIndex < 0 || oldIndex >= len(scene.Dialogue) {
			return
		}
		item := scene.Dialogue[oldIndex]
		scene.Dialogue = append(scene.Dialogue[:oldIndex], scene.Dialogue[oldIndex+1:]...)
		scene.Dialogue = insertDialogue(scene.Dialogue, item, newIndex)

	case models.KindImage:
		layer := findLayer(scene, layerID)
		if layer == nil {
			return
		}
		if oldIndex < 0 || oldIndex >= len(layer.Items) {
			return
		}
		item := layer.Items[oldIndex]
		layer.Items = append(layer.Items[:oldIndex], layer.Items[oldIndex+1:]...)
		layer.Items = insertImage(layer.Items, item, newIndex)
	}
}

// DeleteItem 删除条目，找不到时不做任何事
func (s *SceneService) DeleteItem(kind models.ItemKind, sceneID, itemID string, layerID models.LayerID) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	scene, ok := s.scenes[sceneID]
	if !ok {
		return
	}

	switch kind {
	case models.KindDialogue:
		filtered := scene.Dialogue[:0]
		for _, d := range scene.Dialogue {
			if d.ID != itemID {
				filtered = append(filtered, d)
			}
		}
		scene.Dialogue = filtered

	case models.KindImage:
		layer := findLayer(scene, layerID)
		if layer == nil {
			return
		}
		filtered := layer.Items[:0]
		for _, item := range layer.Items {
			if item.ID != itemID {
				filtered = append(filtered, item)
			}
		}
		layer.Items = filtered
	}
}

// AddImage 向指定图层末尾追加新的图片素材。
// 这是外部素材（上传文件）落入图层的入口，URL为空时拒绝。
func (s *SceneService) AddImage(sceneID string, layerID models.LayerID, item models.ImageItem) (*models.ImageItem, error) {
	if item.URL == "" {
		return nil, fmt.Errorf("图片素材缺少URL")
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	scene, ok := s.scenes[sceneID]
	if !ok {
		return nil, fmt.Errorf("场景不存在: %s", sceneID)
	}
	layer := findLayer(scene, layerID)
	if layer == nil {
		return nil, fmt.Errorf("图层不存在: %s", layerID)
	}

	complete := models.ImageItem{
		ID:         models.NewID(),
		Name:       item.Name,
		URL:        item.URL,
		X:          item.X,
		Y:          item.Y,
		ZoomFactor: item.ZoomFactor,
	}
	if complete.ZoomFactor == 0 {
		complete.ZoomFactor = 1
	}

	layer.Items = append(layer.Items, complete)
	return &complete, nil
}

// UpdateItem 更新已有图片素材的字段（位置、缩放、名称等）。
// 条目不存在但携带URL时作为新条目追加，与编辑视口的行为一致。
func (s *SceneService) UpdateItem(sceneID string, layerID models.LayerID, itemID string, patch models.ImageItem) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	scene, ok := s.scenes[sceneID]
	if !ok {
		return
	}
	layer := findLayer(scene, layerID)
	if layer == nil {
		return
	}

	for i := range layer.Items {
		if layer.Items[i].ID == itemID {
			if patch.Name != "" {
				layer.Items[i].Name = patch.Name
			}
			if patch.URL != "" {
				layer.Items[i].URL = patch.URL
			}
			layer.Items[i].X = patch.X
			layer.Items[i].Y = patch.Y
			if patch.ZoomFactor != 0 {
				layer.Items[i].ZoomFactor = patch.ZoomFactor
			}
			return
		}
	}

	if patch.URL != "" {
		item := models.ImageItem{
			ID:         itemID,
			Name:       patch.Name,
			URL:        patch.URL,
			X:          patch.X,
			Y:          patch.Y,
			ZoomFactor: patch.ZoomFactor,
		}
		if item.ID == "" {
			item.ID = models.NewID()
		}
		if item.ZoomFactor == 0 {
			item.ZoomFactor = 1
		}
		layer.Items = append(layer.Items, item)
	}
}

// ---------------------------------------------------
// 对话操作
// ---------------------------------------------------

// AddDialogue 向场景的对话列表末尾追加一条新台词
func (s *SceneService) AddDialogue(sceneID string, dialogue models.Dialogue) (*models.Dialogue, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	scene, ok := s.scenes[sceneID]
	if !ok {
		return nil, fmt.Errorf("场景不存在: %s", sceneID)
	}

	complete := models.Dialogue{
		ID:      dialogue.ID,
		Speaker: dialogue.Speaker,
		Text:    dialogue.Text,
	}
	if complete.ID == "" {
		complete.ID = models.NewID()
	}

	scene.Dialogue = append(scene.Dialogue, complete)
	return &complete, nil
}

// UpsertDialogue 更新已有台词，不存在则追加
func (s *SceneService) UpsertDialogue(sceneID, dialogueID, text, speaker string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	scene, ok := s.scenes[sceneID]
	if !ok {
		return
	}

	for i := range scene.Dialogue {
		if scene.Dialogue[i].ID == dialogueID {
			scene.Dialogue[i].Text = text
			scene.Dialogue[i].Speaker = speaker
			return
		}
	}
	scene.Dialogue = append(scene.Dialogue, models.Dialogue{ID: dialogueID, Text: text, Speaker: speaker})
}

// UpdateDialogueText 只更新台词文本
func (s *SceneService) UpdateDialogueText(sceneID, dialogueID, text string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	scene, ok := s.scenes[sceneID]
	if !ok {
		return
	}
	for i := range scene.Dialogue {
		if scene.Dialogue[i].ID == dialogueID {
			scene.Dialogue[i].Text = text
			return
		}
	}
}

// ChangeSpeaker 只更新台词的说话人
func (s *SceneService) ChangeSpeaker(sceneID, dialogueID, speaker string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	scene, ok := s.scenes[sceneID]
	if !ok {
		return
	}
	for i := range scene.Dialogue {
		if scene.Dialogue[i].ID == dialogueID {
			scene.Dialogue[i].Speaker = speaker
			return
		}
	}
}

// GetAllSpeakers 汇总所有场景中出现过的说话人（去重、排序）
func (s *SceneService) GetAllSpeakers() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	seen := make(map[string]bool)
	var speakers []string
	for _, scene := range s.scenes {
		for _, d := range scene.Dialogue {
			if d.Speaker != "" && !seen[d.Speaker] {
				seen[d.Speaker] = true
				speakers = append(speakers, d.Speaker)
			}
		}
	}
	sort.Strings(speakers)
	return speakers
}

// ---------------------------------------------------
// 选项（故事图的边）
// ---------------------------------------------------

// AddChoice 在场景上追加一个选项
func (s *SceneService) AddChoice(sceneID string, choice models.Choice) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	scene, ok := s.scenes[sceneID]
	if !ok {
		return fmt.Errorf("场景不存在: %s", sceneID)
	}
	if choice.ID == "" {
		choice.ID = models.NewID()
	}
	scene.Choices = append(scene.Choices, choice)
	return nil
}

// DeleteChoice 删除场景上的选项
func (s *SceneService) DeleteChoice(sceneID, choiceID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	scene, ok := s.scenes[sceneID]
	if !ok {
		return
	}
	filtered := scene.Choices[:0]
	for _, c := range scene.Choices {
		if c.ID != choiceID {
			filtered = append(filtered, c)
		}
	}
	scene.Choices = filtered
}

// ---------------------------------------------------
// 快照机制（拖拽原子性的基础）
// ---------------------------------------------------

// CreateSnapshot 把整个场景集合深拷贝进快照槽。
// 已有未决快照时直接覆盖：嵌套拖拽不被支持，
// 覆盖旧快照并记录日志，绝不抛错。
func (s *SceneService) CreateSnapshot() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.snapshot != nil {
		log.Printf("警告: 覆盖未决快照，之前的回滚数据将丢失")
	}
	s.snapshot = models.CloneScenes(s.scenes)
}

// RestoreSnapshot 用快照整体替换在线集合并清空槽位。
// 没有快照时是空操作。
func (s *SceneService) RestoreSnapshot() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.snapshot == nil {
		return
	}
	s.scenes = s.snapshot
	s.snapshot = nil
}

// ClearSnapshot 丢弃快照而不应用，提交成功后调用
func (s *SceneService) ClearSnapshot() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.snapshot = nil
}

// HasSnapshot 是否存在未决快照
func (s *SceneService) HasSnapshot() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.snapshot != nil
}

// ---------------------------------------------------
// 整体替换与持久化
// ---------------------------------------------------

// ReplaceAll 用导入的工程整体替换在线状态。
// 调用方（导出服务）负责先完成结构校验。
func (s *SceneService) ReplaceAll(name string, scenes map[string]*models.Scene, order []string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, scene := range scenes {
		models.ApplyDefaults(scene)
	}

	s.name = name
	s.scenes = scenes
	s.snapshot = nil

	if len(order) > 0 {
		s.order = order
	} else {
		s.order = make([]string, 0, len(scenes))
		for id := range scenes {
			s.order = append(s.order, id)
		}
		sort.Strings(s.order)
	}
}

// Save 把当前工程写入存储
func (s *SceneService) Save(assets map[string]string) error {
	if s.Storage == nil {
		return fmt.Errorf("文件存储未初始化")
	}

	s.mutex.Lock()
	project := models.Project{
		Name:   s.name,
		Scenes: models.CloneScenes(s.scenes),
		Assets: assets,
	}
	s.mutex.Unlock()

	return s.Storage.SaveJSONFile("", "project.json", project)
}

// Load 从存储加载上次保存的工程，文件不存在时保持空工程
func (s *SceneService) Load() (*models.Project, error) {
	if s.Storage == nil {
		return nil, fmt.Errorf("文件存储未初始化")
	}
	if !s.Storage.FileExists("", "project.json") {
		return nil, nil
	}

	var project models.Project
	if err := s.Storage.LoadJSONFile("", "project.json", &project); err != nil {
		return nil, fmt.Errorf("加载工程失败: %w", err)
	}

	s.ReplaceAll(project.Name, project.Scenes, nil)
	return &project, nil
}

// ---------------------------------------------------
// 内部辅助
// ---------------------------------------------------

func findLayer(scene *models.Scene, layerID models.LayerID) *models.Layer {
	for i := range scene.Layers {
		if scene.Layers[i].ID == layerID {
			return &scene.Layers[i]
		}
	}
	return nil
}

func dialogueIndex(list []models.Dialogue, id string) int {
	for i, d := range list {
		if d.ID == id {
			return i
		}
	}
	return -1
}

func imageIndex(list []models.ImageItem, id string) int {
	for i, item := range list {
		if item.ID == id {
			return i
		}
	}
	return -1
}

// 插入位置越界时收敛到[0, len]，目标为空列表时等价于追加
func insertDialogue(list []models.Dialogue, item models.Dialogue, index int) []models.Dialogue {
	if index < 0 {
		index = 0
	}
	if index > len(list) {
		index = len(list)
	}
	list = append(list, models.Dialogue{})
	copy(list[index+1:], list[index:])
	list[index] = item
	return list
}

func insertImage(list []models.ImageItem, item models.ImageItem, index int) []models.ImageItem {
	if index < 0 {
		index = 0
	}
	if index > len(list) {
		index = len(list)
	}
	list = append(list, models.ImageItem{})
	copy(list[index+1:], list[index:])
	list[index] = item
	return list
}

// internal/services/scene_service_test.go
package services

import (
	"reflect"
	"testing"

	"github.com/Corphon/StoryCanvas/internal/models"
)

// newTestSceneService 构建一个带两个场景的测试服务。
// s1: 对话 [d1, d2]，背景图层 [i1, i2]，中景图层为空
// s2: 对话 [d3]，所有图层为空
func newTestSceneService() *SceneService {
	svc := NewSceneService(nil)
	scenes := map[string]*models.Scene{
		"s1": {
			ID:   "s1",
			Name: "场景一",
			Layers: []models.Layer{
				{ID: models.LayerBackground, Items: []models.ImageItem{
					{ID: "i1", URL: "a.png", Name: "图A"},
					{ID: "i2", URL: "b.png", Name: "图B"},
				}},
			},
			Dialogue: []models.Dialogue{
				{ID: "d1", Speaker: "hero", Text: "第一句"},
				{ID: "d2", Speaker: "narrator", Text: "第二句"},
			},
		},
		"s2": {
			ID:   "s2",
			Name: "场景二",
			Dialogue: []models.Dialogue{
				{ID: "d3", Speaker: "hero", Text: "第三句"},
			},
		},
	}
	svc.ReplaceAll("测试工程", scenes, []string{"s1", "s2"})
	return svc
}

func dialogueIDs(scene *models.Scene) []string {
	ids := make([]string, len(scene.Dialogue))
	for i, d := range scene.Dialogue {
		ids[i] = d.ID
	}
	return ids
}

func imageIDs(scene *models.Scene, layerID models.LayerID) []string {
	for _, layer := range scene.Layers {
		if layer.ID == layerID {
			ids := make([]string, len(layer.Items))
			for i, item := range layer.Items {
				ids[i] = item.ID
			}
			return ids
		}
	}
	return nil
}

// TestAddScene 测试场景创建
func TestAddScene(t *testing.T) {
	svc := NewSceneService(nil)

	scene, err := svc.AddScene("新场景")
	if err != nil {
		t.Fatalf("创建场景失败: %v", err)
	}
	if scene.ID == "" {
		t.Error("新场景应该有ID")
	}
	if len(scene.Layers) != 3 {
		t.Errorf("新场景应该有三个规范图层，实际: %d", len(scene.Layers))
	}
	if scene.Width != 2000 {
		t.Errorf("新场景宽度不正确: %d", scene.Width)
	}

	// 空名称被拒绝
	if _, err := svc.AddScene("  "); err == nil {
		t.Error("空名称应该被拒绝")
	}

	if !reflect.DeepEqual(svc.SceneOrder(), []string{scene.ID}) {
		t.Error("场景顺序应该包含新场景")
	}
}

// TestMoveDialogueAcrossScenes 测试跨场景移动台词
func TestMoveDialogueAcrossScenes(t *testing.T) {
	svc := newTestSceneService()

	// 把 d2 从 s1 移到 s2 的开头
	svc.MoveItem(models.KindDialogue, "s1", "s2", "d2", 0, "", "")

	s1, _ := svc.GetScene("s1")
	s2, _ := svc.GetScene("s2")

	if !reflect.DeepEqual(dialogueIDs(s1), []string{"d1"}) {
		t.Errorf("源场景对话不正确: %v", dialogueIDs(s1))
	}
	if !reflect.DeepEqual(dialogueIDs(s2), []string{"d2", "d3"}) {
		t.Errorf("目标场景对话不正确: %v", dialogueIDs(s2))
	}
}

// TestMoveImageAcrossLayers 测试跨图层移动图片（独占所有权）
func TestMoveImageAcrossLayers(t *testing.T) {
	svc := newTestSceneService()

	svc.MoveItem(models.KindImage, "s1", "s1", "i1", 0, models.LayerBackground, models.LayerMiddle)

	s1, _ := svc.GetScene("s1")
	if !reflect.DeepEqual(imageIDs(s1, models.LayerBackground), []string{"i2"}) {
		t.Errorf("源图层应该只剩 i2: %v", imageIDs(s1, models.LayerBackground))
	}
	if !reflect.DeepEqual(imageIDs(s1, models.LayerMiddle), []string{"i1"}) {
		t.Errorf("目标图层应该包含 i1: %v", imageIDs(s1, models.LayerMiddle))
	}

	// 整个场景集合里 i1 只出现一次
	count := 0
	for _, scene := range svc.Scenes() {
		for _, layer := range scene.Layers {
			for _, item := range layer.Items {
				if item.ID == "i1" {
					count++
				}
			}
		}
	}
	if count != 1 {
		t.Errorf("i1 应该只存在于一个图层，实际出现 %d 次", count)
	}
}

// TestMoveImageEmptyTargetAppends 测试目标图层为空时忽略下标直接追加
func TestMoveImageEmptyTargetAppends(t *testing.T) {
	svc := newTestSceneService()

	// 中景为空，请求的下标 5 被忽略
	svc.MoveItem(models.KindImage, "s1", "s1", "i2", 5, models.LayerBackground, models.LayerMiddle)

	s1, _ := svc.GetScene("s1")
	if !reflect.DeepEqual(imageIDs(s1, models.LayerMiddle), []string{"i2"}) {
		t.Errorf("空目标图层应该直接追加: %v", imageIDs(s1, models.LayerMiddle))
	}
}

// TestMoveItemMissingAddressIsNoop 测试寻址失败时静默不变
func TestMoveItemMissingAddressIsNoop(t *testing.T) {
	svc := newTestSceneService()
	before := svc.Scenes()

	svc.MoveItem(models.KindDialogue, "不存在", "s2", "d1", 0, "", "")
	svc.MoveItem(models.KindDialogue, "s1", "不存在", "d1", 0, "", "")
	svc.MoveItem(models.KindDialogue, "s1", "s2", "不存在", 0, "", "")
	svc.MoveItem(models.KindImage, "s1", "s1", "i1", 0, models.LayerBackground, "没有这个图层")

	if !reflect.DeepEqual(before, svc.Scenes()) {
		t.Error("寻址失败的移动不应该修改任何状态")
	}
}

// TestMoveItemSameAddressIsNoop 测试源与目标完全相同时是真正的空操作
func TestMoveItemSameAddressIsNoop(t *testing.T) {
	svc := newTestSceneService()
	before := svc.Scenes()

	// i1 在背景图层的下标 0，移到同位置
	svc.MoveItem(models.KindImage, "s1", "s1", "i1", 0, models.LayerBackground, models.LayerBackground)
	// d2 在对话列表的下标 1
	svc.MoveItem(models.KindDialogue, "s1", "s1", "d2", 1, "", "")

	if !reflect.DeepEqual(before, svc.Scenes()) {
		t.Error("同地址移动不应该修改任何状态")
	}
}

// TestMoveItemClampedIndex 测试过大的插入下标被收敛到列表末尾
func TestMoveItemClampedIndex(t *testing.T) {
	svc := newTestSceneService()

	svc.MoveItem(models.KindDialogue, "s1", "s2", "d1", 99, "", "")

	s2, _ := svc.GetScene("s2")
	if !reflect.DeepEqual(dialogueIDs(s2), []string{"d3", "d1"}) {
		t.Errorf("过大的下标应该追加到末尾: %v", dialogueIDs(s2))
	}
}

// TestCopyItem 测试复制条目
func TestCopyItem(t *testing.T) {
	svc := newTestSceneService()

	svc.CopyItem(models.KindDialogue, "s1", "s2", "d1", 0, "", "")

	s1, _ := svc.GetScene("s1")
	s2, _ := svc.GetScene("s2")

	// 源列表保持不变
	if !reflect.DeepEqual(dialogueIDs(s1), []string{"d1", "d2"}) {
		t.Errorf("复制不应该修改源列表: %v", dialogueIDs(s1))
	}

	// 副本在目标列表开头，内容相同但ID是新的
	if len(s2.Dialogue) != 2 {
		t.Fatalf("目标列表长度不正确: %d", len(s2.Dialogue))
	}
	clone := s2.Dialogue[0]
	if clone.ID == "d1" || clone.ID == "" {
		t.Errorf("副本应该获得新ID，实际: %q", clone.ID)
	}
	if clone.Text != "第一句" || clone.Speaker != "hero" {
		t.Error("副本应该保留源条目的内容")
	}
}

// TestCopyImage 测试跨图层复制图片
func TestCopyImage(t *testing.T) {
	svc := newTestSceneService()

	svc.CopyItem(models.KindImage, "s1", "s2", "i1", 3, models.LayerBackground, models.LayerForeground)

	s1, _ := svc.GetScene("s1")
	s2, _ := svc.GetScene("s2")

	if len(imageIDs(s1, models.LayerBackground)) != 2 {
		t.Error("复制不应该修改源图层")
	}

	fg := imageIDs(s2, models.LayerForeground)
	if len(fg) != 1 {
		t.Fatalf("目标图层应该有一个副本: %v", fg)
	}
	if fg[0] == "i1" {
		t.Error("副本应该获得新ID")
	}
}

// TestReorderItem 测试列表内重排
func TestReorderItem(t *testing.T) {
	svc := newTestSceneService()

	svc.ReorderItem(models.KindDialogue, "s1", 0, 1, "")

	s1, _ := svc.GetScene("s1")
	if !reflect.DeepEqual(dialogueIDs(s1), []string{"d2", "d1"}) {
		t.Errorf("重排结果不正确: %v", dialogueIDs(s1))
	}

	// 相同下标是空操作
	before := svc.Scenes()
	svc.ReorderItem(models.KindDialogue, "s1", 1, 1, "")
	if !reflect.DeepEqual(before, svc.Scenes()) {
		t.Error("相同下标的重排不应该修改状态")
	}

	// 越界的旧下标被忽略
	svc.ReorderItem(models.KindImage, "s1", 9, 0, models.LayerBackground)
	if !reflect.DeepEqual(before, svc.Scenes()) {
		t.Error("越界重排不应该修改状态")
	}
}

// TestDeleteItem 测试条目删除
func TestDeleteItem(t *testing.T) {
	svc := newTestSceneService()

	svc.DeleteItem(models.KindDialogue, "s1", "d1", "")
	svc.DeleteItem(models.KindImage, "s1", "i2", models.LayerBackground)

	s1, _ := svc.GetScene("s1")
	if !reflect.DeepEqual(dialogueIDs(s1), []string{"d2"}) {
		t.Errorf("台词删除结果不正确: %v", dialogueIDs(s1))
	}
	if !reflect.DeepEqual(imageIDs(s1, models.LayerBackground), []string{"i1"}) {
		t.Errorf("图片删除结果不正确: %v", imageIDs(s1, models.LayerBackground))
	}

	// 删除不存在的条目不做任何事
	before := svc.Scenes()
	svc.DeleteItem(models.KindDialogue, "s1", "没有这条", "")
	if !reflect.DeepEqual(before, svc.Scenes()) {
		t.Error("删除不存在的条目不应该修改状态")
	}
}

// TestAddImage 测试图片素材追加
func TestAddImage(t *testing.T) {
	svc := newTestSceneService()

	item, err := svc.AddImage("s1", models.LayerMiddle, models.ImageItem{URL: "c.png", Name: "图C"})
	if err != nil {
		t.Fatalf("添加图片失败: %v", err)
	}
	if item.ID == "" {
		t.Error("新图片应该有ID")
	}
	if item.ZoomFactor != 1 {
		t.Errorf("缩放系数应该默认为1，实际: %f", item.ZoomFactor)
	}

	// URL为空被拒绝
	if _, err := svc.AddImage("s1", models.LayerMiddle, models.ImageItem{}); err == nil {
		t.Error("缺少URL的图片应该被拒绝")
	}

	// 图层不存在被拒绝
	if _, err := svc.AddImage("s1", "没有这个图层", models.ImageItem{URL: "x.png"}); err == nil {
		t.Error("不存在的图层应该被拒绝")
	}
}

// TestUpsertDialogue 测试台词更新与追加
func TestUpsertDialogue(t *testing.T) {
	svc := newTestSceneService()

	svc.UpsertDialogue("s1", "d1", "改过的台词", "villain")
	svc.UpsertDialogue("s1", "d9", "新台词", "guide")

	s1, _ := svc.GetScene("s1")
	if s1.Dialogue[0].Text != "改过的台词" || s1.Dialogue[0].Speaker != "villain" {
		t.Error("已有台词应该被更新")
	}
	if !reflect.DeepEqual(dialogueIDs(s1), []string{"d1", "d2", "d9"}) {
		t.Errorf("不存在的台词应该被追加: %v", dialogueIDs(s1))
	}
}

// TestUpdateDialogueTextAndSpeaker 测试单字段台词更新
func TestUpdateDialogueTextAndSpeaker(t *testing.T) {
	svc := newTestSceneService()

	svc.UpdateDialogueText("s1", "d1", "只改文本")
	svc.ChangeSpeaker("s1", "d2", "mentor")

	s1, _ := svc.GetScene("s1")
	if s1.Dialogue[0].Text != "只改文本" || s1.Dialogue[0].Speaker != "hero" {
		t.Error("UpdateDialogueText应该只改文本")
	}
	if s1.Dialogue[1].Speaker != "mentor" || s1.Dialogue[1].Text != "第二句" {
		t.Error("ChangeSpeaker应该只改说话人")
	}

	// 不存在的台词不做任何事
	before := svc.Scenes()
	svc.UpdateDialogueText("s1", "没有", "x")
	svc.ChangeSpeaker("s1", "没有", "x")
	if !reflect.DeepEqual(before, svc.Scenes()) {
		t.Error("不存在的台词更新不应该修改状态")
	}
}

// TestUpdateItemPatch 测试图片素材的字段更新与追加语义
func TestUpdateItemPatch(t *testing.T) {
	svc := newTestSceneService()

	svc.UpdateItem("s1", models.LayerBackground, "i1", models.ImageItem{X: 42, Y: 7, ZoomFactor: 2})

	s1, _ := svc.GetScene("s1")
	item := s1.Layers[0].Items[0]
	if item.X != 42 || item.Y != 7 || item.ZoomFactor != 2 {
		t.Errorf("位置和缩放应该被更新: %+v", item)
	}
	if item.URL != "a.png" || item.Name != "图A" {
		t.Error("空字段不应该覆盖已有值")
	}

	// 不存在但带URL的条目被追加
	svc.UpdateItem("s1", models.LayerMiddle, "i9", models.ImageItem{URL: "c.png"})
	s1, _ = svc.GetScene("s1")
	if !reflect.DeepEqual(imageIDs(s1, models.LayerMiddle), []string{"i9"}) {
		t.Errorf("带URL的未知条目应该被追加: %v", imageIDs(s1, models.LayerMiddle))
	}

	// 不存在且没有URL的条目被忽略
	svc.UpdateItem("s1", models.LayerForeground, "i8", models.ImageItem{X: 1})
	s1, _ = svc.GetScene("s1")
	if len(imageIDs(s1, models.LayerForeground)) != 0 {
		t.Error("没有URL的未知条目不应该被追加")
	}
}

// TestGetAllSpeakers 测试说话人汇总
func TestGetAllSpeakers(t *testing.T) {
	svc := newTestSceneService()

	// hero 出现在两个场景里，只应该汇总一次
	speakers := svc.GetAllSpeakers()
	if !reflect.DeepEqual(speakers, []string{"hero", "narrator"}) {
		t.Errorf("说话人汇总不正确: %v", speakers)
	}
}

// TestSnapshotRoundTrip 测试快照的创建与回滚
func TestSnapshotRoundTrip(t *testing.T) {
	svc := newTestSceneService()
	before := svc.Scenes()

	svc.CreateSnapshot()
	if !svc.HasSnapshot() {
		t.Fatal("创建快照后应该存在未决快照")
	}

	// 做一串推测性修改
	svc.MoveItem(models.KindDialogue, "s1", "s2", "d1", 0, "", "")
	svc.ReorderItem(models.KindImage, "s1", 0, 1, models.LayerBackground)
	svc.DeleteItem(models.KindDialogue, "s2", "d3", "")

	// 回滚后状态与快照时刻完全一致
	svc.RestoreSnapshot()
	if !reflect.DeepEqual(before, svc.Scenes()) {
		t.Error("回滚后的状态应该与快照时刻一致")
	}
	if svc.HasSnapshot() {
		t.Error("回滚后快照槽应该被清空")
	}
}

// TestSnapshotClear 测试提交路径：丢弃快照保留修改
func TestSnapshotClear(t *testing.T) {
	svc := newTestSceneService()

	svc.CreateSnapshot()
	svc.MoveItem(models.KindDialogue, "s1", "s2", "d2", 0, "", "")
	svc.ClearSnapshot()

	if svc.HasSnapshot() {
		t.Error("提交后快照槽应该被清空")
	}

	s2, _ := svc.GetScene("s2")
	if !reflect.DeepEqual(dialogueIDs(s2), []string{"d2", "d3"}) {
		t.Errorf("提交后的修改应该保留: %v", dialogueIDs(s2))
	}
}

// TestRestoreWithoutSnapshot 测试没有快照时回滚是空操作
func TestRestoreWithoutSnapshot(t *testing.T) {
	svc := newTestSceneService()
	before := svc.Scenes()

	svc.RestoreSnapshot()
	if !reflect.DeepEqual(before, svc.Scenes()) {
		t.Error("没有快照时回滚不应该修改状态")
	}
}

// TestSnapshotOverwrite 测试重复创建快照时覆盖旧快照
func TestSnapshotOverwrite(t *testing.T) {
	svc := newTestSceneService()

	svc.CreateSnapshot()
	svc.MoveItem(models.KindDialogue, "s1", "s2", "d1", 0, "", "")
	mid := svc.Scenes()

	// 第二次创建快照覆盖第一次，回滚只能回到 mid
	svc.CreateSnapshot()
	svc.DeleteItem(models.KindDialogue, "s2", "d3", "")
	svc.RestoreSnapshot()

	if !reflect.DeepEqual(mid, svc.Scenes()) {
		t.Error("覆盖后回滚应该回到第二次快照时刻")
	}
}

// TestSnapshotIsolation 测试快照与在线状态不共享内存
func TestSnapshotIsolation(t *testing.T) {
	svc := newTestSceneService()

	svc.CreateSnapshot()
	svc.UpsertDialogue("s1", "d1", "快照之后改的", "hero")
	svc.RestoreSnapshot()

	s1, _ := svc.GetScene("s1")
	if s1.Dialogue[0].Text != "第一句" {
		t.Errorf("快照不应该跟随在线状态变化: %q", s1.Dialogue[0].Text)
	}
}

// TestReplaceAll 测试整体替换
func TestReplaceAll(t *testing.T) {
	svc := newTestSceneService()
	svc.CreateSnapshot()

	scenes := map[string]*models.Scene{
		"n1": {ID: "n1", Name: "新场景"},
	}
	svc.ReplaceAll("新工程", scenes, nil)

	if svc.Name() != "新工程" {
		t.Errorf("工程名不正确: %s", svc.Name())
	}
	if svc.HasSnapshot() {
		t.Error("整体替换应该清空快照槽")
	}

	n1, ok := svc.GetScene("n1")
	if !ok {
		t.Fatal("替换后应该能找到新场景")
	}
	if len(n1.Layers) != 3 {
		t.Error("替换时应该对每个场景应用结构默认值")
	}
	if !reflect.DeepEqual(svc.SceneOrder(), []string{"n1"}) {
		t.Errorf("场景顺序不正确: %v", svc.SceneOrder())
	}
}

// TestGetSceneReturnsCopy 测试读取接口返回深拷贝
func TestGetSceneReturnsCopy(t *testing.T) {
	svc := newTestSceneService()

	s1, _ := svc.GetScene("s1")
	s1.Dialogue[0].Text = "外部篡改"

	fresh, _ := svc.GetScene("s1")
	if fresh.Dialogue[0].Text != "第一句" {
		t.Error("修改读取结果不应该影响服务内部状态")
	}
}

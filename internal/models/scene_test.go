// internal/models/scene_test.go
package models

import (
	"reflect"
	"testing"
)

// TestApplyDefaults 测试场景结构默认值补全
func TestApplyDefaults(t *testing.T) {
	scene := &Scene{Name: "测试场景"}
	ApplyDefaults(scene)

	if scene.ID == "" {
		t.Error("缺失的场景ID应该已被补全")
	}
	if scene.Width != 2000 {
		t.Errorf("默认场景宽度不正确，期望: 2000，实际: %d", scene.Width)
	}
	if len(scene.Layers) != 3 {
		t.Fatalf("应该补全三个规范图层，实际: %d", len(scene.Layers))
	}

	// 图层必须按 bg -> mid -> fg 的顺序排列
	expected := []LayerID{LayerBackground, LayerMiddle, LayerForeground}
	for i, id := range expected {
		if scene.Layers[i].ID != id {
			t.Errorf("图层 %d 顺序不正确，期望: %s，实际: %s", i, id, scene.Layers[i].ID)
		}
	}

	// 视差系数应该有默认值
	if scene.Layers[0].ParallaxFactor != 0.5 {
		t.Errorf("背景图层视差系数不正确: %f", scene.Layers[0].ParallaxFactor)
	}
	if scene.Layers[2].ParallaxFactor != 1.2 {
		t.Errorf("前景图层视差系数不正确: %f", scene.Layers[2].ParallaxFactor)
	}

	if scene.Dialogue == nil || scene.Choices == nil {
		t.Error("对话和选项列表应该被初始化为空切片")
	}
}

// TestApplyDefaultsIdempotent 测试重复应用默认值不改变场景
func TestApplyDefaultsIdempotent(t *testing.T) {
	scene := &Scene{
		ID:   "s1",
		Name: "场景一",
		Layers: []Layer{
			{ID: LayerForeground, Items: []ImageItem{{ID: "i1", URL: "a.png"}}},
		},
		Dialogue: []Dialogue{{ID: "d1", Speaker: "narrator", Text: "你好"}},
	}

	ApplyDefaults(scene)
	first := scene.Clone()

	ApplyDefaults(scene)
	if !reflect.DeepEqual(first, scene) {
		t.Error("重复应用默认值不应该改变场景")
	}
}

// TestApplyDefaultsKeepsExistingItems 测试补全图层时保留已有条目及顺序
func TestApplyDefaultsKeepsExistingItems(t *testing.T) {
	scene := &Scene{
		ID: "s1",
		Layers: []Layer{
			{ID: LayerMiddle, Items: []ImageItem{{ID: "i1", URL: "a.png"}, {ID: "i2", URL: "b.png"}}},
		},
	}
	ApplyDefaults(scene)

	// 中景图层被排序到第二位，条目顺序不变
	if scene.Layers[1].ID != LayerMiddle {
		t.Fatalf("中景图层位置不正确: %s", scene.Layers[1].ID)
	}
	if len(scene.Layers[1].Items) != 2 || scene.Layers[1].Items[0].ID != "i1" || scene.Layers[1].Items[1].ID != "i2" {
		t.Error("补全图层不应该改变已有条目的顺序")
	}
}

// TestSceneClone 测试场景深拷贝的独立性
func TestSceneClone(t *testing.T) {
	scene := &Scene{
		ID:   "s1",
		Name: "场景一",
		Layers: []Layer{
			{ID: LayerBackground, Items: []ImageItem{{ID: "i1", URL: "a.png", X: 10}}},
		},
		Dialogue: []Dialogue{{ID: "d1", Speaker: "hero", Text: "出发"}},
		Choices:  []Choice{{ID: "c1", Label: "继续", NextSceneID: "s2"}},
	}

	clone := scene.Clone()
	if !reflect.DeepEqual(scene, clone) {
		t.Fatal("克隆结果应该与原场景相等")
	}

	// 修改克隆不应该影响原对象
	clone.Layers[0].Items[0].X = 999
	clone.Dialogue[0].Text = "改过了"
	clone.Choices[0].Label = "另一个"

	if scene.Layers[0].Items[0].X != 10 {
		t.Error("修改克隆的图片条目影响了原场景")
	}
	if scene.Dialogue[0].Text != "出发" {
		t.Error("修改克隆的台词影响了原场景")
	}
	if scene.Choices[0].Label != "继续" {
		t.Error("修改克隆的选项影响了原场景")
	}
}

// TestCloneScenes 测试场景集合的整体深拷贝
func TestCloneScenes(t *testing.T) {
	scenes := map[string]*Scene{
		"s1": {ID: "s1", Dialogue: []Dialogue{{ID: "d1", Text: "一"}}},
		"s2": {ID: "s2", Dialogue: []Dialogue{{ID: "d2", Text: "二"}}},
	}

	cloned := CloneScenes(scenes)
	cloned["s1"].Dialogue[0].Text = "变了"

	if scenes["s1"].Dialogue[0].Text != "一" {
		t.Error("修改克隆集合影响了原集合")
	}
}

// TestNewID 测试ID生成器
func TestNewID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewID()
		if len(id) != 21 {
			t.Fatalf("ID长度不正确: %q", id)
		}
		if seen[id] {
			t.Fatalf("生成了重复的ID: %s", id)
		}
		seen[id] = true
	}
}

// TestAddressSameList 测试列表同一性判断
func TestAddressSameList(t *testing.T) {
	tests := []struct {
		name string
		a, b Address
		want bool
	}{
		{
			name: "同场景同类型的对话列表",
			a:    Address{Kind: KindDialogue, SceneID: "s1", Index: 0},
			b:    Address{Kind: KindDialogue, SceneID: "s1", Index: 3},
			want: true,
		},
		{
			name: "不同场景的对话列表",
			a:    Address{Kind: KindDialogue, SceneID: "s1"},
			b:    Address{Kind: KindDialogue, SceneID: "s2"},
			want: false,
		},
		{
			name: "同场景不同图层的图片列表",
			a:    Address{Kind: KindImage, SceneID: "s1", LayerID: LayerBackground},
			b:    Address{Kind: KindImage, SceneID: "s1", LayerID: LayerForeground},
			want: false,
		},
		{
			name: "同场景同图层的图片列表",
			a:    Address{Kind: KindImage, SceneID: "s1", LayerID: LayerMiddle, Index: 1},
			b:    Address{Kind: KindImage, SceneID: "s1", LayerID: LayerMiddle, Index: 4},
			want: true,
		},
		{
			name: "类型不同",
			a:    Address{Kind: KindDialogue, SceneID: "s1"},
			b:    Address{Kind: KindImage, SceneID: "s1", LayerID: LayerBackground},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.SameList(tt.b); got != tt.want {
				t.Errorf("SameList = %v，期望 %v", got, tt.want)
			}
		})
	}
}

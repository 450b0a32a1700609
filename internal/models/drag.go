// internal/models/drag.go
package models

// ItemKind 可拖拽条目的种类
type ItemKind string

const (
	KindDialogue ItemKind = "dialogue"
	KindImage    ItemKind = "image"
)

// Address 定位一个条目的完整坐标。
// 对话条目不使用LayerID；Index为条目在有序列表中的位置。
type Address struct {
	Kind    ItemKind `json:"kind"`
	SceneID string   `json:"sceneId"`
	LayerID LayerID  `json:"layerId,omitempty"`
	ItemID  string   `json:"itemId,omitempty"`
	Index   int      `json:"index"`
}

// SameList 两个地址是否指向同一个有序列表
func (a Address) SameList(b Address) bool {
	if a.Kind != b.Kind || a.SceneID != b.SceneID {
		return false
	}
	if a.Kind == KindImage {
		return a.LayerID == b.LayerID
	}
	return true
}

// internal/models/scene.go
package models

// LayerID 图层标识，取值为固定集合（背景/中景/前景）
type LayerID string

const (
	LayerBackground LayerID = "bg"
	LayerMiddle     LayerID = "mid"
	LayerForeground LayerID = "fg"
)

// CanonicalLayers 每个场景必须包含的图层，按渲染顺序排列
var CanonicalLayers = []LayerID{LayerBackground, LayerMiddle, LayerForeground}

// 各图层的默认视差系数（仅用于渲染，拖拽引擎不关心）
var defaultParallax = map[LayerID]float64{
	LayerBackground: 0.5,
	LayerMiddle:     0.8,
	LayerForeground: 1.2,
}

// Scene 表示一个可独立寻址的场景单元
type Scene struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Width    int        `json:"width"`
	Layers   []Layer    `json:"layers"`
	Dialogue []Dialogue `json:"dialogue"`
	Choices  []Choice   `json:"choices,omitempty"`

	// 节点图视图中的显示坐标
	GraphX float64 `json:"graphX"`
	GraphY float64 `json:"graphY"`
}

// Layer 场景内带视差深度的有序图片容器
type Layer struct {
	ID             LayerID     `json:"id"`
	Name           string      `json:"name,omitempty"`
	ParallaxFactor float64     `json:"parallaxFactor,omitempty"`
	Items          []ImageItem `json:"items"`
}

// ImageItem 图层中的图片素材，任意时刻只属于一个图层
type ImageItem struct {
	ID         string  `json:"id"`
	URL        string  `json:"url"`
	Name       string  `json:"name"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	ZoomFactor float64 `json:"zoomFactor,omitempty"`
}

// Dialogue 场景台词，顺序即播放顺序
type Dialogue struct {
	ID      string `json:"id"`
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// Choice 指向另一个场景的有向边，构成故事图
type Choice struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	NextSceneID string `json:"nextSceneId"`
}

// DefaultLayer 按图层ID构造空的默认图层
func DefaultLayer(id LayerID) Layer {
	name := string(id)
	if len(name) > 0 {
		name = string(name[0]-'a'+'A') + name[1:]
	}
	return Layer{
		ID:             id,
		Name:           name,
		ParallaxFactor: defaultParallax[id],
		Items:          []ImageItem{},
	}
}

// ApplyDefaults 补全场景缺失的结构：三个规范图层、空列表、默认宽度。
// 该操作是幂等的，且不改变已有图层内条目的顺序。
func ApplyDefaults(scene *Scene) {
	if scene.ID == "" {
		scene.ID = NewID()
	}
	if scene.Name == "" {
		scene.Name = "Scene " + scene.ID
	}
	if scene.Width <= 0 {
		scene.Width = 2000
	}

	existing := make(map[LayerID]bool, len(scene.Layers))
	for _, layer := range scene.Layers {
		existing[layer.ID] = true
	}
	for _, id := range CanonicalLayers {
		if !existing[id] {
			scene.Layers = append(scene.Layers, DefaultLayer(id))
		}
	}

	// 图层按规范顺序排序（bg -> mid -> fg）
	order := make(map[LayerID]int, len(CanonicalLayers))
	for i, id := range CanonicalLayers {
		order[id] = i
	}
	for i := 1; i < len(scene.Layers); i++ {
		for j := i; j > 0 && order[scene.Layers[j].ID] < order[scene.Layers[j-1].ID]; j-- {
			scene.Layers[j], scene.Layers[j-1] = scene.Layers[j-1], scene.Layers[j]
		}
	}

	for i := range scene.Layers {
		if scene.Layers[i].Items == nil {
			scene.Layers[i].Items = []ImageItem{}
		}
		if scene.Layers[i].ParallaxFactor == 0 {
			scene.Layers[i].ParallaxFactor = defaultParallax[scene.Layers[i].ID]
		}
	}
	if scene.Dialogue == nil {
		scene.Dialogue = []Dialogue{}
	}
	if scene.Choices == nil {
		scene.Choices = []Choice{}
	}
}

// Clone 返回场景的深拷贝，与原对象不共享任何切片
func (s *Scene) Clone() *Scene {
	out := *s
	out.Layers = make([]Layer, len(s.Layers))
	for i, layer := range s.Layers {
		out.Layers[i] = layer
		out.Layers[i].Items = make([]ImageItem, len(layer.Items))
		copy(out.Layers[i].Items, layer.Items)
	}
	out.Dialogue = make([]Dialogue, len(s.Dialogue))
	copy(out.Dialogue, s.Dialogue)
	if s.Choices != nil {
		out.Choices = make([]Choice, len(s.Choices))
		copy(out.Choices, s.Choices)
	}
	return &out
}

// CloneScenes 深拷贝整个场景集合，快照机制依赖它的完整性
func CloneScenes(scenes map[string]*Scene) map[string]*Scene {
	out := make(map[string]*Scene, len(scenes))
	for id, scene := range scenes {
		out[id] = scene.Clone()
	}
	return out
}

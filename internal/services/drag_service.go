// internal/services/drag_service.go
package services

import (
	"log"
	"sync"

	"github.com/Corphon/StoryCanvas/internal/models"
)

// DragPhase 拖拽手势所处的阶段
type DragPhase int

const (
	DragIdle DragPhase = iota
	DragActive
)

// DragService 单次拖拽手势的状态机。
//
// 协议：Idle -> Begin -> Hover* -> {Drop | Cancel} -> Idle。
// Begin时创建快照；Hover阶段对数据模型做推测性变更以获得实时
// 排序反馈；Drop让最后一次悬停变更成为最终结果（按住修饰键时
// 改走复制分支）；Cancel整体回滚到拖拽前的状态。
//
// 状态机只消费携带寻址信息的规范化事件，不绑定任何具体的UI
// 事件库。每个手势恰好发生{最终移动、最终复制、完整回滚}之一，
// 回到Idle时快照槽必定为空。
type DragService struct {
	Scenes *SceneService

	mutex   sync.Mutex
	phase   DragPhase
	origin  models.Address // 拾起时的完整地址，手势期间不变
	current models.Address // 跟随悬停更新的当前地址
}

// NewDragService 创建拖拽服务
func NewDragService(sceneService *SceneService) *DragService {
	return &DragService{
		Scenes: sceneService,
	}
}

// Begin 开始一次拖拽手势：记录起点地址并冻结快照。
// 预期之外的二次Begin会覆盖前一次手势的回滚数据（单槽设计），
// 这里与快照语义保持一致，记录日志后继续。
func (d *DragService) Begin(origin models.Address) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.phase != DragIdle {
		log.Printf("警告: 上一次拖拽尚未结束，新的拖拽将覆盖其回滚数据")
	}

	d.phase = DragActive
	d.origin = origin
	d.current = origin
	d.Scenes.CreateSnapshot()
}

// Hover 处理悬停在某个条目位置上的事件，做推测性排序变更。
// 种类不匹配的目标、与当前位置相同的目标都会被忽略，
// 重复悬停同一位置不会再次触发变更。
func (d *DragService) Hover(target models.Address) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.phase != DragActive {
		return
	}
	if target.Kind != d.origin.Kind {
		// 不接受该种类的容器，协议层直接忽略
		return
	}
	if d.current.SameList(target) && d.current.Index == target.Index {
		return
	}

	if d.current.SameList(target) {
		d.Scenes.ReorderItem(d.origin.Kind, target.SceneID, d.current.Index, target.Index, target.LayerID)
	} else {
		d.Scenes.MoveItem(d.origin.Kind, d.current.SceneID, target.SceneID, d.origin.ItemID, target.Index, d.current.LayerID, target.LayerID)
	}

	d.current.SceneID = target.SceneID
	d.current.LayerID = target.LayerID
	d.current.Index = target.Index
}

// Drop 在有效目标上释放，结束手势。
//
// target 为nil时表示落在最后一次悬停的位置上：悬停阶段的推测
// 性变更即是最终结果，不再追加操作。target 指向一个容器（空
// 列表区域）时，若被拖条目不属于该容器，则向容器头部移动一次。
//
// altAction 为真走复制分支：先回滚快照撤销全部推测性变更，
// 再从原封不动的起点地址向最终目标做一次CopyItem，副本获得
// 新ID，原条目留在原位。
func (d *DragService) Drop(target *models.Address, altAction bool) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.phase != DragActive {
		return
	}

	final := d.current
	if target != nil && target.Kind == d.origin.Kind && !d.current.SameList(*target) {
		final = *target
		final.Index = 0
		if !altAction {
			d.Scenes.MoveItem(d.origin.Kind, d.current.SceneID, final.SceneID, d.origin.ItemID, final.Index, d.current.LayerID, final.LayerID)
		}
	}

	if altAction {
		d.Scenes.RestoreSnapshot()
		d.Scenes.CopyItem(d.origin.Kind, d.origin.SceneID, final.SceneID, d.origin.ItemID, final.Index, d.origin.LayerID, final.LayerID)
	}

	d.Scenes.ClearSnapshot()
	d.phase = DragIdle
}

// Cancel 在无效目标上释放或手势被中断：无条件整体回滚
func (d *DragService) Cancel() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.phase != DragActive {
		return
	}

	d.Scenes.RestoreSnapshot()
	d.phase = DragIdle
}

// IsDragging 是否有拖拽手势在进行中
func (d *DragService) IsDragging() bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.phase == DragActive
}

// IsDraggingItem 指定条目当前是否正被拖拽。
// 表驱动的查询替代了在渲染层层传递的拖拽标志。
func (d *DragService) IsDraggingItem(itemID string) bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.phase == DragActive && d.origin.ItemID == itemID
}

// Current 被拖条目此刻的地址
func (d *DragService) Current() (models.Address, bool) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.current, d.phase == DragActive
}

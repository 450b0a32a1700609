// internal/services/section_service.go
package services

import (
	"sync"
	"time"
)

// 悬停进入/离开的去抖窗口。离开窗口明显更短，
// 短暂的重新进入不会让区块闪烁关闭。
const (
	sectionEnterDebounce = 200 * time.Millisecond
	sectionLeaveDebounce = sectionEnterDebounce / 5
)

// SectionService 协调侧栏区块的展开状态。
//
// 两份互相独立的布尔表：userOpened 由用户显式点击驱动、具有
// 粘性；forcedOpen 由拖拽悬停驱动、是瞬态的。区块可见为开当且
// 仅当任一表为真。拖拽悬停进入折叠区块时强制展开它，离开且未
// 落点则恢复；成功落点会把所有被强制展开的区块提升为用户展开，
// 这样目的地和途经的区块在拖拽结束后保持打开。
//
// 区块ID是"场景ID-区块名"的复合键，如 "abc123-dialogue"、
// "abc123-layer-fg"。
type SectionService struct {
	mutex      sync.Mutex
	userOpened map[string]bool
	forcedOpen map[string]bool
	timers     map[string]*time.Timer

	// 测试中替换以绕过真实计时
	enterDelay time.Duration
	leaveDelay time.Duration
}

// NewSectionService 创建区块协调服务
func NewSectionService() *SectionService {
	return &SectionService{
		userOpened: make(map[string]bool),
		forcedOpen: make(map[string]bool),
		timers:     make(map[string]*time.Timer),
		enterDelay: sectionEnterDebounce,
		leaveDelay: sectionLeaveDebounce,
	}
}

// Toggle 用户显式开合区块（粘性状态）
func (s *SectionService) Toggle(sectionID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.userOpened[sectionID] = !s.userOpened[sectionID]
}

// IsOpen 区块当前是否可见为开
func (s *SectionService) IsOpen(sectionID string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.userOpened[sectionID] || s.forcedOpen[sectionID]
}

// HoverEnter 拖拽悬停进入区块的落点区域。
// 经过去抖后，若用户未显式打开该区块则强制展开，
// 快速掠过不会触发。
func (s *SectionService) HoverEnter(sectionID string) {
	s.schedule(sectionID, s.enterDelay, func() {
		if !s.userOpened[sectionID] {
			s.forcedOpen[sectionID] = true
		}
	})
}

// HoverLeave 拖拽悬停离开区块。
// 去抖窗口比进入更短；用户未显式打开时撤销强制展开。
func (s *SectionService) HoverLeave(sectionID string) {
	s.schedule(sectionID, s.leaveDelay, func() {
		if !s.userOpened[sectionID] {
			s.forcedOpen[sectionID] = false
		}
	})
}

// Drop 成功落入某区块：把所有当前被强制展开的区块提升为
// 用户展开并清空强制状态，落点区块本身也保持打开。
func (s *SectionService) Drop(sectionID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.cancelTimersLocked()
	for id, forced := range s.forcedOpen {
		if forced {
			s.userOpened[id] = true
		}
	}
	s.forcedOpen = make(map[string]bool)
	s.userOpened[sectionID] = true
}

// Reset 拖拽取消后清空全部瞬态状态
func (s *SectionService) Reset() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.cancelTimersLocked()
	s.forcedOpen = make(map[string]bool)
}

// SetDebounce 覆盖去抖窗口（测试用）
func (s *SectionService) SetDebounce(enter, leave time.Duration) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.enterDelay = enter
	s.leaveDelay = leave
}

// schedule 为区块安排一个去抖动作。同一区块后续的事件会取消
// 之前未触发的计时器，事件之间的相对顺序不会被打乱。
func (s *SectionService) schedule(sectionID string, delay time.Duration, fn func()) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if timer, ok := s.timers[sectionID]; ok {
		timer.Stop()
	}

	if delay <= 0 {
		fn()
		delete(s.timers, sectionID)
		return
	}

	s.timers[sectionID] = time.AfterFunc(delay, func() {
		s.mutex.Lock()
		defer s.mutex.Unlock()

		fn()
		delete(s.timers, sectionID)
	})
}

func (s *SectionService) cancelTimersLocked() {
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}

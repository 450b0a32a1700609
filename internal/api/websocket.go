// internal/api/websocket.go
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Corphon/StoryCanvas/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WebSocket 升级器配置
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 在生产环境中应该进行更严格的检查
		return true
	},
}

// EditorMessage 编辑器通道的统一消息格式
type EditorMessage struct {
	Type      string          `json:"type"`
	Address   *models.Address `json:"address,omitempty"`
	Target    *models.Address `json:"target,omitempty"`
	AltAction bool            `json:"altAction,omitempty"`
	SectionID string          `json:"sectionId,omitempty"`
}

// EditorClient 表示一个编辑器 WebSocket 客户端连接
type EditorClient struct {
	conn     *websocket.Conn
	clientID string
	send     chan []byte
	closed   int32 // 原子操作标志，0=开启，1=关闭
	lastPing time.Time
}

// editorHub 管理所有编辑器 WebSocket 连接
type editorHub struct {
	clients    map[*EditorClient]bool
	broadcast  chan []byte
	register   chan *EditorClient
	unregister chan *EditorClient
	mutex      sync.RWMutex
}

// 全局编辑器连接管理器
var wsHub = &editorHub{
	clients:    make(map[*EditorClient]bool),
	broadcast:  make(chan []byte, 256),
	register:   make(chan *EditorClient, 64),
	unregister: make(chan *EditorClient, 64),
}

func init() {
	go wsHub.run()
}

// ========================================
// EditorClient 方法
// ========================================

// Close 安全关闭客户端连接
func (client *EditorClient) Close() {
	if atomic.CompareAndSwapInt32(&client.closed, 0, 1) {
		if client.conn != nil {
			client.conn.Close()
		}
	}
}

// IsClosed 检查连接是否已关闭
func (client *EditorClient) IsClosed() bool {
	return atomic.LoadInt32(&client.closed) == 1
}

// SendMessage 安全发送消息到客户端
func (client *EditorClient) SendMessage(message map[string]interface{}) {
	if client.IsClosed() {
		return
	}

	msgBytes, err := json.Marshal(message)
	if err != nil {
		log.Printf("❌ 序列化消息失败: %v", err)
		return
	}

	select {
	case client.send <- msgBytes:
	default:
		// 队列满，记录警告但不阻塞
		log.Printf("⚠️ 客户端 %s 消息队列已满，消息被丢弃", client.clientID)
	}
}

// SendError 发送错误消息到客户端
func (client *EditorClient) SendError(errorMsg string) {
	client.SendMessage(map[string]interface{}{
		"type":      "error",
		"error":     errorMsg,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// ========================================
// editorHub 方法
// ========================================

// run 运行连接管理器主循环
func (hub *editorHub) run() {
	for {
		select {
		case client := <-hub.register:
			hub.mutex.Lock()
			hub.clients[client] = true
			hub.mutex.Unlock()
			log.Printf("✅ 编辑器客户端已连接: %s", client.clientID)

		case client := <-hub.unregister:
			hub.mutex.Lock()
			if _, exists := hub.clients[client]; exists {
				delete(hub.clients, client)
				if !client.IsClosed() {
					client.Close()
				}
			}
			hub.mutex.Unlock()
			log.Printf("🔌 编辑器客户端已断开: %s", client.clientID)

		case message := <-hub.broadcast:
			hub.mutex.RLock()
			for client := range hub.clients {
				if client.IsClosed() {
					continue
				}
				select {
				case client.send <- message:
				default:
					client.Close()
				}
			}
			hub.mutex.RUnlock()
		}
	}
}

// Broadcast 向所有编辑器客户端广播消息
func (hub *editorHub) Broadcast(message map[string]interface{}) {
	msgBytes, err := json.Marshal(message)
	if err != nil {
		log.Printf("❌ 序列化广播消息失败: %v", err)
		return
	}

	select {
	case hub.broadcast <- msgBytes:
	default:
		log.Printf("⚠️ 广播队列已满，消息被丢弃")
	}
}

// ========================================
// WebSocket 处理器
// ========================================

// EditorWebSocket 处理编辑器 WebSocket 连接
// 拖拽事件走这条通道，避免每次悬停都触发一次HTTP请求
func (h *Handler) EditorWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("❌ WebSocket 升级失败: %v", err)
		return
	}

	client := &EditorClient{
		conn:     conn,
		clientID: c.DefaultQuery("client_id", models.NewID()),
		send:     make(chan []byte, 256),
		lastPing: time.Now(),
	}

	select {
	case wsHub.register <- client:
	default:
		log.Printf("❌ 无法注册编辑器客户端，注册通道已满")
		conn.Close()
		return
	}

	go h.editorWrites(client)
	go h.editorReads(client)

	// 发送连接确认和当前工程状态
	client.SendMessage(map[string]interface{}{
		"type":      "connected",
		"clientId":  client.clientID,
		"name":      h.SceneService.Name(),
		"scenes":    h.SceneService.Scenes(),
		"order":     h.SceneService.SceneOrder(),
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// editorReads 读取并分发客户端消息
func (h *Handler) editorReads(client *EditorClient) {
	defer func() {
		select {
		case wsHub.unregister <- client:
		case <-time.After(time.Second):
			log.Printf("⚠️ 读取协程关闭时注销超时")
		}
	}()

	client.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	client.conn.SetPongHandler(func(string) error {
		client.lastPing = time.Now()
		client.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if client.IsClosed() {
			break
		}

		client.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		_, messageBytes, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("❌ WebSocket 读取错误: %v", err)
			}
			break
		}

		var message EditorMessage
		if err := json.Unmarshal(messageBytes, &message); err != nil {
			log.Printf("⚠️ JSON解析失败: %v", err)
			client.SendError("消息格式不正确")
			continue
		}

		client.lastPing = time.Now()
		h.handleEditorMessage(client, &message)
	}
}

// editorWrites 把出站消息写入连接并维持心跳
func (h *Handler) editorWrites(client *EditorClient) {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		client.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			if client.IsClosed() {
				return
			}

			client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("❌ WebSocket 写入失败: %v", err)
				return
			}

		case <-ticker.C:
			if client.IsClosed() {
				return
			}

			client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleEditorMessage 分发编辑器消息到各服务
func (h *Handler) handleEditorMessage(client *EditorClient, message *EditorMessage) {
	switch message.Type {
	case "drag_start":
		if message.Address == nil {
			client.SendError("drag_start 缺少address字段")
			return
		}
		h.DragService.Begin(*message.Address)
		client.SendMessage(map[string]interface{}{
			"type":   "drag_started",
			"itemId": message.Address.ItemID,
		})

	case "drag_hover":
		if !h.DragService.IsDragging() || message.Target == nil {
			return
		}
		h.DragService.Hover(*message.Target)
		h.broadcastScenes("drag_preview")

	case "drag_drop":
		if !h.DragService.IsDragging() {
			client.SendError("当前没有进行中的拖拽")
			return
		}
		h.DragService.Drop(message.Target, message.AltAction)
		if message.SectionID != "" {
			h.SectionService.Drop(message.SectionID)
		}
		h.broadcastScenes("drag_committed")

	case "drag_cancel":
		h.DragService.Cancel()
		h.SectionService.Reset()
		h.broadcastScenes("drag_cancelled")

	case "section_enter":
		h.SectionService.HoverEnter(message.SectionID)

	case "section_leave":
		h.SectionService.HoverLeave(message.SectionID)

	case "section_toggle":
		h.SectionService.Toggle(message.SectionID)
		client.SendMessage(map[string]interface{}{
			"type":      "section_state",
			"sectionId": message.SectionID,
			"open":      h.SectionService.IsOpen(message.SectionID),
		})

	case "ping":
		client.SendMessage(map[string]interface{}{
			"type":      "pong",
			"timestamp": time.Now().Format(time.RFC3339),
		})

	default:
		log.Printf("⚠️ 未知的消息类型: %s", message.Type)
	}
}

// broadcastScenes 把最新的场景状态广播给全部客户端
func (h *Handler) broadcastScenes(eventType string) {
	wsHub.Broadcast(map[string]interface{}{
		"type":      eventType,
		"scenes":    h.SceneService.Scenes(),
		"order":     h.SceneService.SceneOrder(),
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

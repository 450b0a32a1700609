// internal/api/router.go
package api

import (
	"fmt"
	"net/http"

	"github.com/Corphon/StoryCanvas/internal/config"
	"github.com/Corphon/StoryCanvas/internal/di"
	"github.com/Corphon/StoryCanvas/internal/services"
	"github.com/gin-gonic/gin"
)

// SetupRouter 配置HTTP路由
func SetupRouter() (*gin.Engine, error) {
	cfg := config.GetCurrentConfig()

	// 获取依赖注入容器
	container := di.GetContainer()

	// ✅ 只从容器获取服务，不再创建新实例
	sceneService, ok := container.Get("scene").(*services.SceneService)
	if !ok {
		return nil, fmt.Errorf("场景服务未正确初始化")
	}

	dragService, ok := container.Get("drag").(*services.DragService)
	if !ok {
		return nil, fmt.Errorf("拖拽服务未正确初始化")
	}

	sectionService, ok := container.Get("section").(*services.SectionService)
	if !ok {
		return nil, fmt.Errorf("区块服务未正确初始化")
	}

	exportService, ok := container.Get("export").(*services.ExportService)
	if !ok {
		return nil, fmt.Errorf("导出服务未正确初始化")
	}

	assetService, ok := container.Get("asset").(*services.AssetService)
	if !ok {
		return nil, fmt.Errorf("素材服务未正确初始化")
	}

	graphService, ok := container.Get("graph").(*services.GraphService)
	if !ok {
		return nil, fmt.Errorf("图服务未正确初始化")
	}

	// ✅ 创建API处理器 - 只传递从容器获取的服务
	handler := NewHandler(
		sceneService,
		dragService,
		sectionService,
		exportService,
		assetService,
		graphService,
	)

	// 创建路由
	r := gin.Default()

	// 启用CORS
	r.Use(corsMiddleware())
	r.Use(requestIDMiddleware())

	// 静态文件服务（编辑器前端）
	r.Static("/static", cfg.StaticDir)
	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/static/index.html")
	})

	// WebSocket 支持
	r.GET("/ws/editor", handler.EditorWebSocket)

	// ===============================
	// API路由组
	// ===============================
	api := r.Group("/api")
	{
		// ===============================
		// 工程相关路由
		// ===============================
		projectGroup := api.Group("/project")
		{
			projectGroup.GET("", handler.GetProject)
			projectGroup.PUT("/name", handler.RenameProject)
			projectGroup.GET("/export", handler.ExportProject)
			projectGroup.POST("/import", handler.ImportProject)
			projectGroup.POST("/save", handler.SaveProject)
		}

		// ===============================
		// 场景相关路由
		// ===============================
		scenesGroup := api.Group("/scenes")
		{
			scenesGroup.GET("", handler.GetScenes)
			scenesGroup.POST("", handler.CreateScene)
			scenesGroup.GET("/:id", handler.GetScene)

			// 台词路由
			dialogueGroup := scenesGroup.Group("/:id/dialogue")
			{
				dialogueGroup.POST("", handler.AddDialogue)
				dialogueGroup.PUT("/:dialogue_id", handler.UpsertDialogue)
				dialogueGroup.DELETE("/:dialogue_id", handler.DeleteDialogue)
			}

			// 图层素材路由
			layerGroup := scenesGroup.Group("/:id/layers/:layer_id/items")
			{
				layerGroup.POST("", handler.AddImage)
				layerGroup.PUT("/:item_id", handler.UpdateItem)
				layerGroup.DELETE("/:item_id", handler.DeleteImage)
			}

			// 选项路由
			choicesGroup := scenesGroup.Group("/:id/choices")
			{
				choicesGroup.POST("", handler.AddChoice)
				choicesGroup.DELETE("/:choice_id", handler.DeleteChoice)
			}
		}

		// ===============================
		// 条目移动/复制/重排
		// ===============================
		itemsGroup := api.Group("/items")
		{
			itemsGroup.POST("/move", handler.MoveItem)
			itemsGroup.POST("/copy", handler.CopyItem)
			itemsGroup.POST("/reorder", handler.ReorderItem)
		}

		// ===============================
		// 拖拽手势路由
		// ===============================
		dragGroup := api.Group("/drag")
		{
			dragGroup.GET("/state", handler.DragState)
			dragGroup.POST("/start", handler.DragStart)
			dragGroup.POST("/hover", handler.DragHover)
			dragGroup.POST("/drop", handler.DragDrop)
			dragGroup.POST("/cancel", handler.DragCancel)
		}

		// ===============================
		// 图视图路由
		// ===============================
		graphGroup := api.Group("/graph")
		{
			graphGroup.GET("", handler.GetGraph)
			graphGroup.POST("/connect", handler.ConnectScenes)
			graphGroup.PUT("/nodes/:id/position", handler.MoveNode)
		}

		// ===============================
		// 侧栏区块状态
		// ===============================
		sectionsGroup := api.Group("/sections")
		{
			sectionsGroup.GET("/:section_id", handler.GetSection)
			sectionsGroup.POST("/:section_id/toggle", handler.ToggleSection)
		}

		// ===============================
		// 说话人汇总
		// ===============================
		api.GET("/speakers", handler.GetSpeakers)

		// ===============================
		// 素材上传与解析
		// ===============================
		api.POST("/upload", handler.UploadFile)
		api.GET("/assets/resolve", handler.ResolveAsset)
	}

	return r, nil
}

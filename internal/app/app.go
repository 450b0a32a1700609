// internal/app/app.go
package app

import (
	"fmt"
	"log"
	"time"

	"github.com/Corphon/StoryCanvas/internal/config"
	"github.com/Corphon/StoryCanvas/internal/di"
	"github.com/Corphon/StoryCanvas/internal/services"
	"github.com/Corphon/StoryCanvas/internal/storage"
)

// InitServices 按依赖顺序初始化所有服务并注册到DI容器。
// 存储在最前，图和导出服务依赖场景服务，放在最后。
func InitServices() error {
	container := di.GetContainer()
	cfg := config.GetCurrentConfig()

	// 1. 文件存储
	fileStorage, err := storage.NewFileStorage(cfg.ProjectDir)
	if err != nil {
		return fmt.Errorf("初始化文件存储失败: %w", err)
	}
	container.Register("storage", fileStorage)

	// 2. 素材服务
	assetService := services.NewAssetService()
	container.Register("asset", assetService)

	// 3. 场景服务（核心状态持有者）
	sceneService := services.NewSceneService(fileStorage)
	container.Register("scene", sceneService)

	// 尝试恢复已保存的工程，找不到时从空工程开始
	if project, err := sceneService.Load(); err != nil {
		log.Printf("警告: 加载已保存工程失败，使用空工程: %v", err)
	} else if project != nil {
		assetService.LoadFromProject(project)
		log.Printf("✅ 已恢复工程: %s（%d 个场景）", project.Name, len(project.Scenes))
	}

	// 4. 拖拽服务（依赖场景服务的快照机制）
	dragService := services.NewDragService(sceneService)
	container.Register("drag", dragService)

	// 5. 区块展开状态服务
	sectionService := services.NewSectionService()
	container.Register("section", sectionService)

	// 6. 导出/导入服务
	exportService := services.NewExportService(sceneService, assetService)
	container.Register("export", exportService)

	// 7. 图视图服务
	graphService := services.NewGraphService(sceneService)
	container.Register("graph", graphService)

	return nil
}

// StartAutosave 启动周期性自动保存。
// 返回的函数用来停止自动保存协程。
func StartAutosave() func() {
	cfg := config.GetCurrentConfig()
	interval := cfg.AutosaveInterval()
	if interval <= 0 {
		log.Println("⚠️ 自动保存已禁用")
		return func() {}
	}

	container := di.GetContainer()
	sceneService, ok := container.Get("scene").(*services.SceneService)
	if !ok {
		log.Println("警告: 场景服务未注册，自动保存不可用")
		return func() {}
	}
	assetService, _ := container.Get("asset").(*services.AssetService)

	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				var assets map[string]string
				if assetService != nil {
					assets = assetService.StoredAssets()
				}
				if err := sceneService.Save(assets); err != nil {
					log.Printf("警告: 自动保存失败: %v", err)
				}
			case <-stop:
				return
			}
		}
	}()

	log.Printf("✅ 自动保存已启动，间隔 %s", interval)
	return func() { close(stop) }
}

// Cleanup 退出前的收尾：最后保存一次工程
func Cleanup() {
	container := di.GetContainer()
	sceneService, ok := container.Get("scene").(*services.SceneService)
	if !ok {
		return
	}

	var assets map[string]string
	if assetService, ok := container.Get("asset").(*services.AssetService); ok {
		assets = assetService.StoredAssets()
	}

	if err := sceneService.Save(assets); err != nil {
		log.Printf("警告: 退出时保存工程失败: %v", err)
	} else {
		log.Println("✅ 工程已保存")
	}
}

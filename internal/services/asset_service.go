// internal/services/asset_service.go
package services

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"

	"github.com/Corphon/StoryCanvas/internal/models"
)

// AssetService 管理上传素材的不透明引用。
// 文件在边界处被转换成data URL字符串，核心数据模型只持有
// 这个引用；导出时素材映射随工程一起序列化。
type AssetService struct {
	mutex  sync.RWMutex
	assets map[string]string // 名称/原始URL -> data URL
}

// NewAssetService 创建素材服务
func NewAssetService() *AssetService {
	return &AssetService{
		assets: make(map[string]string),
	}
}

// Upload 读取上传的文件并注册为data URL，返回可放入
// ImageItem.URL 的引用键（文件名）。
func (a *AssetService) Upload(file *multipart.FileHeader) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("打开上传文件失败: %w", err)
	}
	defer src.Close()

	content, err := io.ReadAll(src)
	if err != nil {
		return "", fmt.Errorf("读取上传文件失败: %w", err)
	}

	mimeType := file.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(content)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return "", fmt.Errorf("不支持的素材类型: %s", mimeType)
	}

	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(content)

	a.mutex.Lock()
	a.assets[file.Filename] = dataURL
	a.mutex.Unlock()

	return file.Filename, nil
}

// AddAsset 直接注册一个引用映射
func (a *AssetService) AddAsset(key, dataURL string) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.assets[key] = dataURL
}

// ResolveURL 把引用解析为真实数据，未注册的引用原样返回
// （可能是普通网络路径）。
func (a *AssetService) ResolveURL(url string) string {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	if resolved, ok := a.assets[url]; ok {
		return resolved
	}
	return url
}

// StoredAssets 返回素材映射的副本，供导出使用
func (a *AssetService) StoredAssets() map[string]string {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	out := make(map[string]string, len(a.assets))
	for k, v := range a.assets {
		out[k] = v
	}
	return out
}

// LoadFromProject 导入工程时吸收其素材映射，并扫描场景里
// 内联的data URL以保证引用可解析。
func (a *AssetService) LoadFromProject(project *models.Project) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.assets = make(map[string]string, len(project.Assets))
	for k, v := range project.Assets {
		a.assets[k] = v
	}

	for _, scene := range project.Scenes {
		for _, layer := range scene.Layers {
			for _, item := range layer.Items {
				if strings.HasPrefix(item.URL, "data:") {
					a.assets[item.URL] = item.URL
				}
			}
		}
	}
}

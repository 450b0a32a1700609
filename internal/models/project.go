// internal/models/project.go
package models

import (
	"time"
)

// Project 整个工程：场景集合、工程名以及素材映射。
// 导入/导出的项目文件就是它的JSON序列化结果。
type Project struct {
	Name   string            `json:"name"`
	Scenes map[string]*Scene `json:"scenes"`
	Assets map[string]string `json:"assets"`
}

// ProjectDocument 导入文档的绑定结构。
// 通过binding标签在反序列化时做整体校验，校验失败的文档
// 在触碰到任何在线状态之前被整个拒绝。
type ProjectDocument struct {
	Name   string                   `json:"name" binding:"required"`
	Scenes map[string]SceneDocument `json:"scenes" binding:"required"`
	Assets map[string]string        `json:"assets"`
}

// SceneDocument 导入文档中的场景结构
type SceneDocument struct {
	ID       string     `json:"id" binding:"required"`
	Name     string     `json:"name"`
	Width    int        `json:"width"`
	Layers   []Layer    `json:"layers"`
	Dialogue []Dialogue `json:"dialogue"`
	Choices  []Choice   `json:"choices"`
	GraphX   float64    `json:"graphX"`
	GraphY   float64    `json:"graphY"`
}

// ExportResult 导出结果
type ExportResult struct {
	ProjectName string    `json:"project_name"`
	Format      string    `json:"format"`
	Content     string    `json:"content"`
	GeneratedAt time.Time `json:"generated_at"`
	FilePath    string    `json:"file_path"` // 导出文件路径
	FileSize    int64     `json:"file_size"` // 文件大小
	SceneCount  int       `json:"scene_count"`
}

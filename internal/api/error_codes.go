// internal/api/error_codes.go
package api

// API错误代码常量
const (
	// 通用错误
	ErrorBadRequest    = "BAD_REQUEST"
	ErrorNotFound      = "NOT_FOUND"
	ErrorInternalError = "INTERNAL_ERROR"
	ErrorConflict      = "CONFLICT"

	// 场景相关错误
	ErrorSceneNotFound     = "SCENE_NOT_FOUND"
	ErrorSceneCreateFailed = "SCENE_CREATE_FAILED"
	ErrorSceneInvalid      = "SCENE_INVALID"

	// 条目相关错误
	ErrorItemNotFound = "ITEM_NOT_FOUND"
	ErrorItemInvalid  = "ITEM_INVALID"
	ErrorLayerInvalid = "LAYER_INVALID"

	// 拖拽相关错误
	ErrorDragNotActive   = "DRAG_NOT_ACTIVE"
	ErrorDragInvalidKind = "DRAG_INVALID_KIND"

	// 文件相关错误
	ErrorFileUploadFailed = "FILE_UPLOAD_FAILED"
	ErrorFileInvalid      = "FILE_INVALID"

	// 工程文件相关错误
	ErrorImportInvalid = "IMPORT_INVALID"
	ErrorExportFailed  = "EXPORT_FAILED"

	// 图视图相关错误
	ErrorGraphConnectFailed = "GRAPH_CONNECT_FAILED"
)

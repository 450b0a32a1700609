// internal/storage/file_storage_test.go
package storage

import (
	"path/filepath"
	"reflect"
	"sync"
	"testing"
)

// TestSaveLoadJSONFile 测试JSON文件的保存与读取
func TestSaveLoadJSONFile(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatalf("创建文件存储失败: %v", err)
	}

	type doc struct {
		Name  string   `json:"name"`
		Order []string `json:"order"`
	}
	saved := doc{Name: "测试工程", Order: []string{"s1", "s2"}}

	if err := fs.SaveJSONFile("", "project.json", saved); err != nil {
		t.Fatalf("保存JSON文件失败: %v", err)
	}
	if !fs.FileExists("", "project.json") {
		t.Fatal("保存后文件应该存在")
	}

	var loaded doc
	if err := fs.LoadJSONFile("", "project.json", &loaded); err != nil {
		t.Fatalf("读取JSON文件失败: %v", err)
	}
	if !reflect.DeepEqual(saved, loaded) {
		t.Errorf("往返结果不一致: %+v != %+v", saved, loaded)
	}
}

// TestSaveCreatesNestedDirs 测试保存时自动创建子目录
func TestSaveCreatesNestedDirs(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatalf("创建文件存储失败: %v", err)
	}

	nested := filepath.Join("exports", "2026")
	if err := fs.SaveTextFile(nested, "out.json", []byte("{}")); err != nil {
		t.Fatalf("保存到嵌套目录失败: %v", err)
	}
	if !fs.FileExists(nested, "out.json") {
		t.Error("嵌套目录中的文件应该存在")
	}
}

// TestDeleteFile 测试文件删除
func TestDeleteFile(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatalf("创建文件存储失败: %v", err)
	}

	if err := fs.SaveTextFile("", "tmp.txt", []byte("内容")); err != nil {
		t.Fatalf("保存文件失败: %v", err)
	}
	if err := fs.DeleteFile("", "tmp.txt"); err != nil {
		t.Fatalf("删除文件失败: %v", err)
	}
	if fs.FileExists("", "tmp.txt") {
		t.Error("删除后文件不应该存在")
	}

	// 删除不存在的文件返回错误
	if err := fs.DeleteFile("", "tmp.txt"); err == nil {
		t.Error("删除不存在的文件应该返回错误")
	}
}

// TestConcurrentSaves 测试并发写同一个文件不损坏内容
func TestConcurrentSaves(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatalf("创建文件存储失败: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			fs.SaveJSONFile("", "project.json", map[string]int{"n": n})
		}(i)
	}
	wg.Wait()

	// 最终文件必须是某一次完整写入的结果
	var out map[string]int
	if err := fs.LoadJSONFile("", "project.json", &out); err != nil {
		t.Fatalf("并发写入后文件应该仍然可解析: %v", err)
	}
	if _, ok := out["n"]; !ok {
		t.Error("文件内容不完整")
	}
}

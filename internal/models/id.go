// internal/models/id.go
package models

import (
	"crypto/rand"
	"fmt"
	"time"
)

// nanoid 风格的URL安全字符表
const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"

const idLength = 21

// NewID 生成全局唯一的标识符。ID一经生成不会复用，
// 复制操作必须通过它为副本分配新身份。
func NewID() string {
	buf := make([]byte, idLength)
	if _, err := rand.Read(buf); err != nil {
		// 随机源不可用时退化为时间戳ID
		return fmt.Sprintf("id_%d", time.Now().UnixNano())
	}
	for i, b := range buf {
		buf[i] = idAlphabet[int(b)&63]
	}
	return string(buf)
}

// Package session 管理会话状态：每个会话记录当前活跃的集合
// 以及本会话内上传过的文件、粘贴内容与 URL。
package session

import (
	"context"
	"fmt"
	"time"
)

// FileRef 记录会话中上传过的文件元信息，不保存文件内容。
type FileRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Size int64  `json:"size"`
	Type string `json:"type"`
}

// ContentRef 记录会话中粘贴过的内容。
type ContentRef struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// URLRef 记录会话中提交过的 URL。
type URLRef struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// State 表示一个会话的完整状态。
type State struct {
	// CollectionName 当前活跃的集合名称。
	CollectionName string `json:"collectionName"`
	// Files 本会话上传过的文件。
	Files []FileRef `json:"files"`
	// Contents 本会话粘贴过的内容。
	Contents []ContentRef `json:"contents"`
	// URLs 本会话提交过的 URL。
	URLs []URLRef `json:"urls"`
	// Plan 客户端选择的订阅方案，服务端只负责透传与保存。
	Plan string `json:"plan"`
	// UpdatedAt 最近一次更新时间。
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewState 创建空会话状态。
func NewState() *State {
	return &State{
		Files:    []FileRef{},
		Contents: []ContentRef{},
		URLs:     []URLRef{},
	}
}

// SetCollection 设置当前活跃集合。
func (s *State) SetCollection(name string) {
	s.CollectionName = name
}

// AddFile 追加一条文件记录。
func (s *State) AddFile(name string, size int64, fileType string) {
	s.Files = append(s.Files, FileRef{
		ID:   time.Now().UnixMilli(),
		Name: name,
		Size: size,
		Type: fileType,
	})
}

// AddContent 追加一条粘贴内容记录，名称按序号生成。
func (s *State) AddContent(value string) {
	s.Contents = append(s.Contents, ContentRef{
		ID:    time.Now().UnixMilli(),
		Name:  fmt.Sprintf("content-%d", len(s.Contents)+1),
		Value: value,
	})
}

// AddURL 追加一条 URL 记录，名称按序号生成。
func (s *State) AddURL(value string) {
	s.URLs = append(s.URLs, URLRef{
		ID:    time.Now().UnixMilli(),
		Name:  fmt.Sprintf("url-%d", len(s.URLs)+1),
		Value: value,
	})
}

// Store 定义会话状态的持久化接口。
type Store interface {
	// Load 读取会话状态，会话不存在时返回空状态。
	Load(ctx context.Context, sessionID string) (*State, error)

	// Save 保存会话状态并刷新过期时间。
	Save(ctx context.Context, sessionID string, state *State) error

	// Delete 删除会话状态。
	Delete(ctx context.Context, sessionID string) error

	// Close 关闭底层连接。
	Close() error
}

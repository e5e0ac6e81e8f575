package view

import (
	"time"

	"github.com/google/uuid"
	"github.com/jjalkak/go-meme-service/internal/search"
	"github.com/patrickmn/go-cache"
)

// Store 内存中的视图，按最后访问时间过期
type Store struct {
	c *cache.Cache
}

// NewStore 创建存储，过期时关闭视图里的编辑器
func NewStore(ttl time.Duration) *Store {
	c := cache.New(ttl, ttl/2)
	c.OnEvicted(func(_ string, v interface{}) {
		if view, ok := v.(*View); ok {
			view.CloseEditor()
		}
	})
	return &Store{c: c}
}

// Create 新建视图
func (s *Store) Create() *View {
	v := New(uuid.NewString(), search.RandomPlaceholder())
	s.c.SetDefault(v.id, v)
	return v
}

// Get 读取并续期
func (s *Store) Get(id string) (*View, error) {
	x, ok := s.c.Get(id)
	if !ok {
		return nil, ErrViewNotFound
	}
	v := x.(*View)
	s.c.SetDefault(id, v)
	return v, nil
}

// Delete 删除视图
func (s *Store) Delete(id string) {
	s.c.Delete(id)
}

// Count 当前视图数
func (s *Store) Count() int {
	return s.c.ItemCount()
}

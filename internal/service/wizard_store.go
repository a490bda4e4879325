package service

import (
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru"

	"study-tracker/backend/internal/dto"
	"study-tracker/backend/pkg/metrics"
)

// 向导步骤
const (
	StepUpload     = 1
	StepMapColumns = 2
	StepMapTerms   = 3
	StepPreview    = 4
	StepSummary    = 5
)

// ImportSession 单次向导运行的内存状态，不落库
// mu 串行化同一会话上的操作；closed 可在持锁操作进行中被 Close 置位
type ImportSession struct {
	mu     sync.Mutex
	closed atomic.Bool

	ID         string
	OwnerID    string
	ImportType ImportType

	RawText  []byte
	FileName string
	Headers  []string
	table    *Table

	Mapping ColumnMapping

	SelectedTermID *string
	NewTermDraft   *dto.CreateTermRequest
	TermOverlaps   []dto.TermResponse
	termStepUsed   bool // 本次从步骤 2 前进时进入了步骤 3

	CreateMissingModules bool

	Preview      *PreviewResult
	IngestResult *IngestResult
	CurrentStep  int
	Complete     bool
}

// resetFile 清空文件相关状态（上传失败或重新上传时）
func (s *ImportSession) resetFile() {
	s.RawText = nil
	s.FileName = ""
	s.Headers = nil
	s.table = nil
	s.Mapping = nil
	s.Preview = nil
}

// SessionStore 有界 LRU 会话存储；超出容量时淘汰最久未使用的会话
type SessionStore struct {
	cache *lru.Cache
}

// NewSessionStore 创建会话存储
func NewSessionStore(capacity int) (*SessionStore, error) {
	cache, err := lru.NewWithEvict(capacity, func(_ interface{}, value interface{}) {
		if s, ok := value.(*ImportSession); ok {
			s.closed.Store(true)
		}
	})
	if err != nil {
		return nil, err
	}
	return &SessionStore{cache: cache}, nil
}

// Put 保存会话
func (st *SessionStore) Put(s *ImportSession) {
	st.cache.Add(s.ID, s)
	metrics.SetWizardSessions(st.cache.Len())
}

// Get 读取会话并刷新其最近使用时间
func (st *SessionStore) Get(id string) (*ImportSession, bool) {
	v, ok := st.cache.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*ImportSession), true
}

// Remove 移除会话；被移除的会话标记为已关闭
func (st *SessionStore) Remove(id string) {
	st.cache.Remove(id)
	metrics.SetWizardSessions(st.cache.Len())
}

// Len 当前会话数
func (st *SessionStore) Len() int {
	return st.cache.Len()
}

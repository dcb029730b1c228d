package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Djomab/activity-weekly-report/internal/model"
	"github.com/Djomab/activity-weekly-report/pkg/redis"
)

// ErrRejectWizardNotFound 向导不存在、已过期、已被确认，或不属于当前用户
var ErrRejectWizardNotFound = errors.New("驳回向导不存在或已过期")

// RejectWizardStore 驳回向导临时存储
// 向导按打开人隔离：Get/Take 只能取到 openedBy 本人打开的向导
type RejectWizardStore interface {
	Save(ctx context.Context, w *model.RejectWizard, ttl time.Duration) error
	Get(ctx context.Context, openedBy, id string) (*model.RejectWizard, error)
	// Take 原子地取出并删除，同一向导只能被取出一次
	Take(ctx context.Context, openedBy, id string) (*model.RejectWizard, error)
}

// NewRejectWizardStore rdb 为 nil 时退化为进程内存储（单实例部署）
func NewRejectWizardStore(rdb *redis.Client) RejectWizardStore {
	if rdb == nil {
		return newMemoryWizardStore()
	}
	return &redisWizardStore{rdb: rdb}
}

// ── Redis 实现 ──

const wizardKeyPrefix = "report:reject_wizard:"

func wizardKey(openedBy, id string) string {
	return wizardKeyPrefix + openedBy + ":" + id
}

type redisWizardStore struct {
	rdb *redis.Client
}

func (s *redisWizardStore) Save(ctx context.Context, w *model.RejectWizard, ttl time.Duration) error {
	return s.rdb.SetJSON(ctx, wizardKey(w.OpenedBy, w.WizardID), w, ttl)
}

func (s *redisWizardStore) Get(ctx context.Context, openedBy, id string) (*model.RejectWizard, error) {
	var w model.RejectWizard
	if err := s.rdb.GetJSON(ctx, wizardKey(openedBy, id), &w); err != nil {
		return nil, wizardErr(err)
	}
	return &w, nil
}

func (s *redisWizardStore) Take(ctx context.Context, openedBy, id string) (*model.RejectWizard, error) {
	var w model.RejectWizard
	if err := s.rdb.TakeJSON(ctx, wizardKey(openedBy, id), &w); err != nil {
		return nil, wizardErr(err)
	}
	return &w, nil
}

func wizardErr(err error) error {
	if errors.Is(err, redis.ErrKeyNotFound) {
		return ErrRejectWizardNotFound
	}
	return err
}

// ── 进程内实现 ──

type memoryWizardEntry struct {
	wizard    model.RejectWizard
	expiresAt time.Time
}

type memoryWizardStore struct {
	mu      sync.Mutex
	entries map[string]memoryWizardEntry
	now     func() time.Time
}

func newMemoryWizardStore() *memoryWizardStore {
	return &memoryWizardStore{
		entries: make(map[string]memoryWizardEntry),
		now:     time.Now,
	}
}

func (s *memoryWizardStore) Save(_ context.Context, w *model.RejectWizard, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	// 顺带清理过期条目
	for id, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, id)
		}
	}
	s.entries[w.WizardID] = memoryWizardEntry{wizard: *w, expiresAt: now.Add(ttl)}
	return nil
}

func (s *memoryWizardStore) Get(_ context.Context, openedBy, id string) (*model.RejectWizard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(openedBy, id)
}

func (s *memoryWizardStore) Take(_ context.Context, openedBy, id string) (*model.RejectWizard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.lookup(openedBy, id)
	if err != nil {
		return nil, err
	}
	delete(s.entries, id)
	return w, nil
}

// lookup 调用方持有 mu
func (s *memoryWizardStore) lookup(openedBy, id string) (*model.RejectWizard, error) {
	e, ok := s.entries[id]
	if ok && s.now().After(e.expiresAt) {
		delete(s.entries, id)
		ok = false
	}
	if !ok || e.wizard.OpenedBy != openedBy {
		return nil, ErrRejectWizardNotFound
	}
	w := e.wizard
	return &w, nil
}

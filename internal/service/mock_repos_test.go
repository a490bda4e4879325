package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"study-tracker/backend/config"
	"study-tracker/backend/internal/model"
	"study-tracker/backend/internal/repository"
)

const testOwner = "owner-001"

// ── Mock TermRepository ──

type mockTermRepo struct {
	terms map[string]*model.Term
}

func newMockTermRepo() *mockTermRepo {
	return &mockTermRepo{terms: make(map[string]*model.Term)}
}

func (m *mockTermRepo) Create(_ context.Context, term *model.Term) error {
	if term.TermID == "" {
		term.TermID = "term-" + term.Title
	}
	term.CreatedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m.terms[term.TermID] = term
	return nil
}

func (m *mockTermRepo) GetByID(_ context.Context, ownerID, id string) (*model.Term, error) {
	if t, ok := m.terms[id]; ok && t.OwnerID == ownerID {
		return t, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTermRepo) ListByOwner(_ context.Context, ownerID string) ([]model.Term, error) {
	var result []model.Term
	for _, t := range m.terms {
		if t.OwnerID == ownerID {
			result = append(result, *t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartDate.After(result[j].StartDate) })
	return result, nil
}

func (m *mockTermRepo) seed(ownerID, id, title, start, end string) *model.Term {
	s, _ := time.Parse("2006-01-02", start)
	e, _ := time.Parse("2006-01-02", end)
	t := &model.Term{TermID: id, OwnerID: ownerID, Title: title, StartDate: s, EndDate: e}
	m.terms[id] = t
	return t
}

// ── Mock ModuleRepository ──

type mockModuleRepo struct {
	modules         map[string]*model.Module // key: owner|code
	findByCodesHits int
	createErr       error
	afterCreate     func(code string) // CreateIfAbsent 新建成功后回调
	updates         map[string]map[string]interface{} // module_id -> 最近一次更新字段
}

func newMockModuleRepo() *mockModuleRepo {
	return &mockModuleRepo{
		modules: make(map[string]*model.Module),
		updates: make(map[string]map[string]interface{}),
	}
}

// moduleKey 代码大小写不敏感，与 UPPER(code) 唯一索引一致
func moduleKey(ownerID, code string) string { return ownerID + "|" + strings.ToUpper(code) }

func (m *mockModuleRepo) FindByCode(_ context.Context, ownerID, code string) (*model.Module, error) {
	if mod, ok := m.modules[moduleKey(ownerID, code)]; ok {
		return mod, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockModuleRepo) FindByCodes(_ context.Context, ownerID string, codes []string) ([]model.Module, error) {
	m.findByCodesHits++
	var result []model.Module
	for _, c := range codes {
		if mod, ok := m.modules[moduleKey(ownerID, c)]; ok {
			result = append(result, *mod)
		}
	}
	return result, nil
}

func (m *mockModuleRepo) Create(_ context.Context, module *model.Module) error {
	if m.createErr != nil {
		return m.createErr
	}
	key := moduleKey(module.OwnerID, module.Code)
	if _, ok := m.modules[key]; ok {
		return gorm.ErrDuplicatedKey
	}
	if module.ModuleID == "" {
		module.ModuleID = "mod-" + module.Code
	}
	m.modules[key] = module
	return nil
}

func (m *mockModuleRepo) CreateIfAbsent(ctx context.Context, module *model.Module) (bool, error) {
	if _, ok := m.modules[moduleKey(module.OwnerID, module.Code)]; ok {
		return false, nil
	}
	if err := m.Create(ctx, module); err != nil {
		return false, err
	}
	if m.afterCreate != nil {
		m.afterCreate(module.Code)
	}
	return true, nil
}

func (m *mockModuleRepo) UpdateFields(_ context.Context, moduleID string, fields map[string]interface{}) error {
	for _, mod := range m.modules {
		if mod.ModuleID != moduleID {
			continue
		}
		if v, ok := fields["title"].(string); ok {
			mod.Title = v
		}
		if v, ok := fields["credit_hours"].(float64); ok {
			mod.CreditHours = v
		}
		if v, ok := fields["status"].(string); ok {
			mod.Status = v
		}
		if v, ok := fields["start_date"].(time.Time); ok {
			mod.StartDate = &v
		}
		if v, ok := fields["end_date"].(time.Time); ok {
			mod.EndDate = &v
		}
		if v, ok := fields["is_stub"].(bool); ok {
			mod.IsStub = v
		}
		m.updates[moduleID] = fields
		return nil
	}
	return gorm.ErrRecordNotFound
}

func (m *mockModuleRepo) seed(ownerID, code, title string) *model.Module {
	mod := &model.Module{ModuleID: "mod-" + code, OwnerID: ownerID, Code: code, Title: title, Status: model.ModuleStatusActive}
	m.modules[moduleKey(ownerID, code)] = mod
	return mod
}

func (m *mockModuleRepo) count() int { return len(m.modules) }

// ── Mock ComponentRepository ──

type mockComponentRepo struct {
	components map[string]*model.AssessmentComponent // key: module|lower(name)
}

func newMockComponentRepo() *mockComponentRepo {
	return &mockComponentRepo{components: make(map[string]*model.AssessmentComponent)}
}

func (m *mockComponentRepo) FindByName(_ context.Context, moduleID, name string) (*model.AssessmentComponent, error) {
	if c, ok := m.components[moduleID+"|"+strings.ToLower(name)]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockComponentRepo) Create(_ context.Context, c *model.AssessmentComponent) error {
	key := c.ModuleID + "|" + strings.ToLower(c.Name)
	if _, ok := m.components[key]; ok {
		return gorm.ErrDuplicatedKey
	}
	if c.ComponentID == "" {
		c.ComponentID = "comp-" + c.Name
	}
	m.components[key] = c
	return nil
}

// ── Mock AssignmentRepository ──

type mockAssignmentRepo struct {
	assignments map[string]*model.Assignment // key: module|title
}

func newMockAssignmentRepo() *mockAssignmentRepo {
	return &mockAssignmentRepo{assignments: make(map[string]*model.Assignment)}
}

func (m *mockAssignmentRepo) Create(_ context.Context, a *model.Assignment) error {
	key := a.ModuleID + "|" + a.Title
	if _, ok := m.assignments[key]; ok {
		return gorm.ErrDuplicatedKey
	}
	if a.AssignmentID == "" {
		a.AssignmentID = "asg-" + a.ModuleID + "-" + a.Title
	}
	m.assignments[key] = a
	return nil
}

func (m *mockAssignmentRepo) ListByModule(_ context.Context, moduleID string) ([]model.Assignment, error) {
	var result []model.Assignment
	for _, a := range m.assignments {
		if a.ModuleID == moduleID {
			result = append(result, *a)
		}
	}
	return result, nil
}

// ── 测试装配 ──

type testRepos struct {
	repo        *repository.Repository
	terms       *mockTermRepo
	modules     *mockModuleRepo
	components  *mockComponentRepo
	assignments *mockAssignmentRepo
}

func setupTestRepos() *testRepos {
	r := &testRepos{
		terms:       newMockTermRepo(),
		modules:     newMockModuleRepo(),
		components:  newMockComponentRepo(),
		assignments: newMockAssignmentRepo(),
	}
	r.repo = &repository.Repository{
		Term:       r.terms,
		Module:     r.modules,
		Component:  r.components,
		Assignment: r.assignments,
	}
	return r
}

func testImportConfig() *config.ImportConfig {
	cfg := config.DefaultImportConfig()
	return &cfg
}

func setupTestPipeline() (*pipeline, *testRepos) {
	repos := setupTestRepos()
	logger := zap.NewNop()
	terms := NewTermService(repos.repo, logger)
	return newPipeline(testImportConfig(), repos.repo, terms, logger), repos
}

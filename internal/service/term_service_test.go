package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"study-tracker/backend/internal/dto"
	pkgerrors "study-tracker/backend/pkg/errors"
)

func setupTestTermService() (TermService, *mockTermRepo) {
	repos := setupTestRepos()
	return NewTermService(repos.repo, zap.NewNop()), repos.terms
}

// ── Create 测试 ──

// 场景 C
func TestTermService_Create_OverlapWarning(t *testing.T) {
	svc, termRepo := setupTestTermService()
	termRepo.seed(testOwner, "term-existing", "春季短学期", "2025-03-01", "2025-04-01")
	termRepo.seed("other-owner", "term-other", "别人的学期", "2025-02-01", "2025-05-01")

	resp, err := svc.Create(context.Background(), testOwner, &dto.CreateTermRequest{
		Title: "2025 上半年", StartDate: "2025-01-01", EndDate: "2025-06-01",
	})
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if resp.Term.ID == "" || resp.Term.StartDate != "2025-01-01" {
		t.Errorf("新学期信息错误: %+v", resp.Term)
	}
	if len(resp.Overlaps) != 1 || resp.Overlaps[0].ID != "term-existing" {
		t.Errorf("期望 1 条重叠提示指向 term-existing，实际=%+v", resp.Overlaps)
	}
	if _, ok := termRepo.terms[resp.Term.ID]; !ok {
		t.Error("重叠时仍应创建学期")
	}
}

func TestTermService_Create_NoOverlap(t *testing.T) {
	svc, termRepo := setupTestTermService()
	termRepo.seed(testOwner, "term-autumn", "秋季", "2024-09-01", "2024-12-31")

	resp, err := svc.Create(context.Background(), testOwner, &dto.CreateTermRequest{
		Title: "春季", StartDate: "2025-01-01", EndDate: "2025-06-01",
	})
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if len(resp.Overlaps) != 0 {
		t.Errorf("不应有重叠提示，实际=%+v", resp.Overlaps)
	}
}

func TestTermService_Create_ValidationErrors(t *testing.T) {
	svc, termRepo := setupTestTermService()

	cases := []struct {
		name string
		req  dto.CreateTermRequest
	}{
		{"缺少标题", dto.CreateTermRequest{StartDate: "2025-01-01", EndDate: "2025-06-01"}},
		{"日期格式错误", dto.CreateTermRequest{Title: "春季", StartDate: "2025/01/01", EndDate: "2025-06-01"}},
		{"缺少结束日期", dto.CreateTermRequest{Title: "春季", StartDate: "2025-01-01"}},
		{"开始等于结束", dto.CreateTermRequest{Title: "春季", StartDate: "2025-01-01", EndDate: "2025-01-01"}},
		{"开始晚于结束", dto.CreateTermRequest{Title: "春季", StartDate: "2025-06-01", EndDate: "2025-01-01"}},
	}
	for _, tc := range cases {
		req := tc.req
		_, err := svc.Create(context.Background(), testOwner, &req)
		if !pkgerrors.IsKind(err, pkgerrors.KindValidation) {
			t.Errorf("%s: 期望 ValidationError，实际=%v", tc.name, err)
		}
	}
	if len(termRepo.terms) != 0 {
		t.Errorf("校验失败时不应创建学期，实际=%d", len(termRepo.terms))
	}
}

func TestTermService_Create_EndBeforeStartSentinel(t *testing.T) {
	svc, _ := setupTestTermService()
	_, err := svc.Create(context.Background(), testOwner, &dto.CreateTermRequest{
		Title: "春季", StartDate: "2025-06-01", EndDate: "2025-01-01",
	})
	if !errors.Is(err, ErrTermDateInvalid) {
		t.Errorf("期望 ErrTermDateInvalid，实际=%v", err)
	}
}

// ── Get / List 测试 ──

func TestTermService_Get_NotFound(t *testing.T) {
	svc, termRepo := setupTestTermService()
	termRepo.seed("other-owner", "term-other", "别人的学期", "2025-02-01", "2025-05-01")

	_, err := svc.Get(context.Background(), testOwner, "term-other")
	if !errors.Is(err, ErrTermNotFound) {
		t.Errorf("期望 ErrTermNotFound，实际=%v", err)
	}
	if !pkgerrors.IsKind(err, pkgerrors.KindReference) {
		t.Errorf("期望 ReferenceError，实际=%v", err)
	}
}

func TestTermService_List_NewestFirst(t *testing.T) {
	svc, termRepo := setupTestTermService()
	termRepo.seed(testOwner, "t1", "2024 秋", "2024-09-01", "2024-12-31")
	termRepo.seed(testOwner, "t2", "2025 春", "2025-02-01", "2025-06-30")

	terms, err := svc.List(context.Background(), testOwner)
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if len(terms) != 2 || terms[0].ID != "t2" {
		t.Errorf("期望按开始日期倒序，实际=%+v", terms)
	}
}

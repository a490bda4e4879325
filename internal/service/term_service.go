package service

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"study-tracker/backend/internal/dto"
	"study-tracker/backend/internal/model"
	"study-tracker/backend/internal/repository"
	pkgerrors "study-tracker/backend/pkg/errors"
)

// ── 学期模块业务错误 ──

var (
	ErrTermNotFound    = pkgerrors.Referencef("学期不存在")
	ErrTermDateInvalid = pkgerrors.Validationf("end_date", "学期结束日期必须晚于开始日期")
)

const dateLayout = "2006-01-02"

// TermService 学期业务接口
type TermService interface {
	List(ctx context.Context, ownerID string) ([]dto.TermResponse, error)
	Get(ctx context.Context, ownerID, id string) (*model.Term, error)
	// Create 创建学期；与已有学期日期重叠时仍创建，重叠项随响应返回
	Create(ctx context.Context, ownerID string, req *dto.CreateTermRequest) (*dto.CreateTermResponse, error)
}

type termService struct {
	repo     *repository.Repository
	validate *validator.Validate
	logger   *zap.Logger
}

// NewTermService 创建 TermService 实例
func NewTermService(repo *repository.Repository, logger *zap.Logger) TermService {
	return &termService{repo: repo, validate: newDraftValidator(), logger: logger}
}

// newDraftValidator 复用 DTO 上的 binding 标签，字段名取 json 名
func newDraftValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ────────────────────── List ──────────────────────

func (s *termService) List(ctx context.Context, ownerID string) ([]dto.TermResponse, error) {
	terms, err := s.repo.Term.ListByOwner(ctx, ownerID)
	if err != nil {
		s.logger.Error("列出学期失败", zap.String("owner_id", ownerID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.TermResponse, 0, len(terms))
	for i := range terms {
		result = append(result, toTermResponse(&terms[i]))
	}
	return result, nil
}

// ────────────────────── Get ──────────────────────

func (s *termService) Get(ctx context.Context, ownerID, id string) (*model.Term, error) {
	if id == "" {
		return nil, ErrTermNotFound
	}
	term, err := s.repo.Term.GetByID(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTermNotFound
		}
		s.logger.Error("查询学期失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return term, nil
}

// ────────────────────── Create ──────────────────────

func (s *termService) Create(ctx context.Context, ownerID string, req *dto.CreateTermRequest) (*dto.CreateTermResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, draftError(err)
	}

	startDate, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		return nil, pkgerrors.Validationf("start_date", "日期格式需为 YYYY-MM-DD")
	}
	endDate, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		return nil, pkgerrors.Validationf("end_date", "日期格式需为 YYYY-MM-DD")
	}
	if !endDate.After(startDate) {
		return nil, ErrTermDateInvalid
	}

	// 重叠检查仅作提示
	existing, err := s.repo.Term.ListByOwner(ctx, ownerID)
	if err != nil {
		s.logger.Error("查询已有学期失败", zap.String("owner_id", ownerID), zap.Error(err))
		return nil, err
	}
	overlaps := make([]dto.TermResponse, 0)
	for i := range existing {
		if existing[i].Overlaps(startDate, endDate) {
			overlaps = append(overlaps, toTermResponse(&existing[i]))
		}
	}

	term := &model.Term{
		OwnerID:         ownerID,
		DegreeID:        req.DegreeID,
		Title:           strings.TrimSpace(req.Title),
		StartDate:       startDate,
		EndDate:         endDate,
		SoftDeleteModel: model.Audit(ownerID),
	}
	if err := s.repo.Term.Create(ctx, term); err != nil {
		s.logger.Error("创建学期失败", zap.Error(err))
		return nil, err
	}

	if len(overlaps) > 0 {
		s.logger.Warn("新学期与已有学期日期重叠",
			zap.String("term_id", term.TermID),
			zap.Int("overlaps", len(overlaps)),
		)
	}

	return &dto.CreateTermResponse{Term: toTermResponse(term), Overlaps: overlaps}, nil
}

// draftError 将 validator 错误转换为 ValidationError
func draftError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return pkgerrors.Validationf("", "学期信息无效: %v", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		var msg string
		switch fe.Tag() {
		case "required":
			msg = "必填"
		case "max":
			msg = "长度不能超过 " + fe.Param()
		case "datetime":
			msg = "日期格式需为 YYYY-MM-DD"
		case "uuid":
			msg = "必须为 UUID"
		default:
			msg = "校验失败: " + fe.Tag()
		}
		msgs = append(msgs, fe.Field()+": "+msg)
	}
	return &pkgerrors.ImportError{Kind: pkgerrors.KindValidation, Msg: strings.Join(msgs, "; ")}
}

// ── 转换 ──

func toTermResponse(t *model.Term) dto.TermResponse {
	return dto.TermResponse{
		ID:        t.TermID,
		Title:     t.Title,
		StartDate: t.StartDate.Format(dateLayout),
		EndDate:   t.EndDate.Format(dateLayout),
		DegreeID:  t.DegreeID,
		CreatedAt: t.CreatedAt.Format(time.RFC3339),
	}
}

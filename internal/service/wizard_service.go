package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"study-tracker/backend/config"
	"study-tracker/backend/internal/dto"
	"study-tracker/backend/internal/repository"
	pkgerrors "study-tracker/backend/pkg/errors"
)

// ── 导入向导业务错误 ──

var (
	ErrSessionNotFound   = errors.New("导入会话不存在或已过期")
	ErrSessionClosed     = errors.New("导入会话已关闭")
	ErrStepMismatch      = errors.New("当前步骤不允许该操作")
	ErrNoFileUploaded    = errors.New("请先上传并成功解析文件")
	ErrTermRequired      = errors.New("请选择已有学期或创建新学期")
	ErrNoValidRecords    = errors.New("没有可导入的有效记录")
	ErrWizardComplete    = errors.New("导入已完成，请关闭向导")
	ErrNoPreviousStep    = errors.New("已是第一步")
	ErrInvalidImportType = errors.New("不支持的导入类型")
)

var stepTitles = map[int]dto.WizardStep{
	StepUpload:     {Number: StepUpload, Key: "upload", Title: "上传文件"},
	StepMapColumns: {Number: StepMapColumns, Key: "map_columns", Title: "映射列"},
	StepMapTerms:   {Number: StepMapTerms, Key: "map_terms", Title: "选择学期"},
	StepPreview:    {Number: StepPreview, Key: "preview", Title: "预览校验"},
	StepSummary:    {Number: StepSummary, Key: "summary", Title: "导入结果"},
}

// WizardService 导入向导状态机：只负责按步骤调度各组件，不做数据转换
type WizardService interface {
	Open(ctx context.Context, ownerID, importType string) (*dto.WizardStateResponse, error)
	Get(ctx context.Context, ownerID, id string) (*dto.WizardStateResponse, error)
	Upload(ctx context.Context, ownerID, id, fileName string, raw []byte) (*dto.WizardStateResponse, error)
	AutoMap(ctx context.Context, ownerID, id string) (*dto.WizardStateResponse, error)
	SetMapping(ctx context.Context, ownerID, id string, mapping map[string]string) (*dto.WizardStateResponse, error)
	Next(ctx context.Context, ownerID, id string) (*dto.WizardStateResponse, error)
	Back(ctx context.Context, ownerID, id string) (*dto.WizardStateResponse, error)
	SelectTerm(ctx context.Context, ownerID, id, termID string) (*dto.WizardStateResponse, error)
	CreateTerm(ctx context.Context, ownerID, id string, req *dto.CreateTermRequest) (*dto.WizardStateResponse, error)
	SetOptions(ctx context.Context, ownerID, id string, req *dto.SessionOptionsRequest) (*dto.WizardStateResponse, error)
	Commit(ctx context.Context, ownerID, id string) (*dto.WizardStateResponse, error)
	Close(ctx context.Context, ownerID, id string) error
}

type wizardService struct {
	p      *pipeline
	store  *SessionStore
	logger *zap.Logger
}

// NewWizardService 创建 WizardService 实例
func NewWizardService(cfg *config.ImportConfig, repo *repository.Repository, terms TermService, store *SessionStore, logger *zap.Logger) WizardService {
	return &wizardService{p: newPipeline(cfg, repo, terms, logger), store: store, logger: logger}
}

// withSession 取出会话并在会话锁内执行 fn，返回最新状态
func (s *wizardService) withSession(ownerID, id string, fn func(sess *ImportSession) error) (*dto.WizardStateResponse, error) {
	sess, ok := s.store.Get(id)
	if !ok || sess.OwnerID != ownerID {
		return nil, ErrSessionNotFound
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.closed.Load() {
		return nil, ErrSessionClosed
	}
	if err := fn(sess); err != nil {
		return nil, err
	}
	return s.state(sess), nil
}

func requireStep(sess *ImportSession, step int) error {
	if sess.CurrentStep != step {
		return fmt.Errorf("%w（当前为第 %d 步）", ErrStepMismatch, sess.CurrentStep)
	}
	return nil
}

// ────────────────────── Open / Get / Close ──────────────────────

func (s *wizardService) Open(_ context.Context, ownerID, importType string) (*dto.WizardStateResponse, error) {
	t := ImportType(importType)
	if !t.Valid() {
		return nil, ErrInvalidImportType
	}
	sess := &ImportSession{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		ImportType:  t,
		CurrentStep: StepUpload,
	}
	s.store.Put(sess)
	s.logger.Info("打开导入向导", zap.String("session_id", sess.ID), zap.String("import_type", importType))

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return s.state(sess), nil
}

func (s *wizardService) Get(_ context.Context, ownerID, id string) (*dto.WizardStateResponse, error) {
	return s.withSession(ownerID, id, func(*ImportSession) error { return nil })
}

// Close 标记关闭并丢弃会话；不等待进行中的操作，已提交的写入不回滚
func (s *wizardService) Close(_ context.Context, ownerID, id string) error {
	sess, ok := s.store.Get(id)
	if !ok || sess.OwnerID != ownerID {
		return ErrSessionNotFound
	}
	sess.closed.Store(true)
	s.store.Remove(id)

	// 会话锁被进行中的操作持有时不等待，也不读取步骤
	fields := []zap.Field{zap.String("session_id", id)}
	if sess.mu.TryLock() {
		fields = append(fields, zap.Int("step", sess.CurrentStep))
		sess.mu.Unlock()
	} else {
		fields = append(fields, zap.Bool("in_flight", true))
	}
	s.logger.Info("关闭导入向导", fields...)
	return nil
}

// ────────────────────── 步骤 1：上传 ──────────────────────

// Upload 解析失败时会话停留在步骤 1，并清空之前的文件状态
func (s *wizardService) Upload(_ context.Context, ownerID, id, fileName string, raw []byte) (*dto.WizardStateResponse, error) {
	return s.withSession(ownerID, id, func(sess *ImportSession) error {
		if err := requireStep(sess, StepUpload); err != nil {
			return err
		}
		sess.resetFile()

		if int64(len(raw)) > s.p.maxFileBytes {
			return pkgerrors.Parsef("文件大小超过上限 %d 字节", s.p.maxFileBytes)
		}
		table, err := s.p.parser.Parse(raw)
		if err != nil {
			return err
		}

		sess.RawText = raw
		sess.FileName = fileName
		sess.Headers = table.Headers
		sess.table = table
		sess.Mapping = SuggestMapping(sess.ImportType, table.Headers)
		return nil
	})
}

// ────────────────────── 步骤 2：映射列 ──────────────────────

// AutoMap 用推荐映射覆盖当前映射
func (s *wizardService) AutoMap(_ context.Context, ownerID, id string) (*dto.WizardStateResponse, error) {
	return s.withSession(ownerID, id, func(sess *ImportSession) error {
		if err := requireStep(sess, StepMapColumns); err != nil {
			return err
		}
		sess.Mapping = SuggestMapping(sess.ImportType, sess.Headers)
		sess.Preview = nil
		return nil
	})
}

// SetMapping 整体覆盖映射；合法性在前进时校验
func (s *wizardService) SetMapping(_ context.Context, ownerID, id string, mapping map[string]string) (*dto.WizardStateResponse, error) {
	return s.withSession(ownerID, id, func(sess *ImportSession) error {
		if err := requireStep(sess, StepMapColumns); err != nil {
			return err
		}
		sess.Mapping = ColumnMapping(mapping).Clone()
		sess.Preview = nil
		return nil
	})
}

// ────────────────────── 步骤 3：学期 ──────────────────────

func (s *wizardService) SelectTerm(ctx context.Context, ownerID, id, termID string) (*dto.WizardStateResponse, error) {
	return s.withSession(ownerID, id, func(sess *ImportSession) error {
		if err := requireStep(sess, StepMapTerms); err != nil {
			return err
		}
		term, err := s.p.terms.Get(ctx, ownerID, termID)
		if err != nil {
			return err
		}
		sess.SelectedTermID = &term.TermID
		sess.NewTermDraft = nil
		sess.TermOverlaps = nil
		return nil
	})
}

// CreateTerm 校验失败时保留草稿，会话继续；成功后新学期即为所选学期
func (s *wizardService) CreateTerm(ctx context.Context, ownerID, id string, req *dto.CreateTermRequest) (*dto.WizardStateResponse, error) {
	return s.withSession(ownerID, id, func(sess *ImportSession) error {
		if err := requireStep(sess, StepMapTerms); err != nil {
			return err
		}
		draft := *req
		sess.NewTermDraft = &draft

		resp, err := s.p.terms.Create(ctx, ownerID, req)
		if err != nil {
			return err
		}
		sess.SelectedTermID = &resp.Term.ID
		sess.TermOverlaps = resp.Overlaps
		return nil
	})
}

// ────────────────────── 步骤 4：选项 ──────────────────────

func (s *wizardService) SetOptions(_ context.Context, ownerID, id string, req *dto.SessionOptionsRequest) (*dto.WizardStateResponse, error) {
	return s.withSession(ownerID, id, func(sess *ImportSession) error {
		if sess.CurrentStep == StepSummary {
			return ErrWizardComplete
		}
		if req.CreateMissingModules != nil {
			sess.CreateMissingModules = *req.CreateMissingModules
		}
		return nil
	})
}

// ────────────────────── 导航 ──────────────────────

func (s *wizardService) Next(ctx context.Context, ownerID, id string) (*dto.WizardStateResponse, error) {
	return s.withSession(ownerID, id, func(sess *ImportSession) error {
		switch sess.CurrentStep {
		case StepUpload:
			if sess.table == nil || len(sess.Headers) == 0 {
				return ErrNoFileUploaded
			}
			sess.CurrentStep = StepMapColumns
			return nil

		case StepMapColumns:
			if err := ValidateMapping(sess.ImportType, sess.Headers, sess.Mapping); err != nil {
				return err
			}
			preview, err := s.p.validator.Preview(ctx, ownerID, sess.ImportType, sess.table, sess.Mapping)
			if err != nil {
				return err
			}
			sess.Preview = preview
			sess.termStepUsed = sess.ImportType == ImportTypeModules && preview.NeedsTermMapping
			if sess.termStepUsed {
				sess.CurrentStep = StepMapTerms
			} else {
				sess.CurrentStep = StepPreview
			}
			return nil

		case StepMapTerms:
			if sess.SelectedTermID == nil || *sess.SelectedTermID == "" {
				return ErrTermRequired
			}
			sess.CurrentStep = StepPreview
			return nil

		case StepPreview:
			return s.commit(ctx, sess)

		default:
			return ErrWizardComplete
		}
	})
}

// Back 回退不清除已填写的映射与学期
func (s *wizardService) Back(_ context.Context, ownerID, id string) (*dto.WizardStateResponse, error) {
	return s.withSession(ownerID, id, func(sess *ImportSession) error {
		switch sess.CurrentStep {
		case StepUpload:
			return ErrNoPreviousStep
		case StepSummary:
			return ErrWizardComplete
		case StepPreview:
			if sess.termStepUsed {
				sess.CurrentStep = StepMapTerms
			} else {
				sess.CurrentStep = StepMapColumns
			}
		default:
			sess.CurrentStep--
		}
		return nil
	})
}

// ────────────────────── 步骤 4 → 5：提交 ──────────────────────

func (s *wizardService) Commit(ctx context.Context, ownerID, id string) (*dto.WizardStateResponse, error) {
	return s.withSession(ownerID, id, func(sess *ImportSession) error {
		if err := requireStep(sess, StepPreview); err != nil {
			return err
		}
		return s.commit(ctx, sess)
	})
}

// commit 先补建缺失模块再写入；写入脱离请求取消，关闭会话只阻止后续步骤
func (s *wizardService) commit(ctx context.Context, sess *ImportSession) error {
	if sess.Preview == nil || len(sess.Preview.ValidRecords) == 0 {
		return ErrNoValidRecords
	}
	ctx = context.WithoutCancel(ctx)

	if missing := sess.Preview.MissingModuleCodes; len(missing) > 0 {
		if !sess.CreateMissingModules {
			return missingModulesError(missing)
		}
		if _, err := s.p.provisioner.CreateMissing(ctx, sess.OwnerID, missing); err != nil {
			return err
		}
	}

	if sess.closed.Load() {
		return ErrSessionClosed
	}

	var termID *string
	if sess.termStepUsed {
		termID = sess.SelectedTermID
	}
	result, err := s.p.ingestor.Ingest(ctx, sess.OwnerID, sess.ImportType, sess.Preview.ValidRecords, termID)
	if err != nil {
		return err
	}

	sess.IngestResult = result
	sess.CurrentStep = StepSummary
	sess.Complete = true
	s.logger.Info("导入向导已完成",
		zap.String("session_id", sess.ID),
		zap.Int("total", result.Total),
		zap.Int("success", result.SuccessCount),
	)
	return nil
}

func missingModulesError(codes []string) error {
	return &pkgerrors.ImportError{
		Kind: pkgerrors.KindReference,
		Msg:  fmt.Sprintf("以下模块尚未创建: %s；请启用自动创建或修正文件", strings.Join(codes, ", ")),
	}
}

// ────────────────────── 状态 ──────────────────────

func (s *wizardService) state(sess *ImportSession) *dto.WizardStateResponse {
	st := &dto.WizardStateResponse{
		SessionID:            sess.ID,
		ImportType:           string(sess.ImportType),
		CurrentStep:          sess.CurrentStep,
		Steps:                visibleSteps(sess),
		CanGoBack:            sess.CurrentStep > StepUpload && sess.CurrentStep < StepSummary,
		FileName:             sess.FileName,
		Headers:              sess.Headers,
		Mapping:              sess.Mapping,
		SelectedTermID:       sess.SelectedTermID,
		NewTermDraft:         sess.NewTermDraft,
		TermOverlaps:         sess.TermOverlaps,
		CreateMissingModules: sess.CreateMissingModules,
		Complete:             sess.Complete,
	}
	if st.Headers == nil {
		st.Headers = []string{}
	}
	if st.Mapping == nil {
		st.Mapping = map[string]string{}
	}
	if sess.table != nil {
		st.RowCount = len(sess.table.Rows)
	}
	if sess.Preview != nil {
		st.Preview = toPreviewResponse(sess.Preview)
	}
	if sess.IngestResult != nil {
		st.Result = toIngestResponse(sess.IngestResult)
	}

	if blocker := advanceBlocker(sess); blocker != nil {
		st.AdvanceBlocker = blocker.Error()
	} else {
		st.CanAdvance = sess.CurrentStep < StepSummary
	}
	return st
}

// advanceBlocker 当前步骤前进的阻塞原因；nil 表示可前进
func advanceBlocker(sess *ImportSession) error {
	switch sess.CurrentStep {
	case StepUpload:
		if sess.table == nil {
			return ErrNoFileUploaded
		}
	case StepMapColumns:
		return ValidateMapping(sess.ImportType, sess.Headers, sess.Mapping)
	case StepMapTerms:
		if sess.SelectedTermID == nil {
			return ErrTermRequired
		}
	case StepPreview:
		if sess.Preview == nil || len(sess.Preview.ValidRecords) == 0 {
			return ErrNoValidRecords
		}
		if len(sess.Preview.MissingModuleCodes) > 0 && !sess.CreateMissingModules {
			return missingModulesError(sess.Preview.MissingModuleCodes)
		}
	}
	return nil
}

// visibleSteps 作业导入不显示学期步骤；模块导入在预览确定不需要学期后隐藏
func visibleSteps(sess *ImportSession) []dto.WizardStep {
	showTerms := sess.ImportType == ImportTypeModules &&
		(sess.termStepUsed || sess.Preview == nil || sess.Preview.NeedsTermMapping)
	steps := make([]dto.WizardStep, 0, 5)
	for n := StepUpload; n <= StepSummary; n++ {
		if n == StepMapTerms && !showTerms {
			continue
		}
		steps = append(steps, stepTitles[n])
	}
	return steps
}

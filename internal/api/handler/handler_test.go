package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"study-tracker/backend/internal/dto"
	"study-tracker/backend/internal/model"
	"study-tracker/backend/internal/service"
	pkgerrors "study-tracker/backend/pkg/errors"
	"study-tracker/backend/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock ImportService ──

type mockImportService struct {
	uploadName    string
	uploadErr     error
	parseRaw      []byte
	parseResult   *dto.ParseImportResponse
	parseErr      error
	previewResult *dto.PreviewImportResponse
	previewErr    error
	missingResult *dto.CreateMissingModulesResponse
	missingErr    error
	ingestReq     *dto.IngestImportRequest
	ingestResult  *dto.IngestImportResponse
	ingestErr     error
	optionsResult []dto.FieldOption
	optionsErr    error
}

func (m *mockImportService) ReadUpload(fileName string, r io.Reader) ([]byte, error) {
	m.uploadName = fileName
	if m.uploadErr != nil {
		return nil, m.uploadErr
	}
	return io.ReadAll(r)
}
func (m *mockImportService) Parse(raw []byte) (*dto.ParseImportResponse, error) {
	m.parseRaw = raw
	return m.parseResult, m.parseErr
}
func (m *mockImportService) Preview(_ context.Context, _ string, _ *dto.PreviewImportRequest) (*dto.PreviewImportResponse, error) {
	return m.previewResult, m.previewErr
}
func (m *mockImportService) CreateMissingModules(_ context.Context, _ string, _ *dto.CreateMissingModulesRequest) (*dto.CreateMissingModulesResponse, error) {
	return m.missingResult, m.missingErr
}
func (m *mockImportService) Ingest(_ context.Context, _ string, req *dto.IngestImportRequest) (*dto.IngestImportResponse, error) {
	m.ingestReq = req
	return m.ingestResult, m.ingestErr
}
func (m *mockImportService) FieldOptions(_ string) ([]dto.FieldOption, error) {
	return m.optionsResult, m.optionsErr
}

// ── Mock TermService ──

type mockTermService struct {
	listResult   []dto.TermResponse
	listErr      error
	createResult *dto.CreateTermResponse
	createErr    error
}

func (m *mockTermService) List(_ context.Context, _ string) ([]dto.TermResponse, error) {
	return m.listResult, m.listErr
}
func (m *mockTermService) Get(_ context.Context, _, _ string) (*model.Term, error) {
	return nil, service.ErrTermNotFound
}
func (m *mockTermService) Create(_ context.Context, _ string, _ *dto.CreateTermRequest) (*dto.CreateTermResponse, error) {
	return m.createResult, m.createErr
}

// ── Mock WizardService ──

type mockWizardService struct {
	state     *dto.WizardStateResponse
	err       error // 步骤操作返回的错误
	getErr    error
	closeErr  error
	lastRaw   []byte
	lastName  string
	lastTerm  string
	lastOwner string
}

func (m *mockWizardService) result() (*dto.WizardStateResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.state, nil
}

func (m *mockWizardService) Open(_ context.Context, ownerID, _ string) (*dto.WizardStateResponse, error) {
	m.lastOwner = ownerID
	return m.result()
}
func (m *mockWizardService) Get(_ context.Context, _, _ string) (*dto.WizardStateResponse, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.state, nil
}
func (m *mockWizardService) Upload(_ context.Context, _, _, fileName string, raw []byte) (*dto.WizardStateResponse, error) {
	m.lastName, m.lastRaw = fileName, raw
	return m.result()
}
func (m *mockWizardService) AutoMap(_ context.Context, _, _ string) (*dto.WizardStateResponse, error) {
	return m.result()
}
func (m *mockWizardService) SetMapping(_ context.Context, _, _ string, _ map[string]string) (*dto.WizardStateResponse, error) {
	return m.result()
}
func (m *mockWizardService) Next(_ context.Context, _, _ string) (*dto.WizardStateResponse, error) {
	return m.result()
}
func (m *mockWizardService) Back(_ context.Context, _, _ string) (*dto.WizardStateResponse, error) {
	return m.result()
}
func (m *mockWizardService) SelectTerm(_ context.Context, _, _, termID string) (*dto.WizardStateResponse, error) {
	m.lastTerm = termID
	return m.result()
}
func (m *mockWizardService) CreateTerm(_ context.Context, _, _ string, _ *dto.CreateTermRequest) (*dto.WizardStateResponse, error) {
	return m.result()
}
func (m *mockWizardService) SetOptions(_ context.Context, _, _ string, _ *dto.SessionOptionsRequest) (*dto.WizardStateResponse, error) {
	return m.result()
}
func (m *mockWizardService) Commit(_ context.Context, _, _ string) (*dto.WizardStateResponse, error) {
	return m.result()
}
func (m *mockWizardService) Close(_ context.Context, _, _ string) error {
	return m.closeErr
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

func withAuth(h gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", "test-user-id")
		h(c)
	}
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func doJSON(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		reader = jsonBody(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func multipartBody(t *testing.T, fileName, content string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	fw.Write([]byte(content))
	mw.Close()
	return &buf, mw.FormDataContentType()
}

type stateEnvelope struct {
	Code    int                      `json:"code"`
	Message string                   `json:"message"`
	Data    *dto.WizardStateResponse `json:"data"`
	Details string                   `json:"details"`
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

func parseState(w *httptest.ResponseRecorder) stateEnvelope {
	var resp stateEnvelope
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

// ═══════════════════════════════════════════════════════════
// ImportHandler Tests
// ═══════════════════════════════════════════════════════════

func TestImportHandler_Parse_JSON(t *testing.T) {
	mock := &mockImportService{parseResult: &dto.ParseImportResponse{Headers: []string{"Code"}, RowCount: 1}}
	h := NewImportHandler(mock)

	r := gin.New()
	r.POST("/imports/parse", withAuth(h.Parse))
	w := doJSON(r, "POST", "/imports/parse", dto.ParseImportRequest{RawText: "Code\nM1\n"})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if string(mock.parseRaw) != "Code\nM1\n" {
		t.Errorf("expected raw_text passed through, got %q", mock.parseRaw)
	}
}

func TestImportHandler_Parse_Multipart(t *testing.T) {
	mock := &mockImportService{parseResult: &dto.ParseImportResponse{Headers: []string{"Code"}, RowCount: 1}}
	h := NewImportHandler(mock)

	r := gin.New()
	r.POST("/imports/parse", withAuth(h.Parse))

	body, contentType := multipartBody(t, "modules.csv", "Code\nM1\n")
	req := httptest.NewRequest("POST", "/imports/parse", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if mock.uploadName != "modules.csv" || string(mock.parseRaw) != "Code\nM1\n" {
		t.Errorf("expected uploaded file to be parsed, got name=%q raw=%q", mock.uploadName, mock.parseRaw)
	}
}

func TestImportHandler_Parse_ParseError(t *testing.T) {
	mock := &mockImportService{parseErr: pkgerrors.Parsef("文件没有数据行")}
	h := NewImportHandler(mock)

	r := gin.New()
	r.POST("/imports/parse", withAuth(h.Parse))
	w := doJSON(r, "POST", "/imports/parse", dto.ParseImportRequest{RawText: "Code"})

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 16001 || resp.Details == "" {
		t.Errorf("expected code 16001 with details, got %+v", resp)
	}
}

func TestImportHandler_Parse_Unauthenticated(t *testing.T) {
	h := NewImportHandler(&mockImportService{})

	r := gin.New()
	r.POST("/imports/parse", h.Parse)
	w := doJSON(r, "POST", "/imports/parse", dto.ParseImportRequest{RawText: "Code"})

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestImportHandler_Preview_MappingError(t *testing.T) {
	mock := &mockImportService{previewErr: pkgerrors.Mappingf("必填字段未映射: title")}
	h := NewImportHandler(mock)

	r := gin.New()
	r.POST("/imports/preview", withAuth(h.Preview))
	w := doJSON(r, "POST", "/imports/preview", dto.PreviewImportRequest{ImportType: "modules", RawText: "Code\nM1"})

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 16002 {
		t.Errorf("expected code 16002, got %d", resp.Code)
	}
}

func TestImportHandler_Preview_BadImportType(t *testing.T) {
	h := NewImportHandler(&mockImportService{})

	r := gin.New()
	r.POST("/imports/preview", withAuth(h.Preview))
	w := doJSON(r, "POST", "/imports/preview", dto.PreviewImportRequest{ImportType: "grades", RawText: "x"})

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 10001 {
		t.Errorf("expected code 10001, got %d", resp.Code)
	}
}

func TestImportHandler_CreateMissingModules(t *testing.T) {
	mock := &mockImportService{missingResult: &dto.CreateMissingModulesResponse{CreatedCount: 2}}
	h := NewImportHandler(mock)

	r := gin.New()
	r.POST("/imports/missing-modules", withAuth(h.CreateMissingModules))

	w := doJSON(r, "POST", "/imports/missing-modules", dto.CreateMissingModulesRequest{Codes: []string{"A1", "B2"}})
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	w = doJSON(r, "POST", "/imports/missing-modules", dto.CreateMissingModulesRequest{Codes: []string{}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty codes, got %d", w.Code)
	}
}

func TestImportHandler_Ingest(t *testing.T) {
	termID := "0b6f8a5e-2f4c-4c1e-9a57-3f1d2b6c7e80"
	mock := &mockImportService{ingestResult: &dto.IngestImportResponse{Total: 2, SuccessCount: 1, Failures: []dto.IngestFailure{{Row: 3, Kind: "persistence"}}}}
	h := NewImportHandler(mock)

	r := gin.New()
	r.POST("/imports/ingest", withAuth(h.Ingest))
	w := doJSON(r, "POST", "/imports/ingest", dto.IngestImportRequest{ImportType: "assignments", RawText: "x", TermID: &termID})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.ingestReq == nil || mock.ingestReq.TermID == nil || *mock.ingestReq.TermID != termID {
		t.Error("expected term_id passed to service")
	}
}

func TestImportHandler_Ingest_UnknownTerm(t *testing.T) {
	mock := &mockImportService{ingestErr: service.ErrTermNotFound}
	h := NewImportHandler(mock)

	r := gin.New()
	r.POST("/imports/ingest", withAuth(h.Ingest))
	w := doJSON(r, "POST", "/imports/ingest", dto.IngestImportRequest{ImportType: "assignments", RawText: "x"})

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 14001 {
		t.Errorf("expected code 14001, got %d", resp.Code)
	}
}

func TestImportHandler_FieldOptions(t *testing.T) {
	mock := &mockImportService{optionsResult: []dto.FieldOption{{Key: "ignore"}}}
	h := NewImportHandler(mock)

	r := gin.New()
	r.GET("/imports/fields", h.FieldOptions)

	w := doJSON(r, "GET", "/imports/fields?import_type=modules", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	w = doJSON(r, "GET", "/imports/fields", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without import_type, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// TermHandler Tests
// ═══════════════════════════════════════════════════════════

func TestTermHandler_List(t *testing.T) {
	mock := &mockTermService{listResult: []dto.TermResponse{{ID: "t1", Title: "2025 春季"}}}
	h := NewTermHandler(mock)

	r := gin.New()
	r.GET("/terms", withAuth(h.ListTerms))
	w := doJSON(r, "GET", "/terms", nil)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestTermHandler_Create_Overlap(t *testing.T) {
	mock := &mockTermService{createResult: &dto.CreateTermResponse{
		Term:     dto.TermResponse{ID: "t2"},
		Overlaps: []dto.TermResponse{{ID: "t1"}},
	}}
	h := NewTermHandler(mock)

	r := gin.New()
	r.POST("/terms", withAuth(h.CreateTerm))
	w := doJSON(r, "POST", "/terms", dto.CreateTermRequest{Title: "B", StartDate: "2025-03-01", EndDate: "2025-09-01"})

	if w.Code != http.StatusCreated {
		t.Errorf("expected 201 even with overlaps, got %d", w.Code)
	}
}

func TestTermHandler_Create_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     dto.CreateTermRequest
		svcErr   error
		wantHTTP int
		wantCode int
	}{
		{"binding", dto.CreateTermRequest{Title: "A", StartDate: "2025/01/01", EndDate: "2025-06-01"}, nil, http.StatusBadRequest, 10001},
		{"inverted", dto.CreateTermRequest{Title: "A", StartDate: "2025-06-01", EndDate: "2025-01-01"}, service.ErrTermDateInvalid, http.StatusBadRequest, 14002},
		{"internal", dto.CreateTermRequest{Title: "A", StartDate: "2025-01-01", EndDate: "2025-06-01"}, io.ErrUnexpectedEOF, http.StatusInternalServerError, 50000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewTermHandler(&mockTermService{createErr: tt.svcErr})
			r := gin.New()
			r.POST("/terms", withAuth(h.CreateTerm))
			w := doJSON(r, "POST", "/terms", tt.body)

			if w.Code != tt.wantHTTP {
				t.Errorf("expected %d, got %d", tt.wantHTTP, w.Code)
			}
			if resp := parseResponse(w); resp.Code != tt.wantCode {
				t.Errorf("expected code %d, got %d", tt.wantCode, resp.Code)
			}
		})
	}
}

// ═══════════════════════════════════════════════════════════
// WizardHandler Tests
// ═══════════════════════════════════════════════════════════

func setupWizardRouter(wizard *mockWizardService, imports *mockImportService) *gin.Engine {
	h := NewWizardHandler(wizard, imports)
	r := gin.New()
	g := r.Group("/import-sessions")
	g.POST("", withAuth(h.OpenSession))
	g.GET("/:id", withAuth(h.GetSession))
	g.DELETE("/:id", withAuth(h.CloseSession))
	g.POST("/:id/upload", withAuth(h.Upload))
	g.PUT("/:id/mapping", withAuth(h.SetMapping))
	g.PUT("/:id/term", withAuth(h.SelectTerm))
	g.POST("/:id/next", withAuth(h.Next))
	g.POST("/:id/commit", withAuth(h.Commit))
	return r
}

func TestWizardHandler_Open(t *testing.T) {
	mock := &mockWizardService{state: &dto.WizardStateResponse{SessionID: "s1", CurrentStep: 1}}
	r := setupWizardRouter(mock, &mockImportService{})

	w := doJSON(r, "POST", "/import-sessions", dto.OpenSessionRequest{ImportType: "modules"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if resp := parseState(w); resp.Data == nil || resp.Data.SessionID != "s1" {
		t.Errorf("expected session state in data, got %+v", resp)
	}
	if mock.lastOwner != "test-user-id" {
		t.Errorf("expected owner from token, got %q", mock.lastOwner)
	}
}

func TestWizardHandler_Upload_Multipart(t *testing.T) {
	mock := &mockWizardService{state: &dto.WizardStateResponse{SessionID: "s1", CurrentStep: 1}}
	r := setupWizardRouter(mock, &mockImportService{})

	body, contentType := multipartBody(t, "a.csv", "Code,Title\nM1,A\n")
	req := httptest.NewRequest("POST", "/import-sessions/s1/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if mock.lastName != "a.csv" || string(mock.lastRaw) != "Code,Title\nM1,A\n" {
		t.Errorf("expected file forwarded to wizard, got name=%q raw=%q", mock.lastName, mock.lastRaw)
	}
}

func TestWizardHandler_BlockedStepIncludesState(t *testing.T) {
	mock := &mockWizardService{
		state: &dto.WizardStateResponse{SessionID: "s1", CurrentStep: 3, AdvanceBlocker: "请选择已有学期或创建新学期"},
		err:   service.ErrTermRequired,
	}
	r := setupWizardRouter(mock, &mockImportService{})

	w := doJSON(r, "POST", "/import-sessions/s1/next", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	resp := parseState(w)
	if resp.Code != 17005 {
		t.Errorf("expected code 17005, got %d", resp.Code)
	}
	if resp.Data == nil || resp.Data.CurrentStep != 3 {
		t.Errorf("expected current state attached, got %+v", resp.Data)
	}
}

func TestWizardHandler_CommitReferenceError(t *testing.T) {
	mock := &mockWizardService{
		state: &dto.WizardStateResponse{SessionID: "s1", CurrentStep: 4},
		err:   pkgerrors.Referencef("以下模块尚未创建: NEW1"),
	}
	r := setupWizardRouter(mock, &mockImportService{})

	w := doJSON(r, "POST", "/import-sessions/s1/commit", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	resp := parseState(w)
	if resp.Code != 16004 || resp.Details == "" || resp.Data == nil {
		t.Errorf("expected code 16004 with details and state, got %+v", resp)
	}
}

func TestWizardHandler_SessionNotFound(t *testing.T) {
	mock := &mockWizardService{err: service.ErrSessionNotFound, getErr: service.ErrSessionNotFound, closeErr: service.ErrSessionNotFound}
	r := setupWizardRouter(mock, &mockImportService{})

	w := doJSON(r, "GET", "/import-sessions/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 17001 || resp.Data != nil {
		t.Errorf("expected code 17001 without data, got %+v", resp)
	}

	w = doJSON(r, "DELETE", "/import-sessions/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 on close, got %d", w.Code)
	}
}

func TestWizardHandler_StepMismatch(t *testing.T) {
	mock := &mockWizardService{state: &dto.WizardStateResponse{SessionID: "s1", CurrentStep: 1}, err: service.ErrStepMismatch}
	r := setupWizardRouter(mock, &mockImportService{})

	w := doJSON(r, "PUT", "/import-sessions/s1/term", dto.SelectTermRequest{TermID: "t1"})
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
	if mock.lastTerm != "t1" {
		t.Errorf("expected term id forwarded, got %q", mock.lastTerm)
	}
}

func TestWizardHandler_SetMapping_BadBody(t *testing.T) {
	r := setupWizardRouter(&mockWizardService{}, &mockImportService{})

	req := httptest.NewRequest("PUT", "/import-sessions/s1/mapping", bytes.NewReader([]byte("invalid json")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

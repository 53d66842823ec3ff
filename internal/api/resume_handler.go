package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"menufolio/internal/api/middleware"
	"menufolio/internal/apperr"
	"menufolio/internal/database"
	"menufolio/internal/schema"
	"menufolio/internal/store"
)

// ResumeHandler 负责处理与简历相关的 API 请求。
type ResumeHandler struct {
	resumes store.ResumeStore
	logger  *slog.Logger
}

// NewResumeHandler 构造 ResumeHandler。
func NewResumeHandler(resumes store.ResumeStore, logger *slog.Logger) *ResumeHandler {
	return &ResumeHandler{resumes: resumes, logger: logger}
}

var errInvalidResumeID = apperr.New(apperr.ValidationFailed, "invalid resume id")

type experienceRequest struct {
	Company     string  `json:"company"`
	Position    string  `json:"position"`
	StartDate   string  `json:"startDate"`
	EndDate     *string `json:"endDate"`
	Description string  `json:"description"`
}

type educationRequest struct {
	Institution string  `json:"institution"`
	Degree      string  `json:"degree"`
	Field       string  `json:"field"`
	StartDate   string  `json:"startDate"`
	EndDate     *string `json:"endDate"`
}

type skillRequest struct {
	Name  string `json:"name"`
	Level string `json:"level"`
}

type resumeRequest struct {
	Title       string              `json:"title"`
	Summary     string              `json:"summary"`
	Experiences []experienceRequest `json:"experiences"`
	Educations  []educationRequest  `json:"educations"`
	Skills      []skillRequest      `json:"skills"`
}

type experienceResponse struct {
	ID          uint    `json:"id"`
	Company     string  `json:"company"`
	Position    string  `json:"position"`
	StartDate   string  `json:"startDate"`
	EndDate     *string `json:"endDate"`
	Description string  `json:"description"`
}

type educationResponse struct {
	ID          uint    `json:"id"`
	Institution string  `json:"institution"`
	Degree      string  `json:"degree"`
	Field       string  `json:"field"`
	StartDate   string  `json:"startDate"`
	EndDate     *string `json:"endDate"`
}

type skillResponse struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Level string `json:"level"`
}

type resumeResponse struct {
	ID          uint                 `json:"id"`
	Title       string               `json:"title"`
	Summary     string               `json:"summary"`
	Experiences []experienceResponse `json:"experiences"`
	Educations  []educationResponse  `json:"educations"`
	Skills      []skillResponse      `json:"skills"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// CreateResume 保存一份新的简历，包括全部子记录。
func (h *ResumeHandler) CreateResume(c *gin.Context) {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req resumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	resume := req.toModel()
	resume.UserID = principal.ID

	if err := h.resumes.Create(c.Request.Context(), resume); err != nil {
		h.fail(c, err, "Resume creation failed")
		return
	}

	Data(c, http.StatusCreated, newResumeResponse(*resume), "Resume created successfully")
}

// ListResumes 列出用户全部简历。
func (h *ResumeHandler) ListResumes(c *gin.Context) {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	resumes, err := h.resumes.ListByOwner(c.Request.Context(), principal.ID)
	if err != nil {
		h.fail(c, err, "Failed to fetch resumes")
		return
	}

	items := make([]resumeResponse, 0, len(resumes))
	for _, r := range resumes {
		items = append(items, newResumeResponse(r))
	}
	Data(c, http.StatusOK, items, "Resumes are fetched")
}

// GetResume 返回指定 ID 的简历。
func (h *ResumeHandler) GetResume(c *gin.Context) {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	id, err := parseResumeID(c.Param("id"))
	if err != nil {
		h.fail(c, err, "Failed to fetch resume")
		return
	}

	resume, err := h.resumes.GetForOwner(c.Request.Context(), id, principal.ID)
	if err != nil {
		h.fail(c, err, "Failed to fetch resume")
		return
	}

	Data(c, http.StatusOK, newResumeResponse(*resume), "Resume data is fetched")
}

// UpdateResume 以请求体整体替换简历及其全部子记录。
func (h *ResumeHandler) UpdateResume(c *gin.Context) {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	id, err := parseResumeID(c.Param("id"))
	if err != nil {
		h.fail(c, err, "Resume update failed")
		return
	}

	var req resumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	resume, err := h.resumes.Replace(c.Request.Context(), id, principal.ID, req.toModel())
	if err != nil {
		h.fail(c, err, "Resume update failed")
		return
	}

	Data(c, http.StatusOK, newResumeResponse(*resume), "Resume updated successfully")
}

// DeleteResume 删除简历及其全部子记录，成功时返回 204。
func (h *ResumeHandler) DeleteResume(c *gin.Context) {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	id, err := parseResumeID(c.Param("id"))
	if err != nil {
		h.fail(c, err, "Failed to delete resume")
		return
	}

	if err := h.resumes.Delete(c.Request.Context(), id, principal.ID); err != nil {
		h.fail(c, err, "Failed to delete resume")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *ResumeHandler) fail(c *gin.Context, err error, internalMsg string) {
	Fail(c, h.loggerFromContext(c), err, "Resume not found", internalMsg)
}

func (h *ResumeHandler) loggerFromContext(c *gin.Context) *slog.Logger {
	if logger := middleware.LoggerFromContext(c); logger != nil {
		return logger
	}
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}

func parseResumeID(param string) (uint, error) {
	id, err := strconv.ParseUint(param, 10, 64)
	if err != nil {
		return 0, errInvalidResumeID
	}
	return uint(id), nil
}

func (r resumeRequest) toModel() *database.Resume {
	resume := &database.Resume{
		Title:   r.Title,
		Summary: r.Summary,
	}
	for _, exp := range r.Experiences {
		resume.Experiences = append(resume.Experiences, database.Experience{
			Company:     exp.Company,
			Position:    exp.Position,
			StartDate:   mustParseDate(exp.StartDate),
			EndDate:     parseOptionalDate(exp.EndDate),
			Description: exp.Description,
		})
	}
	for _, edu := range r.Educations {
		resume.Educations = append(resume.Educations, database.Education{
			Institution: edu.Institution,
			Degree:      edu.Degree,
			Field:       edu.Field,
			StartDate:   mustParseDate(edu.StartDate),
			EndDate:     parseOptionalDate(edu.EndDate),
		})
	}
	for _, sk := range r.Skills {
		resume.Skills = append(resume.Skills, database.Skill{
			Name:  sk.Name,
			Level: sk.Level,
		})
	}
	return resume
}

// mustParseDate relies on the schema middleware having already accepted
// the value; an unparsable date at this point is a zero time, not a panic.
func mustParseDate(s string) time.Time {
	t, _ := schema.ParseDate(s)
	return t
}

func parseOptionalDate(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, ok := schema.ParseDate(*s)
	if !ok {
		return nil
	}
	return &t
}

func formatDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func formatOptionalDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatDate(*t)
	return &s
}

func newResumeResponse(resume database.Resume) resumeResponse {
	experiences := make([]experienceResponse, 0, len(resume.Experiences))
	for _, exp := range resume.Experiences {
		experiences = append(experiences, experienceResponse{
			ID:          exp.ID,
			Company:     exp.Company,
			Position:    exp.Position,
			StartDate:   formatDate(exp.StartDate),
			EndDate:     formatOptionalDate(exp.EndDate),
			Description: exp.Description,
		})
	}
	educations := make([]educationResponse, 0, len(resume.Educations))
	for _, edu := range resume.Educations {
		educations = append(educations, educationResponse{
			ID:          edu.ID,
			Institution: edu.Institution,
			Degree:      edu.Degree,
			Field:       edu.Field,
			StartDate:   formatDate(edu.StartDate),
			EndDate:     formatOptionalDate(edu.EndDate),
		})
	}
	skills := make([]skillResponse, 0, len(resume.Skills))
	for _, sk := range resume.Skills {
		skills = append(skills, skillResponse{
			ID:    sk.ID,
			Name:  sk.Name,
			Level: sk.Level,
		})
	}
	return resumeResponse{
		ID:          resume.ID,
		Title:       resume.Title,
		Summary:     resume.Summary,
		Experiences: experiences,
		Educations:  educations,
		Skills:      skills,
		CreatedAt:   resume.CreatedAt,
		UpdatedAt:   resume.UpdatedAt,
	}
}

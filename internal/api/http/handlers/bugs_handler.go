package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/bug-tracker/internal/api/dto"
	"github.com/spec-kit/bug-tracker/internal/auth"
	"github.com/spec-kit/bug-tracker/internal/domain"
	"github.com/spec-kit/bug-tracker/internal/service"
	apperrors "github.com/spec-kit/bug-tracker/pkg/util"
)

// BugsHandler manages bug lifecycle endpoints.
type BugsHandler struct {
	service *service.LifecycleService
}

// NewBugsHandler constructs handler.
func NewBugsHandler(lifecycleService *service.LifecycleService) *BugsHandler {
	return &BugsHandler{service: lifecycleService}
}

// CreateBug POST /bugs.
func (h *BugsHandler) CreateBug(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateBugRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.BugCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Severity:    req.Severity,
	}
	bug, err := h.service.CreateBug(c.Context(), principal.User, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": bugSummaryPlain(bug, principal.User)})
}

// ListBugs GET /bugs.
func (h *BugsHandler) ListBugs(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	filter := parseBugQuery(c)
	page, err := h.service.ListBugs(c.Context(), principal.User, filter)
	if err != nil {
		return err
	}

	items := make([]dto.BugSummary, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, bugSummary(&page.Items[i]))
	}
	return c.JSON(fiber.Map{"data": dto.BugPageResponse{
		Items:    items,
		Total:    page.Total,
		Page:     page.Page,
		PageSize: page.PageSize,
	}})
}

// GetBug GET /bugs/:id.
func (h *BugsHandler) GetBug(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	bug, err := h.service.GetBug(c.Context(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": bugDetail(bug)})
}

// AssignBug PUT /bugs/:id/assign.
func (h *BugsHandler) AssignBug(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.AssignBugRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.DeveloperID) == "" {
		return apperrors.NewValidationError("developer_id required", nil)
	}

	bug, err := h.service.AssignBug(c.Context(), principal.User, c.Params("id"), req.DeveloperID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": bugSummaryPlain(bug, nil)})
}

// ChangeStatus PUT /bugs/:id/status.
func (h *BugsHandler) ChangeStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.ChangeStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status == "" {
		return apperrors.NewValidationError("status required", nil)
	}

	bug, err := h.service.ChangeStatus(c.Context(), principal.User, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": bugSummaryPlain(bug, nil)})
}

// DeleteBug DELETE /bugs/:id.
func (h *BugsHandler) DeleteBug(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	if err := h.service.DeleteBug(c.Context(), principal.User, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": true}})
}

// ListHistory GET /bugs/:id/history.
func (h *BugsHandler) ListHistory(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	entries, err := h.service.ListHistory(c.Context(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}

	items := make([]dto.HistoryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, historyResponse(&entries[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func parseBugQuery(c *fiber.Ctx) service.BugListFilter {
	filter := service.BugListFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.BugStatus(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.BugPriority(strings.TrimSpace(part)))
		}
	}
	if severityStr := c.Query("severity"); severityStr != "" {
		for _, part := range strings.Split(severityStr, ",") {
			filter.Severities = append(filter.Severities, domain.BugSeverity(strings.TrimSpace(part)))
		}
	}
	filter.Page = parseInt(c.Query("page"), 1)
	filter.PageSize = parseInt(c.Query("page_size"), 10)
	return filter
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func userRef(ref *domain.UserRef) *dto.UserRefResponse {
	if ref == nil {
		return nil
	}
	return &dto.UserRefResponse{
		ID:          ref.ID,
		Username:    ref.Username,
		DisplayName: ref.DisplayName,
	}
}

func bugSummary(bug *service.BugWithRefs) dto.BugSummary {
	return dto.BugSummary{
		ID:        bug.ID,
		Title:     bug.Title,
		Status:    bug.Status,
		Priority:  bug.Priority,
		Severity:  bug.Severity,
		Creator:   userRef(bug.Creator),
		Assignee:  userRef(bug.Assignee),
		CreatedAt: bug.CreatedAt,
		UpdatedAt: bug.UpdatedAt,
	}
}

// bugSummaryPlain renders a bug without resolved refs; creator is filled from
// the actor when the bug was just filed by them.
func bugSummaryPlain(bug *domain.Bug, creator *domain.User) dto.BugSummary {
	summary := dto.BugSummary{
		ID:        bug.ID,
		Title:     bug.Title,
		Status:    bug.Status,
		Priority:  bug.Priority,
		Severity:  bug.Severity,
		CreatedAt: bug.CreatedAt,
		UpdatedAt: bug.UpdatedAt,
	}
	if creator != nil {
		ref := creator.Ref()
		summary.Creator = userRef(&ref)
	}
	return summary
}

func bugDetail(bug *service.BugWithRefs) dto.BugDetailResponse {
	return dto.BugDetailResponse{
		ID:          bug.ID,
		Title:       bug.Title,
		Description: bug.Description,
		Status:      bug.Status,
		Priority:    bug.Priority,
		Severity:    bug.Severity,
		Creator:     userRef(bug.Creator),
		Assignee:    userRef(bug.Assignee),
		CreatedAt:   bug.CreatedAt,
		UpdatedAt:   bug.UpdatedAt,
	}
}

func historyResponse(entry *service.HistoryEntry) dto.HistoryResponse {
	return dto.HistoryResponse{
		ID:        entry.ID,
		Action:    entry.Action,
		Actor:     userRef(entry.Actor),
		OldValue:  entry.OldValue,
		NewValue:  entry.NewValue,
		CreatedAt: entry.CreatedAt,
	}
}

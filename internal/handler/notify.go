package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/sitegate/notify-api/internal/model"
	"github.com/sitegate/notify-api/internal/service"
	"github.com/sitegate/notify-api/internal/store"
	"github.com/sitegate/notify-api/pkg/response"
)

type NotifyHandler struct {
	service   *service.NotifyService
	validator *validator.Validate
}

func NewNotifyHandler(svc *service.NotifyService, v *validator.Validate) *NotifyHandler {
	return &NotifyHandler{
		service:   svc,
		validator: v,
	}
}

// CreateBatch handles POST /api/notify/batch
func (h *NotifyHandler) CreateBatch(c *fiber.Ctx) error {
	var req model.CreateBatchRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	jobID, err := h.service.CreateBatch(c.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyBatch),
			errors.Is(err, service.ErrBatchTooLarge),
			errors.Is(err, service.ErrNoValidRecipients),
			errors.Is(err, service.ErrUnknownChannel):
			return response.ValidationError(c, err.Error(), nil)
		default:
			return response.ServiceError(c, err.Error())
		}
	}

	return response.Accepted(c, model.CreateBatchResponse{Success: true, JobID: jobID})
}

// Progress handles GET /api/notify/progress/:jobId
func (h *NotifyHandler) Progress(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	progress, err := h.service.Progress(jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Job not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, model.ProgressResponse{Success: true, Progress: progress})
}

// Cancel handles POST /api/notify/cancel/:jobId
func (h *NotifyHandler) Cancel(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	if err := h.service.Cancel(jobID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Job not found")
		}
		if errors.Is(err, store.ErrConflict) {
			return response.Conflict(c, "Job already finished")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, model.CancelResponse{Success: true, JobID: jobID})
}

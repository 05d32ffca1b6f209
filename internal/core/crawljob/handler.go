package crawljob

import (
	"mediacrawl/internal/core/job"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	job   *job.Service
	crawl *Service
}

func NewHandler(jobSvc *job.Service, crawlSvc *Service) *Handler {
	return &Handler{job: jobSvc, crawl: crawlSvc}
}

func (h *Handler) HandleCreate(c *fiber.Ctx) error {
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(SubmitResponse{Error: "invalid body"})
	}
	id, err := h.crawl.Submit(c.Context(), req)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(SubmitResponse{Error: err.Error()})
	}
	return c.JSON(SubmitResponse{Success: true, JobID: id})
}

func (h *Handler) HandleGet(c *fiber.Ctx) error {
	id := c.Params("jobId")
	rec, err := h.job.Get(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(SubmitResponse{Error: "not_found"})
	}
	return c.JSON(rec)
}

package handler

import (
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"

	"depsweep-go/internal/service"
	"depsweep-go/pkg/logger"
	"depsweep-go/pkg/pipeline"
	"depsweep-go/pkg/report"
)

// Controller exposes analysis and fix runs over HTTP.
type Controller struct {
	analyzer service.AnalyzerService
	fixer    service.FixService
	log      *logger.Logger
}

// NewController creates the HTTP controller.
func NewController(analyzer service.AnalyzerService, fixer service.FixService) *Controller {
	return &Controller{
		analyzer: analyzer,
		fixer:    fixer,
		log:      logger.GetLogger().WithField("component", "handler"),
	}
}

// Register mounts the controller's routes on the app.
func (c *Controller) Register(app *fiber.App) {
	app.Get("/health", c.health)
	api := app.Group("/api/v1")
	api.Post("/analyze", c.analyze)
	api.Post("/fix", c.fix)
	api.Get("/report", c.latestReport)
}

type runRequest struct {
	ProjectRoot string                   `json:"project_root"`
	Descriptors []pipeline.FixDescriptor `json:"descriptors,omitempty"`
}

func (c *Controller) health(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{"status": "ok"})
}

func (c *Controller) analyze(ctx *fiber.Ctx) error {
	req, err := c.parseRequest(ctx)
	if err != nil {
		return err
	}

	rep, err := c.analyzer.Analyze(ctx.Context(), req.ProjectRoot)
	if err != nil {
		c.log.WithError(err).Error("Analysis failed")
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return ctx.JSON(rep)
}

func (c *Controller) fix(ctx *fiber.Ctx) error {
	req, err := c.parseRequest(ctx)
	if err != nil {
		return err
	}

	rep, err := c.fixer.Fix(ctx.Context(), req.ProjectRoot, req.Descriptors)
	if err != nil {
		c.log.WithError(err).Error("Fix run failed")
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return ctx.JSON(rep)
}

// latestReport serves the report artifact written by the most recent run.
func (c *Controller) latestReport(ctx *fiber.Ctx) error {
	root := ctx.Query("project_root")
	if root == "" {
		return fiber.NewError(fiber.StatusBadRequest, "project_root query parameter is required")
	}

	path := filepath.Join(root, report.FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "no report found for project")
	}

	ctx.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return ctx.Send(data)
}

func (c *Controller) parseRequest(ctx *fiber.Ctx) (*runRequest, error) {
	var req runRequest
	if err := ctx.BodyParser(&req); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.ProjectRoot == "" {
		return nil, fiber.NewError(fiber.StatusBadRequest, "project_root is required")
	}
	return &req, nil
}

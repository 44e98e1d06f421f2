package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quantumlab/labtrack/internal/app/models"
	"github.com/quantumlab/labtrack/internal/app/models/dto"
	"github.com/quantumlab/labtrack/internal/app/services"
	"github.com/quantumlab/labtrack/internal/middleware"
)

// ExperimentController handles the experiment lifecycle for admins and assignees
type ExperimentController struct {
	experimentService *services.ExperimentService
}

// NewExperimentController creates a new ExperimentController
func NewExperimentController(experimentService *services.ExperimentService) *ExperimentController {
	return &ExperimentController{
		experimentService: experimentService,
	}
}

// CreateExperiment godoc
// @Summary Create an experiment
// @Description Creates a pending experiment, optionally assigned to a user who is then notified
// @Tags admin-experiments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateExperimentRequest true "Experiment details"
// @Success 201 {object} dto.StructuredResponse{data=models.Experiment} "Experiment created"
// @Failure 400 {object} dto.ErrorResponse "title is required"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /admin/experiments [post]
func (c *ExperimentController) CreateExperiment(ctx *gin.Context) {
	var req dto.CreateExperimentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	experiment, err := c.experimentService.Create(ctx.Request.Context(), actorFrom(ctx), req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewStructuredResponse(experiment, "Experiment created"))
}

// ListExperiments godoc
// @Summary List all experiments
// @Description Returns every experiment, newest first, with the assignee's name and email
// @Tags admin-experiments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.StructuredResponse{data=[]models.Experiment}
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /admin/experiments [get]
func (c *ExperimentController) ListExperiments(ctx *gin.Context) {
	experiments, err := c.experimentService.ListAll(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if experiments == nil {
		experiments = []*models.Experiment{}
	}

	ctx.JSON(http.StatusOK, dto.NewStructuredResponse(experiments, "Experiments retrieved successfully"))
}

// UpdateExperiment godoc
// @Summary Edit an experiment
// @Description Replaces the title and description of an experiment
// @Tags admin-experiments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Experiment ID"
// @Param request body dto.UpdateExperimentRequest true "New title and description"
// @Success 200 {object} dto.StructuredResponse{data=dto.IDResponse} "Experiment updated"
// @Failure 400 {object} dto.ErrorResponse "title is required"
// @Failure 404 {object} dto.ErrorResponse "Experiment not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /admin/experiments/{id} [put]
func (c *ExperimentController) UpdateExperiment(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "experiment")
	if !ok {
		return
	}

	var req dto.UpdateExperimentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	if err := c.experimentService.Update(ctx.Request.Context(), actorFrom(ctx), id, req); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewStructuredResponse(dto.IDResponse{ID: id}, "Experiment updated"))
}

// UpdateStatus godoc
// @Summary Set experiment status
// @Description Admins may move an experiment to any lifecycle state
// @Tags admin-experiments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Experiment ID"
// @Param request body dto.UpdateStatusRequest true "Target status"
// @Success 200 {object} dto.StructuredResponse{data=dto.StatusChangeResponse} "Status updated"
// @Failure 400 {object} dto.ErrorResponse "Invalid status value"
// @Failure 404 {object} dto.ErrorResponse "Experiment not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /admin/experiments/{id}/status [put]
func (c *ExperimentController) UpdateStatus(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "experiment")
	if !ok {
		return
	}

	var req dto.UpdateStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	if err := c.experimentService.UpdateStatus(ctx.Request.Context(), actorFrom(ctx), id, req.Status); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	resp := dto.StatusChangeResponse{ID: id, Status: req.Status}
	ctx.JSON(http.StatusOK, dto.NewStructuredResponse(resp, "Status updated"))
}

// AssignExperiment godoc
// @Summary Assign or reassign an experiment
// @Description Sets the assignee and notifies them. A null or empty assigned_to clears the assignment. Allowed in any state.
// @Tags admin-experiments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Experiment ID"
// @Param request body dto.AssignExperimentRequest true "Assignee"
// @Success 200 {object} dto.StructuredResponse{data=dto.AssignmentResponse} "Experiment assignment updated"
// @Failure 400 {object} dto.ErrorResponse "Invalid request format"
// @Failure 404 {object} dto.ErrorResponse "Experiment not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /admin/experiments/{id}/assign [put]
func (c *ExperimentController) AssignExperiment(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "experiment")
	if !ok {
		return
	}

	var req dto.AssignExperimentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	assignedTo := req.AssignedTo.Ptr()
	if err := c.experimentService.Assign(ctx.Request.Context(), actorFrom(ctx), id, assignedTo); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	resp := dto.AssignmentResponse{ID: id, AssignedTo: assignedTo}
	ctx.JSON(http.StatusOK, dto.NewStructuredResponse(resp, "Experiment assignment updated"))
}

// DeleteExperiment godoc
// @Summary Delete an experiment
// @Description Deletes the experiment with its files and reports, then removes its upload directory
// @Tags admin-experiments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Experiment ID"
// @Success 200 {object} dto.StructuredResponse{data=dto.IDResponse} "Experiment deleted"
// @Failure 404 {object} dto.ErrorResponse "Experiment not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /admin/experiments/{id} [delete]
func (c *ExperimentController) DeleteExperiment(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "experiment")
	if !ok {
		return
	}

	if err := c.experimentService.Delete(ctx.Request.Context(), actorFrom(ctx), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewStructuredResponse(dto.IDResponse{ID: id}, "Experiment deleted"))
}

// ListMyExperiments godoc
// @Summary List my experiments
// @Description Returns the experiments assigned to the caller, newest first
// @Tags user-experiments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.StructuredResponse{data=[]models.Experiment}
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /user/experiments [get]
func (c *ExperimentController) ListMyExperiments(ctx *gin.Context) {
	experiments, err := c.experimentService.ListMine(ctx.Request.Context(), actorFrom(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if experiments == nil {
		experiments = []*models.Experiment{}
	}

	ctx.JSON(http.StatusOK, dto.NewStructuredResponse(experiments, "Experiments retrieved successfully"))
}

// GetMyExperiment godoc
// @Summary Get one of my experiments
// @Tags user-experiments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Experiment ID"
// @Success 200 {object} dto.StructuredResponse{data=models.Experiment}
// @Failure 404 {object} dto.ErrorResponse "Experiment not found or not assigned to this user"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /user/experiments/{id} [get]
func (c *ExperimentController) GetMyExperiment(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "experiment")
	if !ok {
		return
	}

	experiment, err := c.experimentService.GetMine(ctx.Request.Context(), actorFrom(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewStructuredResponse(experiment, "Experiment retrieved successfully"))
}

// MarkDone godoc
// @Summary Mark my experiment as done
// @Description The assignee may only set status "done". Admins are notified.
// @Tags user-experiments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Experiment ID"
// @Param request body dto.UpdateStatusRequest true "Must be done"
// @Success 200 {object} dto.StructuredResponse{data=dto.StatusChangeResponse} "Experiment marked as done"
// @Failure 400 {object} dto.ErrorResponse "Users can only mark experiments as 'done'"
// @Failure 403 {object} dto.ErrorResponse "Experiment is approved"
// @Failure 404 {object} dto.ErrorResponse "Experiment not found or not assigned to this user"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /user/experiments/{id}/status [put]
func (c *ExperimentController) MarkDone(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "experiment")
	if !ok {
		return
	}

	// status is validated by the service so that a blank value gets the same message
	var req struct {
		Status string `json:"status"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	if err := c.experimentService.MarkDone(ctx.Request.Context(), actorFrom(ctx), id, req.Status); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	resp := dto.StatusChangeResponse{ID: id, Status: req.Status}
	ctx.JSON(http.StatusOK, dto.NewStructuredResponse(resp, "Experiment marked as done"))
}

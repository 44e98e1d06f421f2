package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quantumlab/labtrack/internal/app/models"
	"github.com/quantumlab/labtrack/internal/app/models/dto"
	"github.com/quantumlab/labtrack/internal/app/services"
	"github.com/quantumlab/labtrack/internal/middleware"
)

// FileController handles experiment attachments and reports
type FileController struct {
	fileService   *services.FileService
	reportService *services.ReportService
}

// NewFileController creates a new FileController
func NewFileController(fileService *services.FileService, reportService *services.ReportService) *FileController {
	return &FileController{
		fileService:   fileService,
		reportService: reportService,
	}
}

func fileList(files []*models.ExperimentFile) []*models.ExperimentFile {
	if files == nil {
		return []*models.ExperimentFile{}
	}
	return files
}

// UploadFile godoc
// @Summary Upload an experiment file
// @Description Stores a file for the experiment. Only the assignee or an admin may upload, and assignees cannot upload once the experiment is approved.
// @Tags experiment-files
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "Experiment ID"
// @Param file formData file true "File to upload"
// @Success 201 {object} dto.StructuredResponse{data=models.ExperimentFile} "File uploaded"
// @Failure 400 {object} dto.ErrorResponse "No file uploaded / File is too large"
// @Failure 403 {object} dto.ErrorResponse "Forbidden / experiment approved"
// @Failure 404 {object} dto.ErrorResponse "Experiment not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /experiments/{id}/files [post]
func (c *FileController) UploadFile(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "experiment")
	if !ok {
		return
	}

	file, err := c.fileService.Upload(ctx.Request.Context(), actorFrom(ctx), id, formUpload(ctx, "file", c.fileService.MaxUploadBytes()))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewStructuredResponse(file, "File uploaded"))
}

// ListFiles godoc
// @Summary List experiment files
// @Tags experiment-files
// @Produce json
// @Security BearerAuth
// @Param id path int true "Experiment ID"
// @Success 200 {object} dto.StructuredResponse{data=[]models.ExperimentFile}
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Failure 404 {object} dto.ErrorResponse "Experiment not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /experiments/{id}/files [get]
func (c *FileController) ListFiles(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "experiment")
	if !ok {
		return
	}

	files, err := c.fileService.List(ctx.Request.Context(), actorFrom(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewStructuredResponse(fileList(files), "Files retrieved successfully"))
}

// DeleteFile godoc
// @Summary Delete an experiment file
// @Tags experiment-files
// @Produce json
// @Security BearerAuth
// @Param id path int true "Experiment ID"
// @Param fileId path int true "File ID"
// @Success 200 {object} dto.StructuredResponse{data=dto.IDResponse} "File deleted"
// @Failure 403 {object} dto.ErrorResponse "Forbidden / experiment approved"
// @Failure 404 {object} dto.ErrorResponse "Experiment not found / File not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /experiments/{id}/files/{fileId} [delete]
func (c *FileController) DeleteFile(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "experiment")
	if !ok {
		return
	}
	fileID, ok := pathID(ctx, "fileId", "file")
	if !ok {
		return
	}

	if err := c.fileService.Delete(ctx.Request.Context(), actorFrom(ctx), id, fileID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewStructuredResponse(dto.IDResponse{ID: fileID}, "File deleted"))
}

// ListMyFiles godoc
// @Summary List files on my experiments
// @Description Every file attached to experiments assigned to the caller, newest first
// @Tags experiment-files
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.StructuredResponse{data=[]models.ExperimentFile}
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /experiments/user [get]
func (c *FileController) ListMyFiles(ctx *gin.Context) {
	files, err := c.fileService.ListForAssignee(ctx.Request.Context(), actorFrom(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewStructuredResponse(fileList(files), "Files retrieved successfully"))
}

// ListApprovedFiles godoc
// @Summary List files of approved experiments
// @Description Admin only. Also served at /experiments/admin/approved-files.
// @Tags experiment-files
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.StructuredResponse{data=[]models.ExperimentFile}
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /experiments/approved [get]
func (c *FileController) ListApprovedFiles(ctx *gin.Context) {
	files, err := c.fileService.ListApproved(ctx.Request.Context(), actorFrom(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewStructuredResponse(fileList(files), "Files retrieved successfully"))
}

// UpsertReport godoc
// @Summary Save my report
// @Description Creates or replaces the caller's report for the experiment. Locked once approved unless admin.
// @Tags experiment-reports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Experiment ID"
// @Param request body dto.ReportRequest true "Report fields"
// @Success 200 {object} dto.StructuredResponse{data=models.ExperimentReport} "Report saved"
// @Failure 400 {object} dto.ErrorResponse "At least one field is required"
// @Failure 403 {object} dto.ErrorResponse "Forbidden / experiment approved"
// @Failure 404 {object} dto.ErrorResponse "Experiment not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /experiments/{id}/report [post]
func (c *FileController) UpsertReport(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "experiment")
	if !ok {
		return
	}

	var req dto.ReportRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	report, err := c.reportService.Upsert(ctx.Request.Context(), actorFrom(ctx), id, req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewStructuredResponse(report, "Report saved"))
}

// GetReport godoc
// @Summary Get the experiment report
// @Description Admins get the most recently updated report; assignees get their own. Data is null when none exists.
// @Tags experiment-reports
// @Produce json
// @Security BearerAuth
// @Param id path int true "Experiment ID"
// @Success 200 {object} dto.StructuredResponse{data=models.ExperimentReport}
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Failure 404 {object} dto.ErrorResponse "Experiment not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /experiments/{id}/report [get]
func (c *FileController) GetReport(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "experiment")
	if !ok {
		return
	}

	report, err := c.reportService.Get(ctx.Request.Context(), actorFrom(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewStructuredResponse(report, "Report retrieved successfully"))
}

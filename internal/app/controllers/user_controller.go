package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quantumlab/labtrack/internal/app/models"
	"github.com/quantumlab/labtrack/internal/app/models/dto"
	"github.com/quantumlab/labtrack/internal/app/services"
	"github.com/quantumlab/labtrack/internal/middleware"
)

// UserController handles account administration and the caller's own settings
type UserController struct {
	userService services.UserService
}

// NewUserController creates a new user controller
func NewUserController(userService services.UserService) *UserController {
	return &UserController{
		userService: userService,
	}
}

// CreateUser godoc
// @Summary Create a user
// @Description Creates an active account with the given role
// @Tags admin-users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateUserRequest true "Account details"
// @Success 201 {object} dto.StructuredResponse{data=models.User} "User created"
// @Failure 400 {object} dto.ErrorResponse "Validation error"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Failure 409 {object} dto.ErrorResponse "Email already exists"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /admin/create-user [post]
func (c *UserController) CreateUser(ctx *gin.Context) {
	var req dto.CreateUserRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	user, err := c.userService.CreateUser(ctx.Request.Context(), actorFrom(ctx), req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewStructuredResponse(user, "User created"))
}

// ListUsers godoc
// @Summary List users
// @Tags admin-users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.StructuredResponse{data=[]models.User}
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /admin/users [get]
func (c *UserController) ListUsers(ctx *gin.Context) {
	users, err := c.userService.ListUsers(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if users == nil {
		users = []*models.User{}
	}

	ctx.JSON(http.StatusOK, dto.NewStructuredResponse(users, "Users retrieved successfully"))
}

// UpdateUserStatus godoc
// @Summary Activate or deactivate a user
// @Description Also served at /admin/users/{id}/status and /admin/toggle-status/{id}
// @Tags admin-users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body dto.UpdateUserStatusRequest true "New status"
// @Success 200 {object} dto.StructuredResponse{data=dto.IDResponse} "User status updated"
// @Failure 400 {object} dto.ErrorResponse "Invalid status value"
// @Failure 404 {object} dto.ErrorResponse "User not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /admin/users/{id} [put]
func (c *UserController) UpdateUserStatus(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "user")
	if !ok {
		return
	}

	var req dto.UpdateUserStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	if err := c.userService.UpdateStatus(ctx.Request.Context(), actorFrom(ctx), id, req.Status); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewStructuredResponse(dto.IDResponse{ID: id}, "User status updated"))
}

// ResetPassword godoc
// @Summary Reset a user's password
// @Tags admin-users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body dto.ResetPasswordRequest true "New password"
// @Success 200 {object} dto.StructuredResponse{data=dto.IDResponse} "Password reset"
// @Failure 400 {object} dto.ErrorResponse "Validation error"
// @Failure 404 {object} dto.ErrorResponse "User not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /admin/users/{id}/password [put]
func (c *UserController) ResetPassword(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "user")
	if !ok {
		return
	}

	var req dto.ResetPasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	if err := c.userService.ResetPassword(ctx.Request.Context(), actorFrom(ctx), id, req.Password); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewStructuredResponse(dto.IDResponse{ID: id}, "Password reset"))
}

// DeleteUser godoc
// @Summary Delete a user
// @Tags admin-users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} dto.StructuredResponse{data=dto.IDResponse} "User deleted"
// @Failure 400 {object} dto.ErrorResponse "You cannot delete your own account"
// @Failure 404 {object} dto.ErrorResponse "User not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /admin/users/{id} [delete]
func (c *UserController) DeleteUser(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "user")
	if !ok {
		return
	}

	if err := c.userService.DeleteUser(ctx.Request.Context(), actorFrom(ctx), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewStructuredResponse(dto.IDResponse{ID: id}, "User deleted"))
}

// GetProfile godoc
// @Summary Get my profile
// @Tags settings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.StructuredResponse{data=dto.ProfileResponse}
// @Failure 404 {object} dto.ErrorResponse "User not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /user/profile [get]
// @Router /admin/profile [get]
func (c *UserController) GetProfile(ctx *gin.Context) {
	profile, err := c.userService.GetProfile(ctx.Request.Context(), actorFrom(ctx), requestBaseURL(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewStructuredResponse(profile, "Profile retrieved successfully"))
}

// UpdateProfile godoc
// @Summary Update my profile
// @Tags settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.UpdateProfileRequest true "Name and phone"
// @Success 200 {object} dto.StructuredResponse "Profile updated"
// @Failure 400 {object} dto.ErrorResponse "No fields to update"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /user/profile [put]
// @Router /admin/profile [put]
func (c *UserController) UpdateProfile(ctx *gin.Context) {
	var req dto.UpdateProfileRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	actor := actorFrom(ctx)
	if err := c.userService.UpdateProfile(ctx.Request.Context(), actor, req); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewStructuredResponse(dto.IDResponse{ID: actor.ID}, "Profile updated"))
}

// ChangePassword godoc
// @Summary Change my password
// @Tags settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ChangePasswordRequest true "Current and new password"
// @Success 200 {object} dto.StructuredResponse "Password updated"
// @Failure 400 {object} dto.ErrorResponse "Current password is incorrect"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /user/change-password [put]
// @Router /admin/change-password [put]
func (c *UserController) ChangePassword(ctx *gin.Context) {
	var req dto.ChangePasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	actor := actorFrom(ctx)
	if err := c.userService.ChangePassword(ctx.Request.Context(), actor, req); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewStructuredResponse(dto.IDResponse{ID: actor.ID}, "Password updated"))
}

// UploadAvatar godoc
// @Summary Upload my avatar
// @Description Accepts jpeg, png, gif or webp images up to 5MB
// @Tags settings
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param avatar formData file true "Image"
// @Success 200 {object} dto.StructuredResponse{data=dto.AvatarResponse} "Avatar updated"
// @Failure 400 {object} dto.ErrorResponse "Only image files are allowed / File is too large"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /user/avatar [post]
// @Router /admin/avatar [post]
func (c *UserController) UploadAvatar(ctx *gin.Context) {
	resp, err := c.userService.UploadAvatar(ctx.Request.Context(), actorFrom(ctx), formUpload(ctx, "avatar", services.MaxAvatarBytes), requestBaseURL(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewStructuredResponse(resp, "Avatar updated"))
}

// GetPrefs godoc
// @Summary Get my notification preferences
// @Tags settings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.StructuredResponse{data=object}
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /user/notifications/prefs [get]
// @Router /admin/notifications/prefs [get]
func (c *UserController) GetPrefs(ctx *gin.Context) {
	prefs, err := c.userService.GetPrefs(ctx.Request.Context(), actorFrom(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewStructuredResponse(prefs, "Preferences retrieved"))
}

// UpdatePrefs godoc
// @Summary Save my notification preferences
// @Description The body is stored as-is and must be a JSON object
// @Tags settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object true "Preferences"
// @Success 200 {object} dto.StructuredResponse{data=object} "Preferences saved"
// @Failure 400 {object} dto.ErrorResponse "Preferences must be a JSON object"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /user/notifications/prefs [put]
// @Router /admin/notifications/prefs [put]
func (c *UserController) UpdatePrefs(ctx *gin.Context) {
	raw, err := ctx.GetRawData()
	if err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	prefs := json.RawMessage(raw)
	if err := c.userService.UpdatePrefs(ctx.Request.Context(), actorFrom(ctx), prefs); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewStructuredResponse(prefs, "Preferences saved"))
}

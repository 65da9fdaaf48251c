package handler

import (
	"errors"
	"net/http"

	"github.com/bookkeeper/backend/internal/domain/shared"
	"github.com/bookkeeper/backend/internal/infrastructure/logger"
	"github.com/bookkeeper/backend/internal/interfaces/http/dto"
	"github.com/bookkeeper/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a 200 response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error envelope with an explicit status
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponse(code, message, middleware.GetRequestID(c)))
}

// HandleError maps err to a status and envelope. Domain messages are shown
// as they are; anything else is reported as an internal error and logged.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)

	status := dto.GetHTTPStatus(err)

	var domainErr *shared.DomainError
	if !errors.As(err, &domainErr) {
		logger.GetGinLogger(c).Error("Unhandled error", zap.Error(err))
		h.Error(c, status, dto.ErrCodeInternal, "An unexpected error occurred")
		return
	}

	if domainErr.Kind == shared.KindInfrastructure {
		logger.GetGinLogger(c).Error("Request failed",
			zap.String("code", domainErr.Code),
			zap.Error(err),
		)
	}
	h.Error(c, status, domainErr.Code, domainErr.Message)
}

// requireOwner returns the authenticated owner or writes a 401
func (h *BaseHandler) requireOwner(c *gin.Context) (uuid.UUID, bool) {
	ownerID := middleware.GetOwnerID(c)
	if ownerID == uuid.Nil {
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Authentication required")
		return uuid.Nil, false
	}
	return ownerID, true
}

// pathID parses the :id path parameter or writes a 400
func (h *BaseHandler) pathID(c *gin.Context) (uuid.UUID, bool) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return uuid.Nil, false
	}
	return uuid.MustParse(req.ID), true
}

// bindJSON decodes the request body or writes a 400
func (h *BaseHandler) bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// ownerAndID resolves the owner and :id of a document route
func (h *BaseHandler) ownerAndID(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	ownerID, ok := h.requireOwner(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	id, ok := h.pathID(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return ownerID, id, true
}

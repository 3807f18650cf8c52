package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	searchalertdomain "github.com/smallbiznis/horecaalert/internal/searchalert/domain"
	"github.com/smallbiznis/horecaalert/pkg/db/pagination"
)

const maxAlertPayloadBytes = 64 << 10

type setActiveRequest struct {
	Active *bool `json:"active"`
}

func (s *Server) CreateSearchAlert(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxAlertPayloadBytes))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if err := s.validator.ValidateCreate(raw); err != nil {
		AbortWithError(c, err)
		return
	}

	var req searchalertdomain.CreateRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.alertSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListSearchAlerts(c *gin.Context) {
	var query struct {
		pagination.Pagination
		UserID string `form:"user_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	userID := strings.TrimSpace(query.UserID)
	if userID == "" {
		AbortWithError(c, newValidationError("user_id", "required", "user_id is required"))
		return
	}

	resp, err := s.alertSvc.ListByUser(c.Request.Context(), searchalertdomain.ListRequest{
		UserID:    userID,
		PageToken: query.PageToken,
		PageSize:  query.PageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SetSearchAlertActive(c *gin.Context) {
	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.Active == nil {
		AbortWithError(c, newValidationError("active", "required", "active is required"))
		return
	}

	resp, err := s.alertSvc.SetActive(c.Request.Context(), c.Param("id"), *req.Active)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteSearchAlert(c *gin.Context) {
	if err := s.alertSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

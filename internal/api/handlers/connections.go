package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/merchanthub/omsapi/internal/api/middleware"
	"github.com/merchanthub/omsapi/internal/domain"
	"github.com/merchanthub/omsapi/internal/service"
)

// HandleCreateConnection handles POST /v1/connections
func HandleCreateConnection(connections *service.ConnectionService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.GetUserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req service.CreateConnectionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
			return
		}

		conn, err := connections.Add(c.Request.Context(), user.ID, &req)
		if err != nil {
			writeError(c, logger, err)
			return
		}

		c.JSON(http.StatusCreated, service.NewConnectionResponse(conn))
	}
}

// HandleListConnections handles GET /v1/connections
func HandleListConnections(connections *service.ConnectionService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.GetUserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		conns, err := connections.List(c.Request.Context(), user.ID)
		if err != nil {
			writeError(c, logger, err)
			return
		}

		responses := make([]*service.ConnectionResponse, len(conns))
		for i, conn := range conns {
			responses[i] = service.NewConnectionResponse(conn)
		}
		c.JSON(http.StatusOK, gin.H{"connections": responses})
	}
}

// HandleGetConnection handles GET /v1/connections/:id
func HandleGetConnection(connections *service.ConnectionService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.GetUserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid connection ID"})
			return
		}

		conn, err := connections.Get(c.Request.Context(), user.ID, id)
		if err != nil {
			writeError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, service.NewConnectionResponse(conn))
	}
}

// HandleUpdateConnection handles PATCH /v1/connections/:id
func HandleUpdateConnection(connections *service.ConnectionService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.GetUserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid connection ID"})
			return
		}

		var req service.UpdateConnectionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
			return
		}

		conn, err := connections.Update(c.Request.Context(), user.ID, id, &req)
		if err != nil {
			writeError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, service.NewConnectionResponse(conn))
	}
}

// HandleDeleteConnection handles DELETE /v1/connections/:id
func HandleDeleteConnection(connections *service.ConnectionService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.GetUserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid connection ID"})
			return
		}

		if err := connections.Delete(c.Request.Context(), user.ID, id); err != nil {
			writeError(c, logger, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// HandleTestConnection handles POST /v1/connections/:id/test
func HandleTestConnection(connections *service.ConnectionService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.GetUserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid connection ID"})
			return
		}

		result, err := connections.Test(c.Request.Context(), user.ID, id)
		if err != nil {
			writeError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

// HandleSyncConnection handles POST /v1/connections/:id/sync
func HandleSyncConnection(connections *service.ConnectionService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.GetUserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid connection ID"})
			return
		}

		var req service.SyncRequest
		if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
			return
		}

		result, err := connections.Sync(c.Request.Context(), user.ID, id, &req)
		if err != nil {
			writeError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

// HandleSyncAll handles POST /v1/connections/sync
func HandleSyncAll(connections *service.ConnectionService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.GetUserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req service.SyncRequest
		if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
			return
		}

		results, err := connections.SyncAll(c.Request.Context(), user.ID, &req)
		if err != nil {
			writeError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"results": results})
	}
}

// HandleCredentialFields handles GET /v1/platforms/:type/credential-fields
func HandleCredentialFields(connections *service.ConnectionService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		platform := domain.PlatformType(c.Param("type"))

		fields, err := connections.CredentialFields(platform)
		if err != nil {
			writeError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"platform_type":     platform,
			"credential_fields": fields,
		})
	}
}

package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/princinho/storefront/dto"
	"github.com/princinho/storefront/utils"
)

// POST /admin/users
func (a *App) CreateUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.RegisterUserDTO
		if !bindJSON(c, &body) {
			return
		}

		user, err := a.Users.CreateAdmin(c.Request.Context(), body)
		if err != nil {
			respondError(c, "admin.users.create", err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"id":        user.ID,
			"email":     user.Email,
			"role":      user.Role,
			"isActive":  user.IsActive,
			"createdAt": user.CreatedAt,
			"updatedAt": user.UpdatedAt,
		})
	}
}

// POST /admin/users/me/password
func (a *App) ChangeMyPassword() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.ChangeMyPasswordDTO
		if !bindJSON(c, &body) {
			return
		}
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		if err := a.Users.ChangePassword(c.Request.Context(), userID, body.CurrentPassword, body.NewPassword); err != nil {
			respondError(c, "admin.users.password", err)
			return
		}

		utils.ClearRefreshCookie(c, a.Cookies)
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

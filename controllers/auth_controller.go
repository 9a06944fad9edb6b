package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/princinho/storefront/dto"
	"github.com/princinho/storefront/services"
	"github.com/princinho/storefront/utils"
)

func (a *App) writeSession(c *gin.Context, status int, s *services.Session) {
	utils.SetRefreshCookie(c, a.Cookies, s.RefreshToken, a.Users.RefreshTTL())
	c.JSON(status, gin.H{
		"accessToken": s.AccessToken,
		"user":        s.User,
	})
}

func (a *App) Login() gin.HandlerFunc {
	return func(c *gin.Context) {
		var in dto.LoginDTO
		if !bindJSON(c, &in) {
			return
		}
		session, err := a.Users.Login(c.Request.Context(), in.Email, in.Password)
		if err != nil {
			respondError(c, "auth.login", err)
			return
		}
		a.writeSession(c, http.StatusOK, session)
	}
}

// Register opens a customer account and signs it in.
func (a *App) Register() gin.HandlerFunc {
	return func(c *gin.Context) {
		var in dto.RegisterUserDTO
		if !bindJSON(c, &in) {
			return
		}
		ctx := c.Request.Context()
		if _, err := a.Users.Register(ctx, in); err != nil {
			respondError(c, "auth.register", err)
			return
		}
		session, err := a.Users.Login(ctx, in.Email, in.Password)
		if err != nil {
			respondError(c, "auth.register", err)
			return
		}
		a.writeSession(c, http.StatusCreated, session)
	}
}

func (a *App) Refresh() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(utils.RefreshCookieName)
		if err != nil || token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing refresh token"})
			return
		}
		session, err := a.Users.Refresh(c.Request.Context(), token)
		if err != nil {
			utils.ClearRefreshCookie(c, a.Cookies)
			respondError(c, "auth.refresh", err)
			return
		}
		a.writeSession(c, http.StatusOK, session)
	}
}

func (a *App) Logout() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(utils.RefreshCookieName)
		utils.ClearRefreshCookie(c, a.Cookies)
		a.Users.Logout(c.Request.Context(), token)
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

func (a *App) Me() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		user, err := a.Users.Profile(c.Request.Context(), userID)
		if err != nil {
			respondError(c, "users.me", err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

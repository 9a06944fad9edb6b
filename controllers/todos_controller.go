package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/princinho/storefront/apperrors"
	"github.com/princinho/storefront/dto"
	"github.com/princinho/storefront/utils"
)

func (a *App) GetTodos() gin.HandlerFunc {
	return func(c *gin.Context) {
		done, err := utils.ParseBoolQuery(c.Query("done"))
		if err != nil {
			respondError(c, "admin.todos.list", apperrors.Invalid("done", "must be true or false"))
			return
		}
		items, err := a.Todos.List(c.Request.Context(), done)
		if err != nil {
			respondError(c, "admin.todos.list", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}

func (a *App) AddTodo() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		var body dto.CreateTodoDTO
		if !bindJSON(c, &body) {
			return
		}
		todo, err := a.Todos.Create(c.Request.Context(), userID, body)
		if err != nil {
			respondError(c, "admin.todos.create", err)
			return
		}
		c.JSON(http.StatusCreated, todo)
	}
}

func (a *App) UpdateTodo() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		var body dto.UpdateTodoDTO
		if !bindJSON(c, &body) {
			return
		}
		if err := a.Todos.Update(c.Request.Context(), id, body); err != nil {
			respondError(c, "admin.todos.update", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

func (a *App) DeleteTodo() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		if err := a.Todos.Delete(c.Request.Context(), id); err != nil {
			respondError(c, "admin.todos.delete", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": true})
	}
}

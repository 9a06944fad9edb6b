package dto

type CreateTodoDTO struct {
	Title string `json:"title" binding:"required,max=500"`
}

type UpdateTodoDTO struct {
	Title *string `json:"title" binding:"omitempty,max=500"`
	Done  *bool   `json:"done"`
}

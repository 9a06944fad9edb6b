package dto

// CreateCategoryDTO slug is always derived from Name.
type CreateCategoryDTO struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// UpdateCategoryDTO fields are optional pointers
type UpdateCategoryDTO struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type CreateSubcategoryDTO struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type UpdateSubcategoryDTO struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

package api

type ErrorResponse struct {
	Error string `json:"error" example:"something went wrong"`
}

type MessageResponse struct {
	Message string `json:"message" example:"ok"`
}

type HealthResponse struct {
	Status string            `json:"status" example:"ok"`
	Checks map[string]string `json:"checks,omitempty"`
}

type FieldError struct {
	Field   string `json:"field" example:"phone"`
	Tag     string `json:"tag" example:"required"`
	Message string `json:"message" example:"phone is required"`
}

type ValidationErrorResponse struct {
	Error   string       `json:"error" example:"validation failed"`
	Details []FieldError `json:"details"`
}

// Page is the envelope for paginated lists. Page numbers start at 1.
type Page[T any] struct {
	Data       []T `json:"data"`
	Page       int `json:"page" example:"1"`
	Limit      int `json:"limit" example:"10"`
	Total      int `json:"total" example:"25"`
	TotalPages int `json:"totalPages" example:"3"`
}

func NewPage[T any](data []T, page, limit, total int) Page[T] {
	if data == nil {
		data = []T{}
	}
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Page[T]{Data: data, Page: page, Limit: limit, Total: total, TotalPages: totalPages}
}

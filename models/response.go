package models

type RegisterSuccessResponse struct {
	Message string `json:"message" example:"User registered successfully"`
	UserID  string `json:"user_id" example:"507f1f77bcf86cd799439011"`
}

type LoginSuccessResponse struct {
	Message string `json:"message" example:"Login successful"`
	Token   string `json:"token" example:"v2.local.Ft9QcxZhJXEYyb7-bMM..."`
	UserID  string `json:"user_id" example:"507f1f77bcf86cd799439011"`
	Role    string `json:"role" example:"security"`
}

type ErrorResponse struct {
	Error   string `json:"error" example:"Invalid request body"`
	Details string `json:"details,omitempty" example:"validation failed"`
}

type ValidationErrorResponse struct {
	Error       string   `json:"error" example:"Please fill out all the fields!"`
	EmptyFields []string `json:"empty_fields,omitempty" example:"visitor,valid_from"`
	Errors      any      `json:"errors,omitempty"`
}

type UnauthorizedErrorResponse struct {
	Error string `json:"error" example:"Missing or malformed token"`
}

type ForbiddenErrorResponse struct {
	Error string `json:"error" example:"Access denied for this role"`
}

type NotFoundErrorResponse struct {
	Error string `json:"error" example:"Pass not found"`
}

type MessageResponse struct {
	Message string `json:"message" example:"Pass deleted successfully"`
}

type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total" example:"10"`
}

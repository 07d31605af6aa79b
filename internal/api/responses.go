package api

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// Pagination mirrors the envelope the frontend expects on list endpoints.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type SuccessResponse struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Data       interface{} `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

type ErrorResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message" example:"something went wrong"`
	Errors  interface{} `json:"errors,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(200, SuccessResponse{Success: true, Data: data})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(201, SuccessResponse{Success: true, Data: data})
}

func OKWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(200, SuccessResponse{Success: true, Message: message, Data: data})
}

func Paginated(c *gin.Context, data interface{}, p Pagination) {
	c.JSON(200, SuccessResponse{Success: true, Data: data, Pagination: &p})
}

func Error(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Success: false, Message: message})
}

func ValidationFailed(c *gin.Context, errors interface{}) {
	c.JSON(400, ErrorResponse{Success: false, Message: "Validation error", Errors: errors})
}

// InsufficientCoins renders the 402 payload returned by coin-gated operations.
func InsufficientCoins(c *gin.Context, message string, required, available int64) {
	c.JSON(402, ErrorResponse{
		Success: false,
		Message: message,
		Data: gin.H{
			"required":  required,
			"available": available,
			"shortfall": required - available,
		},
	})
}

func NewPagination(page, limit, total int) Pagination {
	if limit <= 0 {
		limit = 1
	}
	totalPages := total / limit
	if total%limit != 0 {
		totalPages++
	}
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: totalPages}
}

// PageQuery parses ?page= and ?limit=, clamping both so a zero, negative or
// oversized limit never reaches the repositories.
func PageQuery(c *gin.Context, defaultLimit int) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = defaultLimit
	}
	return page, limit
}

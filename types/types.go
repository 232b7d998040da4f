package types

type LifecycleManager interface {
	Start() error
	Stop() error
	IsRunning() bool
}

type StatusTag string

const (
	StatusSafe    StatusTag = "safe"
	StatusWarning StatusTag = "warning"
	StatusDanger  StatusTag = "danger"
)

func (s StatusTag) Valid() bool {
	switch s {
	case StatusSafe, StatusWarning, StatusDanger:
		return true
	}
	return false
}

type PaginatedResponse struct {
	Items      interface{} `json:"items"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int64       `json:"total_pages"`
}

func NewPaginatedResponse(items interface{}, total int64, page, limit int) *PaginatedResponse {
	totalPages := total / int64(limit)
	if total%int64(limit) != 0 {
		totalPages++
	}

	return &PaginatedResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}
}

type MessageResponse struct {
	Message string `json:"message"`
}

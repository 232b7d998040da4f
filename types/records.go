package types

import (
	"time"
)

const (
	TableCategories      = "categories"
	TableCollections     = "collections"
	TableGroups          = "groups"
	TableAttachmentTypes = "attachment_types"
	TableAttachments     = "attachments"
	TableTimedCodes      = "timed_codes"
)

type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	SortOrder   int       `json:"sort_order"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Collection struct {
	ID          string    `json:"id"`
	CategoryID  string    `json:"category_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Category    *Category `json:"category,omitempty"`
	GroupCount  int       `json:"group_count"`
}

type Group struct {
	ID           string       `json:"id"`
	CollectionID string       `json:"collection_id"`
	Name         string       `json:"name"`
	Description  string       `json:"description,omitempty"`
	SortOrder    int          `json:"sort_order"`
	IsActive     bool         `json:"is_active"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	Attachments  []Attachment `json:"attachments,omitempty"`
	TimedCodes   []TimedCode  `json:"timed_codes,omitempty"`
}

type AttachmentType struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	FieldType string    `json:"field_type"`
	HasExpiry bool      `json:"has_expiry"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Attachment struct {
	ID               string          `json:"id"`
	GroupID          string          `json:"group_id"`
	AttachmentTypeID string          `json:"attachment_type_id"`
	Value            string          `json:"value"`
	ExpiryDays       *int            `json:"expiry_days"`
	ExpiryDate       *time.Time      `json:"expiry_date"`
	IsActive         bool            `json:"is_active"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	AttachmentType   *AttachmentType `json:"attachment_type,omitempty"`
	ExpiryStatus     *StatusTag      `json:"expiry_status"`
	DaysRemaining    *int            `json:"days_remaining"`
}

type TimedCode struct {
	ID            string     `json:"id"`
	GroupID       string     `json:"group_id"`
	CodeText      string     `json:"code_text"`
	ExpiryDays    *int       `json:"expiry_days"`
	ExpiryDate    *time.Time `json:"expiry_date"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	ExpiryStatus  *StatusTag `json:"expiry_status"`
	DaysRemaining *int       `json:"days_remaining"`
}

type CreateCategoryRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=100"`
	Description string `json:"description" validate:"max=500"`
	SortOrder   *int   `json:"sort_order" validate:"omitempty,min=0"`
}

type UpdateCategoryRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	SortOrder   *int    `json:"sort_order" validate:"omitempty,min=0"`
}

type CreateCollectionRequest struct {
	CategoryID  string `json:"category_id" validate:"required,uuid4"`
	Name        string `json:"name" validate:"required,min=1,max=100"`
	Description string `json:"description" validate:"max=500"`
}

type UpdateCollectionRequest struct {
	CategoryID  *string `json:"category_id" validate:"omitempty,uuid4"`
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

type CreateGroupRequest struct {
	CollectionID string `json:"collection_id" validate:"required,uuid4"`
	Name         string `json:"name" validate:"required,min=1,max=100"`
	Description  string `json:"description" validate:"max=500"`
	SortOrder    *int   `json:"sort_order" validate:"omitempty,min=0"`
}

type UpdateGroupRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	SortOrder   *int    `json:"sort_order" validate:"omitempty,min=0"`
}

type ReorderGroupsRequest struct {
	Items []ReorderGroupItem `json:"items" validate:"required,min=1,dive"`
}

type ReorderGroupItem struct {
	ID        string `json:"id" validate:"required,uuid4"`
	SortOrder int    `json:"sort_order" validate:"min=0"`
}

type CreateAttachmentTypeRequest struct {
	Name      string `json:"name" validate:"required,min=1,max=100"`
	FieldType string `json:"field_type" validate:"required,oneof=text url"`
	HasExpiry bool   `json:"has_expiry"`
}

type UpdateAttachmentTypeRequest struct {
	Name      *string `json:"name" validate:"omitempty,min=1,max=100"`
	FieldType *string `json:"field_type" validate:"omitempty,oneof=text url"`
	HasExpiry *bool   `json:"has_expiry"`
}

type CreateAttachmentRequest struct {
	GroupID          string `json:"group_id" validate:"required,uuid4"`
	AttachmentTypeID string `json:"attachment_type_id" validate:"required,uuid4"`
	Value            string `json:"value" validate:"required,min=1"`
	ExpiryDays       *int   `json:"expiry_days" validate:"omitempty,min=1"`
}

type UpdateAttachmentRequest struct {
	AttachmentTypeID *string `json:"attachment_type_id" validate:"omitempty,uuid4"`
	Value            *string `json:"value" validate:"omitempty,min=1"`
	ExpiryDays       *int    `json:"expiry_days" validate:"omitempty,min=1"`
}

type CreateTimedCodeRequest struct {
	GroupID    string `json:"group_id" validate:"required,uuid4"`
	CodeText   string `json:"code_text" validate:"required,min=1,max=1000"`
	ExpiryDays int    `json:"expiry_days" validate:"required,min=1"`
}

type UpdateTimedCodeRequest struct {
	CodeText   *string `json:"code_text" validate:"omitempty,min=1,max=1000"`
	ExpiryDays *int    `json:"expiry_days" validate:"omitempty,min=1"`
}

type BulkCreateTimedCodesRequest struct {
	Items []CreateTimedCodeRequest `json:"items" validate:"required,min=1,max=100,dive"`
}

type BulkDeleteTimedCodesRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,max=100,dive,uuid4"`
}

type BulkResult struct {
	Count int `json:"count"`
}

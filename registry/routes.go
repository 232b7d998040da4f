package registry

import (
	"time"

	"github.com/saiset-co/sai-registry/types"
)

// RegisterRoutes declares the record routes. GET routes fall under the
// default cache policy; every write names the read prefixes it renders
// stale. Cascading deletes also invalidate from the lifecycle manager, so
// the declarations here only need to cover direct writes.
func (r *Registry) RegisterRoutes(router types.HTTPRouter) {
	categories := []string{"/api/categories", "/api/collections"}
	collections := []string{"/api/collections", "/api/groups"}
	groups := []string{"/api/groups", "/api/collections"}
	attachmentTypes := []string{"/api/attachment-types", "/api/attachments", "/api/groups", "/api/collections"}
	attachments := []string{"/api/attachments", "/api/groups", "/api/collections"}
	codes := []string{"/api/codes", "/api/groups", "/api/collections"}

	router.GET("/api/categories", r.HandleListCategories)
	router.GET("/api/categories/{id}", r.HandleGetCategory)
	router.POST("/api/categories", r.HandleCreateCategory).WithInvalidate(categories...)
	router.PUT("/api/categories/{id}", r.HandleUpdateCategory).WithInvalidate(categories...)
	router.DELETE("/api/categories/{id}", r.HandleDeleteCategory).WithInvalidate(categories...)

	router.GET("/api/collections", r.HandleListCollections)
	router.GET("/api/collections/{id}", r.HandleGetCollection)
	router.GET("/api/collections/{id}/groups", r.HandleListCollectionGroups)
	router.POST("/api/collections", r.HandleCreateCollection).WithInvalidate(collections...)
	router.PUT("/api/collections/{id}", r.HandleUpdateCollection).WithInvalidate(collections...)
	router.DELETE("/api/collections/{id}", r.HandleDeleteCollection).WithInvalidate(collections...)

	router.GET("/api/groups", r.HandleListGroups)
	router.GET("/api/groups/{id}", r.HandleGetGroup)
	router.POST("/api/groups", r.HandleCreateGroup).WithInvalidate(groups...)
	router.POST("/api/groups/reorder", r.HandleReorderGroups).WithInvalidate(groups...)
	router.PUT("/api/groups/{id}", r.HandleUpdateGroup).WithInvalidate(groups...)
	router.DELETE("/api/groups/{id}", r.HandleDeleteGroup).WithInvalidate(groups...)

	router.GET("/api/attachment-types", r.HandleListAttachmentTypes)
	router.GET("/api/attachment-types/{id}", r.HandleGetAttachmentType)
	router.POST("/api/attachment-types", r.HandleCreateAttachmentType).WithInvalidate(attachmentTypes...)
	router.PUT("/api/attachment-types/{id}", r.HandleUpdateAttachmentType).WithInvalidate(attachmentTypes...)
	router.DELETE("/api/attachment-types/{id}", r.HandleDeleteAttachmentType).WithInvalidate(attachmentTypes...)

	router.GET("/api/attachments", r.HandleListAttachments)
	router.GET("/api/attachments/{id}", r.HandleGetAttachment)
	router.POST("/api/attachments", r.HandleCreateAttachment).WithInvalidate(attachments...)
	router.PUT("/api/attachments/{id}", r.HandleUpdateAttachment).WithInvalidate(attachments...)
	router.DELETE("/api/attachments/{id}", r.HandleDeleteAttachment).WithInvalidate(attachments...)

	// Expired listings age out of usefulness within the day, so the route
	// gets a short explicit TTL instead of the default.
	router.GET("/api/codes", r.HandleListCodes)
	router.GET("/api/codes/expired", r.HandleListExpiredCodes).WithCache(time.Minute)
	router.GET("/api/codes/{id}", r.HandleGetCode)
	router.POST("/api/codes", r.HandleCreateCode).WithInvalidate(codes...)
	router.POST("/api/codes/bulk", r.HandleBulkCreateCodes).WithInvalidate(codes...)
	router.POST("/api/codes/bulk-delete", r.HandleBulkDeleteCodes).WithInvalidate(codes...)
	router.PUT("/api/codes/{id}", r.HandleUpdateCode).WithInvalidate(codes...)
	router.DELETE("/api/codes/{id}", r.HandleDeleteCode).WithInvalidate(codes...)
}

package repository

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxPageSize is the maximum allowed page size for paginated queries
const MaxPageSize = 200

// DefaultPageSize is used when the caller does not ask for one
const DefaultPageSize = 20

// SortOrder represents the sort direction
type SortOrder string

const (
	SortOrderAsc  SortOrder = "asc"
	SortOrderDesc SortOrder = "desc"
)

// SortConfig holds sorting configuration for list queries
type SortConfig struct {
	Field string // API field name
	Order SortOrder
}

// DefaultSortConfig sorts newest first
func DefaultSortConfig() SortConfig {
	return SortConfig{Field: "createdAt", Order: SortOrderDesc}
}

// ParseSortOrder parses a string into SortOrder, defaulting to desc
func ParseSortOrder(s string) SortOrder {
	if strings.ToLower(s) == "asc" {
		return SortOrderAsc
	}
	return SortOrderDesc
}

// BuildOrderClause maps an API sort field to a whitelisted column.
// Unknown fields fall back to defaultColumn.
func BuildOrderClause(config SortConfig, fieldMap map[string]string, defaultColumn string) string {
	column, ok := fieldMap[config.Field]
	if !ok {
		column = defaultColumn
	}
	if config.Order == SortOrderAsc {
		return column + " ASC"
	}
	return column + " DESC"
}

// NormalizePage clamps page and pageSize to sane bounds
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// Visibility limits which rows a user may see. All bypasses the filter.
type Visibility struct {
	UserID uuid.UUID
	All    bool
}

// SeeAll is the visibility of system callers and management roles
var SeeAll = Visibility{All: true}

// ApplyEnquiryVisibility restricts an enquiries query to rows the user
// created or is assigned to.
func ApplyEnquiryVisibility(query *gorm.DB, v Visibility) *gorm.DB {
	if v.All {
		return query
	}
	return query.Where("enquiries.created_by_id = ? OR enquiries.assigned_sales_person_id = ?", v.UserID, v.UserID)
}

// ApplyFollowUpVisibility restricts a follow_ups query to rows the user
// created or is assigned to.
func ApplyFollowUpVisibility(query *gorm.DB, v Visibility) *gorm.DB {
	if v.All {
		return query
	}
	return query.Where("follow_ups.created_by_id = ? OR follow_ups.assigned_to_id = ?", v.UserID, v.UserID)
}

package listquery

import "github.com/rezkam/parish/internal/domain"

// assemble packages one page of rows with its pagination metadata.
// totalPages is ceil(totalItems / pageSize); window must already be validated.
func assemble(rows []domain.Row, totalItems int64, window domain.PageWindow) *domain.PageResult {
	if rows == nil {
		rows = []domain.Row{}
	}

	size := int64(window.PageSize)
	totalPages := int((totalItems + size - 1) / size)

	return &domain.PageResult{
		Items:       rows,
		CurrentPage: window.Page,
		NextPage:    window.Page < totalPages,
		TotalPages:  totalPages,
		PageSize:    window.PageSize,
		TotalItems:  totalItems,
	}
}

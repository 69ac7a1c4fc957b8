package downblog

// Paginator is a struct that holds information about pagination, such as the total number of pages, the current page,
// the next and previous pages, the page size, whether there are more pages, whether there are posts,
// and the total number of matching posts.
type Paginator struct {
	TotalPages  int  `json:"totalPages"`
	CurrentPage int  `json:"currentPage"`
	NextPage    int  `json:"nextPage"`
	PrevPage    int  `json:"prevPage"`
	PageSize    int  `json:"pageSize"`
	HasNext     bool `json:"hasNext"`
	HasPrev     bool `json:"hasPrev"`
	HasPosts    bool `json:"hasPosts"`
	TotalPosts  int  `json:"totalPosts"`
}

// NewPaginator returns a Paginator for a query that matched total posts and returned count of them.
func NewPaginator(query Query, total, count int) Paginator {
	pageSize := query.Limit
	if pageSize <= 0 {
		pageSize = DefaultLimit
	}

	currentPage := query.Skip/pageSize + 1
	totalPages := total / pageSize
	if total%pageSize != 0 {
		totalPages++
	}

	nextPage := currentPage + 1
	prevPage := currentPage - 1
	hasNext := currentPage < totalPages
	hasPrev := currentPage > 1

	if nextPage > totalPages {
		nextPage = totalPages
	}

	if prevPage < 1 {
		prevPage = 1
	}

	return Paginator{
		TotalPages:  totalPages,
		CurrentPage: currentPage,
		NextPage:    nextPage,
		PrevPage:    prevPage,
		PageSize:    pageSize,
		HasNext:     hasNext,
		HasPrev:     hasPrev,
		HasPosts:    count > 0,
		TotalPosts:  total,
	}
}

package pagination

// Page is the caller-supplied position in an offset-paginated listing.
type Page struct {
	Page     int `form:"page,default=1"`
	PageSize int `form:"page_size,default=20" validate:"gte=1,lte=250"` // Min 1, Max 250
}

// PageInfo is the listing metadata returned alongside results.
type PageInfo struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Pages int   `json:"pages"`
}

const (
	defaultPageSize = 20
	maxPageSize     = 250
)

// Normalize clamps page and page size into their allowed bounds.
func (p Page) Normalize() Page {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = defaultPageSize
	}
	if p.PageSize > maxPageSize {
		p.PageSize = maxPageSize
	}
	return p
}

// Offset returns the row offset for the normalized page.
func (p Page) Offset() int {
	p = p.Normalize()
	return (p.Page - 1) * p.PageSize
}

// Limit returns the row limit for the normalized page.
func (p Page) Limit() int {
	return p.Normalize().PageSize
}

// BuildPageInfo computes listing metadata from a total row count.
func BuildPageInfo(total int64, page Page) PageInfo {
	page = page.Normalize()
	pages := int(total) / page.PageSize
	if int(total)%page.PageSize != 0 {
		pages++
	}
	if pages == 0 {
		pages = 1
	}
	return PageInfo{
		Total: total,
		Page:  page.Page,
		Pages: pages,
	}
}

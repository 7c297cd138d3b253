package listing

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

var SortableFields = []string{"updatedAt", "createdAt", "title", "views", "favorites", "established", "hiringStatus"}

// SearchQuery is the normalized input of a full-text listing search.
type SearchQuery struct {
	Query       string
	SortBy      string
	SortOrder   string
	Departments []string
	Page        int
	PageSize    int
}

// Direction resolves SortOrder for SortBy. Date fields read "1" as newest
// first; every other field reads "1" as ascending.
func (q SearchQuery) Direction() int {
	if q.SortBy == "updatedAt" || q.SortBy == "createdAt" {
		if q.SortOrder == "1" {
			return -1
		}
		return 1
	}
	if q.SortOrder == "1" {
		return 1
	}
	return -1
}

func (q SearchQuery) Skip() int {
	return (q.Page - 1) * q.PageSize
}

type SearchResult struct {
	Results  []Listing `json:"results"`
	Page     int       `json:"page"`
	PageSize int       `json:"pageSize"`
}

func IsSortable(field string) bool {
	for _, f := range SortableFields {
		if f == field {
			return true
		}
	}
	return false
}

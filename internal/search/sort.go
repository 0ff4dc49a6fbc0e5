package search

// SortOption is a UI-level ordering selection.
type SortOption string

const (
	SortNewest     SortOption = "Newest"
	SortOldest     SortOption = "Oldest"
	SortNameAZ     SortOption = "Name A-Z"
	SortNameZA     SortOption = "Name Z-A"
	SortNumberAsc  SortOption = "Number ASC"
	SortNumberDesc SortOption = "Number DESC"
)

// DefaultSort is the fallback for invalid or out-of-scope selections.
const DefaultSort = SortNewest

// Scope distinguishes card search from set search; sets have no card number,
// so they support fewer sorts.
type Scope string

const (
	ScopeCards Scope = "cards"
	ScopeSets  Scope = "sets"
)

// Newest/Oldest carry a secondary key so same-date items keep a deterministic
// order: the expansion sort position for cards, the plain id for sets.
var cardOrderBy = map[SortOption]string{
	SortNewest:     "-set.releaseDate,set.id",
	SortOldest:     "set.releaseDate,set.id",
	SortNameAZ:     "name",
	SortNameZA:     "-name",
	SortNumberAsc:  "number",
	SortNumberDesc: "-number",
}

var setOrderBy = map[SortOption]string{
	SortNewest: "-releaseDate,id",
	SortOldest: "releaseDate,id",
	SortNameAZ: "name",
	SortNameZA: "-name",
}

// SanitizeSortForScope clamps a sort option to the set valid for the scope,
// falling back to DefaultSort. Invoke on every scope change: a card-only sort
// like "Number ASC" must never reach the catalog in a set query.
func SanitizeSortForScope(opt SortOption, scope Scope) SortOption {
	switch scope {
	case ScopeSets:
		if _, ok := setOrderBy[opt]; ok {
			return opt
		}
	default:
		if _, ok := cardOrderBy[opt]; ok {
			return opt
		}
	}
	return DefaultSort
}

// OrderBy maps a sort option to the catalog orderBy expression for the scope,
// clamping first.
func OrderBy(opt SortOption, scope Scope) string {
	opt = SanitizeSortForScope(opt, scope)
	if scope == ScopeSets {
		return setOrderBy[opt]
	}
	return cardOrderBy[opt]
}

package domain

import "strings"

// KeyPrefix namespaces all keys written by this service.
const KeyPrefix = "lostfound:"

// Item store collection names. A lost-item query searches found items
// and vice versa.
const (
	CollectionLostItems  = "lost_items"
	CollectionFoundItems = "found_items"
)

// QueryType is the kind of report being matched.
type QueryType string

const (
	QueryTypeLost  QueryType = "lost"
	QueryTypeFound QueryType = "found"
)

// ParseQueryType normalizes and validates a raw query type.
func ParseQueryType(raw string) (QueryType, error) {
	switch QueryType(strings.ToLower(raw)) {
	case QueryTypeLost:
		return QueryTypeLost, nil
	case QueryTypeFound:
		return QueryTypeFound, nil
	default:
		return "", ErrInvalidQueryType
	}
}

// TargetCollection returns the opposite-type collection this query
// should be matched against.
func (t QueryType) TargetCollection() string {
	if t == QueryTypeLost {
		return CollectionFoundItems
	}
	return CollectionLostItems
}

// Query is a validated match request. Image holds normalized JPEG bytes
// ready for embedding; nil means the query has no image modality.
type Query struct {
	Type  QueryType
	Text  string
	Image []byte
}

// NewQuery builds a Query from raw request fields.
// Returns ErrInvalidQueryType or ErrTextRequired on bad input.
func NewQuery(rawType, text string, image []byte) (Query, error) {
	t, err := ParseQueryType(rawType)
	if err != nil {
		return Query{}, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return Query{}, ErrTextRequired
	}

	return Query{Type: t, Text: text, Image: image}, nil
}

// Validate re-checks query invariants. Queries built via NewQuery always pass.
func (q Query) Validate() error {
	if _, err := ParseQueryType(string(q.Type)); err != nil {
		return err
	}
	if strings.TrimSpace(q.Text) == "" {
		return ErrTextRequired
	}
	return nil
}

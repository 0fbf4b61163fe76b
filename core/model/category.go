package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// CategorySet is a normalized set of food categories. Members are trimmed
// and lower-cased.
type CategorySet map[string]struct{}

// NewCategorySet builds a set from the given names, dropping blanks.
func NewCategorySet(names ...string) CategorySet {
	s := make(CategorySet, len(names))
	for _, n := range names {
		if n = normalizeCategory(n); n != "" {
			s[n] = struct{}{}
		}
	}
	return s
}

func normalizeCategory(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ParseCategories accepts either a JSON array (`["dairy","bakery"]`) or a
// comma-delimited string (`dairy, bakery`). Input that looks like JSON but
// does not decode yields an empty set and an ErrDataQuality error.
func ParseCategories(raw string) (CategorySet, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return CategorySet{}, nil
	}
	if strings.HasPrefix(raw, "[") {
		var names []string
		if err := json.Unmarshal([]byte(raw), &names); err != nil {
			return CategorySet{}, fmt.Errorf("%w: categories %q: %v", ErrDataQuality, raw, err)
		}
		return NewCategorySet(names...), nil
	}
	return NewCategorySet(strings.Split(raw, ",")...), nil
}

// CategoriesFromValue normalizes a decoded JSON or YAML value.
func CategoriesFromValue(v any) (CategorySet, error) {
	switch t := v.(type) {
	case nil:
		return CategorySet{}, nil
	case CategorySet:
		return NewCategorySet(t.Slice()...), nil
	case string:
		return ParseCategories(t)
	case []string:
		return NewCategorySet(t...), nil
	case []any:
		names := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return CategorySet{}, fmt.Errorf("%w: category %v is not a string", ErrDataQuality, e)
			}
			names = append(names, s)
		}
		return NewCategorySet(names...), nil
	default:
		return CategorySet{}, fmt.Errorf("%w: unexpected categories type %T", ErrDataQuality, v)
	}
}

// Has reports whether name belongs to the set.
func (s CategorySet) Has(name string) bool {
	_, ok := s[normalizeCategory(name)]
	return ok
}

// Intersects reports whether both sets share at least one member.
func (s CategorySet) Intersects(o CategorySet) bool {
	small, large := s, o
	if len(large) < len(small) {
		small, large = large, small
	}
	for k := range small {
		if _, ok := large[k]; ok {
			return true
		}
	}
	return false
}

// Slice returns the members in sorted order.
func (s CategorySet) Slice() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// MarshalJSON encodes the set as a sorted array.
func (s CategorySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Slice())
}

// UnmarshalJSON accepts an array or a delimited string.
func (s *CategorySet) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	set, err := CategoriesFromValue(v)
	if err != nil {
		return err
	}
	*s = set
	return nil
}

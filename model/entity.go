package model

import "fmt"

// Entity is a company record. The backend returns an open-ended bag of
// attributes; only the name is interpreted by every caller.
type Entity map[string]any

// Name returns the natural key of the entity.
func (e Entity) Name() string {
	if v, ok := e["name"].(string); ok {
		return v
	}
	return ""
}

// Strings returns the values of a field that may be a single string or a list
// of strings. Non-string list elements are formatted with %v.
func (e Entity) Strings(field string) []string {
	switch v := e[field].(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if item == nil {
				continue
			}
			if s, ok := item.(string); ok {
				out = append(out, s)
				continue
			}
			out = append(out, fmt.Sprint(item))
		}
		return out
	}
	return nil
}

// CompaniesResponse is returned by every company list endpoint.
type CompaniesResponse struct {
	Companies []Entity `json:"companies"`
}

// CompanyResponse is returned by company detail endpoints.
type CompanyResponse struct {
	Company Entity `json:"company"`
}

package store

import (
	"context"
	"fmt"
)

// Facet 下拉筛选维度
type Facet string

const (
	FacetType         Facet = "type"
	FacetModel        Facet = "model"
	FacetManufacturer Facet = "manufacturer"
	FacetLocation     Facet = "location"
)

var facetColumns = map[Facet]string{
	FacetType:         "type_machine",
	FacetModel:        "model_machine",
	FacetManufacturer: "manufacturer",
	FacetLocation:     "name_location",
}

// ParseFacet 校验维度名
func ParseFacet(v string) (Facet, error) {
	f := Facet(v)
	if _, ok := facetColumns[f]; !ok {
		return "", fmt.Errorf("unknown facet %q: %w", v, ErrInvalid)
	}
	return f, nil
}

// DistinctValues 某维度的去重取值（忽略空值，按字母序）
func (s *Store) DistinctValues(ctx context.Context, facet Facet) ([]string, error) {
	col, ok := facetColumns[facet]
	if !ok {
		return nil, fmt.Errorf("unknown facet %q: %w", facet, ErrInvalid)
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT DISTINCT %[1]s FROM machines WHERE %[1]s <> '' ORDER BY %[1]s", col))
	if err != nil {
		return nil, fmt.Errorf("query distinct %s failed: %w", col, err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan distinct %s failed: %w", col, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate distinct %s failed: %w", col, err)
	}
	return out, nil
}

// Package shape normalizes the storefront backend's list and record
// responses. The backend is not uniform: some endpoints answer with a bare
// array, some wrap the list in {success, data}, some nest it one level deeper
// under the resource name, and the Go services use a snake_case envelope.
package shape

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	apperrors "github.com/utafrali/ecommerce-admin/pkg/errors"
	"github.com/utafrali/ecommerce-admin/pkg/pagination"
)

// Variant names the layout a response matched.
type Variant string

const (
	VariantArray      Variant = "array"       // [...]
	VariantDataArray  Variant = "data-array"  // {data: [...]}
	VariantDataObject Variant = "data-object" // {data: {<key>: [...]}}
	VariantTopLevel   Variant = "top-level"   // {<key>: [...]}
)

// Identifiable is a record with a stable identifier.
type Identifiable interface {
	RecordID() string
}

// Envelope is the normalized form of a list response.
type Envelope[T any] struct {
	Items []T
	// Pagination is nil when the response carried none.
	Pagination *pagination.Pagination
	// Statistics holds the aggregate counters object undecoded, or nil.
	Statistics json.RawMessage
	Variant    Variant
}

// serverFailureFallback is used when a success:false body names no reason.
const serverFailureFallback = "Request failed"

var (
	statisticsKeys = []string{"statistics", "stats"}

	currentPageKeys  = []string{"currentPage", "current_page", "page"}
	totalPagesKeys   = []string{"totalPages", "total_pages", "pages"}
	totalItemsKeys   = []string{"totalItems", "total_items", "totalCount", "total_count", "total"}
	itemsPerPageKeys = []string{"itemsPerPage", "items_per_page", "perPage", "per_page", "pageSize", "page_size", "limit"}
)

// paginationFields are excluded when sweeping loose counters into statistics.
var paginationFields = func() map[string]struct{} {
	m := make(map[string]struct{})
	for _, group := range [][]string{currentPageKeys, totalPagesKeys, totalItemsKeys, itemsPerPageKeys} {
		for _, k := range group {
			m[k] = struct{}{}
		}
	}
	return m
}()

// Normalize decodes a list response whose collection lives under key (or
// "items"). A body of {success:false} is reported as a server error; a body
// matching no known layout returns apperrors.ErrShapeMismatch.
func Normalize[T any](raw json.RawMessage, key string) (Envelope[T], error) {
	var env Envelope[T]

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return env, fmt.Errorf("empty body: %w", apperrors.ErrShapeMismatch)
	}

	if raw[0] == '[' {
		items, err := decodeItems[T](raw)
		if err != nil {
			return env, err
		}
		env.Items = items
		env.Variant = VariantArray
		return env, nil
	}

	top, err := object(raw)
	if err != nil {
		return env, err
	}
	if err := serverFailure(top); err != nil {
		return env, err
	}

	if data, ok := top["data"]; ok {
		data = bytes.TrimSpace(data)
		switch {
		case isNull(data):
			env.Items = []T{}
			env.Variant = VariantDataArray
			env.Pagination = paginationFrom(top)
			env.Statistics = statisticsFrom(top)
			return env, nil

		case len(data) > 0 && data[0] == '[':
			items, err := decodeItems[T](data)
			if err != nil {
				return env, err
			}
			env.Items = items
			env.Variant = VariantDataArray
			env.Pagination = paginationFrom(top)
			env.Statistics = statisticsFrom(top)
			return env, nil

		case len(data) > 0 && data[0] == '{':
			inner, err := object(data)
			if err != nil {
				return env, err
			}
			list, found := collection(inner, key)
			if !found {
				return env, fmt.Errorf("data object has no %q or \"items\" list: %w", key, apperrors.ErrShapeMismatch)
			}
			items, err := decodeItems[T](list)
			if err != nil {
				return env, err
			}
			env.Items = items
			env.Variant = VariantDataObject
			env.Pagination = paginationFrom(inner)
			if env.Pagination == nil {
				env.Pagination = paginationFrom(top)
			}
			env.Statistics = statisticsFrom(inner)
			if env.Statistics == nil {
				env.Statistics = statisticsFrom(top)
			}
			return env, nil

		default:
			return env, fmt.Errorf("data is neither a list nor an object: %w", apperrors.ErrShapeMismatch)
		}
	}

	list, found := collection(top, key)
	if !found {
		return env, fmt.Errorf("no %q, \"items\" or \"data\" field: %w", key, apperrors.ErrShapeMismatch)
	}
	items, err := decodeItems[T](list)
	if err != nil {
		return env, err
	}
	env.Items = items
	env.Variant = VariantTopLevel
	env.Pagination = paginationFrom(top)
	env.Statistics = statisticsFrom(top)
	return env, nil
}

// Record extracts a single record from a mutation response. It looks in
// data.<singular>, data, <singular> and finally the body itself, and reports
// false when none of those holds a record with an identifier.
func Record[T Identifiable](raw json.RawMessage, singular string) (T, bool, error) {
	var zero T
	c, err := recordJSON[T](raw, singular)
	if err != nil || c == nil {
		return zero, false, err
	}
	var rec T
	if err := json.Unmarshal(c, &rec); err != nil {
		return zero, false, nil
	}
	return rec, true, nil
}

// Merge overlays the record in a mutation response onto base. Fields the
// response omits keep base's values. It reports false, and returns base
// unchanged, when the response holds no record with base's identifier.
func Merge[T Identifiable](base T, raw json.RawMessage, singular string) (T, bool, error) {
	c, err := recordJSON[T](raw, singular)
	if err != nil || c == nil {
		return base, false, err
	}

	// base is round-tripped so the merge never writes through pointers or
	// slices it shares with earlier snapshots.
	encoded, err := json.Marshal(base)
	if err != nil {
		return base, false, fmt.Errorf("encode %s: %w", singular, err)
	}
	var merged T
	if err := json.Unmarshal(encoded, &merged); err != nil {
		return base, false, fmt.Errorf("decode %s: %w", singular, err)
	}
	if err := json.Unmarshal(c, &merged); err != nil {
		return base, false, nil
	}
	if merged.RecordID() != base.RecordID() {
		return base, false, nil
	}
	return merged, true, nil
}

// recordJSON returns the first candidate that decodes to a record with an
// identifier, or nil.
func recordJSON[T Identifiable](raw json.RawMessage, singular string) (json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, nil
	}

	top, err := object(raw)
	if err != nil {
		return nil, nil
	}
	if err := serverFailure(top); err != nil {
		return nil, err
	}

	candidates := make([]json.RawMessage, 0, 4)
	if data, ok := top["data"]; ok {
		if inner, err := object(data); err == nil {
			if rec, ok := inner[singular]; ok {
				candidates = append(candidates, rec)
			}
			candidates = append(candidates, data)
		}
	}
	if rec, ok := top[singular]; ok {
		candidates = append(candidates, rec)
	}
	candidates = append(candidates, raw)

	for _, c := range candidates {
		var rec T
		if err := json.Unmarshal(c, &rec); err != nil {
			continue
		}
		if rec.RecordID() != "" {
			return c, nil
		}
	}
	return nil, nil
}

// SinglePage synthesizes metadata for a response that carried none: the
// whole collection is one page.
func SinglePage(n int, params pagination.Params) pagination.Pagination {
	perPage := params.Limit
	if n > perPage {
		perPage = n
	}
	return pagination.Pagination{
		CurrentPage:  1,
		TotalPages:   1,
		TotalItems:   n,
		ItemsPerPage: perPage,
	}
}

func object(raw json.RawMessage) (map[string]json.RawMessage, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		return nil, fmt.Errorf("body is not a JSON object: %w", apperrors.ErrShapeMismatch)
	}
	return m, nil
}

func decodeItems[T any](raw json.RawMessage) ([]T, error) {
	items := []T{}
	if isNull(raw) {
		return items, nil
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode items: %w: %w", apperrors.ErrShapeMismatch, err)
	}
	return items, nil
}

// collection finds the list under key, falling back to "items".
func collection(m map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	for _, k := range []string{key, "items"} {
		if k == "" {
			continue
		}
		v, ok := m[k]
		if !ok {
			continue
		}
		v = bytes.TrimSpace(v)
		if len(v) > 0 && (v[0] == '[' || isNull(v)) {
			return v, true
		}
	}
	return nil, false
}

// serverFailure turns {success:false, message|error} into a RequestError.
func serverFailure(m map[string]json.RawMessage) error {
	raw, ok := m["success"]
	if !ok {
		return nil
	}
	var success bool
	if err := json.Unmarshal(raw, &success); err != nil || success {
		return nil
	}

	msg := stringField(m, "message")
	if msg == "" {
		msg = stringField(m, "error")
	}
	if msg == "" {
		msg = serverFailureFallback
	}
	return apperrors.NewRequestError(http.StatusBadGateway, msg)
}

func stringField(m map[string]json.RawMessage, key string) string {
	var s string
	if raw, ok := m[key]; ok && json.Unmarshal(raw, &s) == nil {
		return strings.TrimSpace(s)
	}
	return ""
}

// paginationFrom reads a nested "pagination" object, or loose page fields
// sitting directly in m.
func paginationFrom(m map[string]json.RawMessage) *pagination.Pagination {
	if raw, ok := m["pagination"]; ok {
		if inner, err := object(raw); err == nil {
			if p, ok := parsePagination(inner); ok {
				return p
			}
		}
	}
	if p, ok := parsePagination(m); ok {
		return p
	}
	return nil
}

func parsePagination(m map[string]json.RawMessage) (*pagination.Pagination, bool) {
	var (
		p     pagination.Pagination
		found bool
	)
	if v, ok := intField(m, currentPageKeys); ok {
		p.CurrentPage, found = v, true
	}
	if v, ok := intField(m, totalPagesKeys); ok {
		p.TotalPages, found = v, true
	}
	if v, ok := intField(m, totalItemsKeys); ok {
		p.TotalItems, found = v, true
	}
	if v, ok := intField(m, itemsPerPageKeys); ok {
		p.ItemsPerPage, found = v, true
	}
	if !found {
		return nil, false
	}
	if p.TotalPages == 0 && p.TotalItems > 0 && p.ItemsPerPage > 0 {
		p.TotalPages = pagination.New(p.TotalItems, pagination.Params{Page: p.CurrentPage, Limit: p.ItemsPerPage}).TotalPages
	}
	return &p, true
}

func intField(m map[string]json.RawMessage, keys []string) (int, bool) {
	for _, k := range keys {
		raw, ok := m[k]
		if !ok || isNull(raw) {
			continue
		}
		var f float64
		if err := json.Unmarshal(raw, &f); err == nil {
			return int(f), true
		}
	}
	return 0, false
}

// statisticsFrom returns the statistics object, or the loose numeric
// counters of m (e.g. a top-level "unreadCount") gathered into one.
func statisticsFrom(m map[string]json.RawMessage) json.RawMessage {
	for _, k := range statisticsKeys {
		if raw, ok := m[k]; ok {
			if _, err := object(raw); err == nil {
				return raw
			}
		}
	}

	loose := make(map[string]json.RawMessage)
	for k, raw := range m {
		if _, skip := paginationFields[k]; skip || isNull(raw) {
			continue
		}
		var f float64
		if json.Unmarshal(raw, &f) == nil {
			loose[k] = raw
		}
	}
	if len(loose) == 0 {
		return nil
	}
	out, err := json.Marshal(loose)
	if err != nil {
		return nil
	}
	return out
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

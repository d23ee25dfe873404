package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

func DecodeJSON(body io.Reader, v interface{}) error {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("body must contain a single JSON object")
	}
	return nil
}

func ValidationDetails(errs validator.ValidationErrors) map[string]string {
	if len(errs) == 0 {
		return nil
	}
	details := make(map[string]string, len(errs))
	for _, err := range errs {
		details[err.Field()] = err.Tag()
	}
	return details
}

// PageQuery holds the page/limit/sort triple every list endpoint accepts.
type PageQuery struct {
	Page  int64
	Limit int64
	Sort  string
	Desc  bool
}

func (p PageQuery) Offset() int64 {
	return (p.Page - 1) * p.Limit
}

// ParsePageQuery reads page, limit and sort from the query string.
// Sort accepts "field" or "-field" for descending order; only fields in
// allowedSorts are accepted so callers never pass raw input into a query.
func ParsePageQuery(values url.Values, defaultLimit, maxLimit int64, allowedSorts ...string) (PageQuery, error) {
	q := PageQuery{Page: 1, Limit: defaultLimit}

	rawPage := strings.TrimSpace(values.Get("page"))
	if rawPage != "" {
		parsed, err := strconv.ParseInt(rawPage, 10, 64)
		if err != nil || parsed <= 0 {
			return PageQuery{}, errors.New("invalid page")
		}
		q.Page = parsed
	}

	rawLimit := strings.TrimSpace(values.Get("limit"))
	if rawLimit != "" {
		parsed, err := strconv.ParseInt(rawLimit, 10, 64)
		if err != nil || parsed <= 0 {
			return PageQuery{}, errors.New("invalid limit")
		}
		q.Limit = parsed
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}

	rawSort := strings.TrimSpace(values.Get("sort"))
	if rawSort != "" {
		field := rawSort
		if strings.HasPrefix(field, "-") {
			q.Desc = true
			field = field[1:]
		}
		ok := false
		for _, allowed := range allowedSorts {
			if field == allowed {
				ok = true
				break
			}
		}
		if !ok {
			return PageQuery{}, errors.New("invalid sort")
		}
		q.Sort = field
	}

	return q, nil
}

func ParseLimitOffset(values url.Values, defaultLimit, maxLimit int64) (int64, int64, error) {
	limit := defaultLimit
	offset := int64(0)

	rawLimit := strings.TrimSpace(values.Get("limit"))
	if rawLimit != "" {
		parsed, err := strconv.ParseInt(rawLimit, 10, 64)
		if err != nil || parsed <= 0 {
			return 0, 0, errors.New("invalid limit")
		}
		limit = parsed
	}

	rawOffset := strings.TrimSpace(values.Get("offset"))
	if rawOffset != "" {
		parsed, err := strconv.ParseInt(rawOffset, 10, 64)
		if err != nil || parsed < 0 {
			return 0, 0, errors.New("invalid offset")
		}
		offset = parsed
	}

	if limit > maxLimit {
		limit = maxLimit
	}

	return limit, offset, nil
}

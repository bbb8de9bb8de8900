package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation 输入缺少必填字段或取值非法
	ErrValidation = errors.New("validation failed")

	// ErrNotFound 没有匹配的价格源或记录
	ErrNotFound = errors.New("not found")

	// ErrMissingID 调用方未提供 id
	ErrMissingID = errors.New("missing id")
)

// UpstreamError is returned when an external API answers with a non-success
// status or a payload that cannot be parsed.
type UpstreamError struct {
	Service string
	Status  int
	Body    string
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s upstream error: status %d", e.Service, e.Status)
	}
	return fmt.Sprintf("%s upstream error: status %d: %s", e.Service, e.Status, e.Body)
}

// IsUpstream reports whether err carries an *UpstreamError.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}

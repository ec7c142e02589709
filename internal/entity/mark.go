package entity

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	MarkEmpty Mark = ""
	MarkX     Mark = "X"
	MarkO     Mark = "O"
)

var ErrInvalidMark = errors.New("invalid mark")

// Mark is a closed cell value. An empty cell travels as JSON null on the
// wire, never as an empty string.
type Mark string

func (that Mark) IsEmpty() bool {
	return that == MarkEmpty
}

func (that Mark) MarshalJSON() ([]byte, error) {
	if that == MarkEmpty {
		return []byte("null"), nil
	}

	return json.Marshal(string(that)) //nolint: wrapcheck // plain string marshal never fails
}

func (that *Mark) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*that = MarkEmpty
		return nil
	}

	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("failed to unmarshal mark: %w", err)
	}

	switch mark := Mark(value); mark {
	case MarkEmpty, MarkX, MarkO:
		*that = mark
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMark, value)
	}
}

package naru

import (
	"bytes"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// FlexString decodes a JSON string, number, or bool as a string.
// null and absent both decode to "".
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(strings.TrimSpace(v))
		return nil
	}
	*s = FlexString(data)
	return nil
}

// String returns the plain string value
func (s FlexString) String() string { return string(s) }

// Int parses the value as an integer, 0 when absent or unparseable
func (s FlexString) Int() int {
	v := strings.ReplaceAll(strings.TrimSpace(string(s)), ",", "")
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		f, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil {
			return 0
		}
		return int(f)
	}
	return n
}

// FlexInt decodes a JSON number or numeric string as an int; anything else is 0
type FlexInt int

func (n *FlexInt) UnmarshalJSON(data []byte) error {
	var s FlexString
	if err := s.UnmarshalJSON(data); err != nil {
		*n = 0
		return nil
	}
	*n = FlexInt(s.Int())
	return nil
}

package tensorize

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// toFloat64 reads any value a row source plausibly delivers for a numeric
// field. Text sources hand over strings; in-memory sources hand over Go
// numbers directly.
func toFloat64(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, errors.New("empty numeric value")
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, errors.Wrapf(err, "parsing %q", s)
		}
		return f, nil
	}
	return 0, errors.Errorf("cannot read %T as a number", v)
}

func toString(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", errors.Errorf("cannot read %T as text", v)
	}
	return s, nil
}

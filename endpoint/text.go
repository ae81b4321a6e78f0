package endpoint

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseWeighted accepts the file-watched text form, which extends
// Parse with an optional "#weight" suffix, e.g. "10.0.0.1:8080#3". If
// defaultPort is non-zero and the parsed endpoint has no port, it is
// applied.
func ParseWeighted(text string, defaultPort int) (Endpoint, error) {
	base := text
	weight := -1
	if idx := strings.LastIndex(text, "#"); idx >= 0 {
		base = text[:idx]
		wStr := text[idx+1:]
		w, err := strconv.Atoi(wStr)
		if err != nil || w < 0 {
			return Endpoint{}, fmt.Errorf("%w: invalid weight suffix %q in %q", ErrInvalidAddress, wStr, text)
		}
		weight = w
	}

	e, err := Parse(base)
	if err != nil {
		return Endpoint{}, err
	}
	if e.port == 0 && defaultPort != 0 {
		e.port = defaultPort
	}
	if weight >= 0 {
		e.weight = weight
	}
	return e, nil
}

package config

import (
	"errors"
	"fmt"
	"net/textproto"
	"strings"
)

var errInvalidHeaderParameter = errors.New("invalid syntax specified as header parameter")

// Header is a custom response header given on the command line
type Header struct {
	Name  string
	Value string
}

// ParseHeaderString parses "Name: value" strings into headers, keeping their
// order. Header names are canonicalized.
func ParseHeaderString(customHeaders []string) ([]Header, error) {
	headers := make([]Header, 0, len(customHeaders))

	for _, keyValueString := range customHeaders {
		keyValue := strings.SplitN(keyValueString, ":", 2)
		if len(keyValue) != 2 {
			return nil, fmt.Errorf("%w: %q", errInvalidHeaderParameter, keyValueString)
		}

		name := strings.TrimSpace(keyValue[0])
		if name == "" {
			return nil, fmt.Errorf("%w: %q", errInvalidHeaderParameter, keyValueString)
		}

		headers = append(headers, Header{
			Name:  textproto.CanonicalMIMEHeaderKey(name),
			Value: strings.TrimSpace(keyValue[1]),
		})
	}

	return headers, nil
}

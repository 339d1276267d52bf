package listener

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const (
	idPlaceholder    = "{id}"
	tokenPlaceholder = "{token}"
)

// ResolveAddress substitutes the {id} and {token} placeholders in address.
// The id is path-escaped and the token query-escaped. A placeholder left
// unfilled is an error.
func ResolveAddress(address, id, token string) (string, error) {
	if strings.TrimSpace(address) == "" {
		return "", ErrAddressRequired
	}

	resolved := address
	if id != "" {
		resolved = strings.ReplaceAll(resolved, idPlaceholder, url.PathEscape(id))
	}
	if token != "" {
		resolved = strings.ReplaceAll(resolved, tokenPlaceholder, url.QueryEscape(token))
	}

	for _, ph := range []string{idPlaceholder, tokenPlaceholder} {
		if strings.Contains(resolved, ph) {
			return "", fmt.Errorf("listener: address still contains %s", ph)
		}
	}
	return resolved, nil
}

// AuthHeader builds the upgrade request header carrying an Authorization value.
// A bare token gets the Bearer scheme.
func AuthHeader(value string) http.Header {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if !strings.Contains(value, " ") {
		value = "Bearer " + value
	}
	h := http.Header{}
	h.Set("Authorization", value)
	return h
}

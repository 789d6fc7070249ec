// Utilities for importing a browser session from a "Copy as cURL" command.
package shared

import (
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strings"
)

var (
	curlHeaderRe = regexp.MustCompile(`-H\s+'([^']+)'|-H\s+"([^"]+)"`)
	curlCookieRe = regexp.MustCompile(`(?:-b|--cookie)\s+'([^']+)'|(?:-b|--cookie)\s+"([^"]+)"`)
	curlURLRe    = regexp.MustCompile(`curl\s+(?:'([^']+)'|"([^"]+)"|(https?://\S+))`)
)

// CurlRequest is the subset of a copied browser request needed to reuse its session.
type CurlRequest struct {
	URL     string
	Headers map[string]string
	Cookie  string
}

// ParseCurlFile reads a file containing a cURL command and parses it.
func ParseCurlFile(path string) (*CurlRequest, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read curl file: %w", err)
	}

	return ParseCurlCommand(content)
}

// ParseCurlCommand extracts the URL, headers and cookie string from a cURL command.
//
// The cookie is taken from -b/--cookie when present, otherwise from a Cookie header.
// Cookie headers never appear in Headers.
func ParseCurlCommand(data []byte) (*CurlRequest, error) {
	cmd := strings.ReplaceAll(string(data), "\\\n", " ")
	cmd = strings.ReplaceAll(cmd, "\\", "")

	req := &CurlRequest{Headers: make(map[string]string)}

	if m := curlURLRe.FindStringSubmatch(cmd); m != nil {
		req.URL = firstNonEmpty(m[1:]...)
	}

	var headerCookie string
	for _, m := range curlHeaderRe.FindAllStringSubmatch(cmd, -1) {
		key, value, ok := strings.Cut(firstNonEmpty(m[1], m[2]), ":")
		if !ok {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if strings.EqualFold(key, "cookie") {
			if headerCookie == "" {
				headerCookie = value
			}
			continue
		}
		req.Headers[key] = value
	}

	if m := curlCookieRe.FindStringSubmatch(cmd); m != nil {
		req.Cookie = firstNonEmpty(m[1], m[2])
	}
	if req.Cookie == "" {
		req.Cookie = headerCookie
	}

	if len(req.Headers) == 0 && req.Cookie == "" {
		return nil, fmt.Errorf("%w: no headers or cookies found in curl command", ErrInvalidArgument)
	}

	return req, nil
}

// UserAgent returns the User-Agent header regardless of the case it was copied in.
func (c *CurlRequest) UserAgent() string {
	for k, v := range c.Headers {
		if strings.EqualFold(k, "user-agent") {
			return v
		}
	}
	return ""
}

// Cookies splits the cookie string into cookies scoped to domain.
func (c *CurlRequest) Cookies(domain string) []*http.Cookie {
	var cookies []*http.Cookie
	for part := range strings.SplitSeq(c.Cookie, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || name == "" {
			continue
		}
		cookies = append(cookies, &http.Cookie{
			Name:   name,
			Value:  value,
			Domain: domain,
			Path:   "/",
			Secure: true,
		})
	}
	return cookies
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

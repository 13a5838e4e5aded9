package scraper

import (
	"bufio"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// NewCookieJar builds the jar shared by the run session. When path is empty
// the jar starts out blank; otherwise it is seeded from a Netscape-format
// cookies.txt exported from a browser, which is how operators carry an
// already-solved bot challenge into a run.
func NewCookieJar(path string) (http.CookieJar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	if path == "" {
		return jar, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cookies file: %w", err)
	}
	defer f.Close()

	byDomain := map[string][]*http.Cookie{}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// HttpOnly cookies are exported with a marker prefix.
		line = strings.TrimPrefix(line, "#HttpOnly_")

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// domain, includeSubdomains, path, secure, expires, name, value
		fields := strings.Split(line, "\t")
		if len(fields) < 7 {
			continue
		}

		domain := strings.TrimPrefix(fields[0], ".")
		cookie := &http.Cookie{
			Name:   fields[5],
			Value:  fields[6],
			Path:   fields[2],
			Domain: fields[0],
			Secure: strings.EqualFold(fields[3], "TRUE"),
		}
		if ts, err := strconv.ParseInt(fields[4], 10, 64); err == nil && ts > 0 {
			cookie.Expires = time.Unix(ts, 0)
		}

		byDomain[domain] = append(byDomain[domain], cookie)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cookies file: %w", err)
	}

	for domain, cookies := range byDomain {
		u := &url.URL{Scheme: "https", Host: domain}
		jar.SetCookies(u, cookies)
	}

	return jar, nil
}

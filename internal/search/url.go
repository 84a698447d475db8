package search

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	postPathRE = regexp.MustCompile(`^/([^/?#]+)/(\d+)/?$`)
	logNoRE    = regexp.MustCompile(`^\d+$`)
)

// Canonicalize normalizes a link found on a search result page into the
// canonical post shape https://blog.naver.com/<owner>/<post id>. Links that
// cannot be brought into that shape are discarded: the bool result reports
// whether the link survived.
//
// Three input shapes are accepted: the canonical path itself, the legacy
// PostView form (blogId/logNo query parameters), and redirect wrappers that
// carry the real target in a query parameter.
func Canonicalize(href string) (string, bool) {
	return canonicalize(href, 0)
}

// Redirect wrappers can nest; two levels is all the provider uses.
const maxRedirectUnwrap = 2

func canonicalize(href string, depth int) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil || u.Host == "" {
		return "", false
	}

	host := strings.ToLower(u.Hostname())
	if host == "blog.naver.com" || host == "m.blog.naver.com" {
		if m := postPathRE.FindStringSubmatch(u.Path); m != nil {
			return fmt.Sprintf("https://blog.naver.com/%s/%s", m[1], m[2]), true
		}
		if owner, id := postViewParams(u); owner != "" {
			return fmt.Sprintf("https://blog.naver.com/%s/%s", owner, id), true
		}
		return "", false
	}

	// Redirect-wrapped result links hold the target in "url" or "u".
	if depth < maxRedirectUnwrap {
		q := u.Query()
		for _, key := range []string{"url", "u"} {
			if target := q.Get(key); target != "" {
				if canon, ok := canonicalize(target, depth+1); ok {
					return canon, true
				}
			}
		}
	}
	return "", false
}

func postViewParams(u *url.URL) (owner, id string) {
	base := strings.ToLower(u.Path)
	if base != "/postview.naver" && base != "/postview.nhn" {
		return "", ""
	}
	q := u.Query()
	owner = q.Get("blogId")
	id = q.Get("logNo")
	if owner == "" || !logNoRE.MatchString(id) {
		return "", ""
	}
	return owner, id
}

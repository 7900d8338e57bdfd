package sandbox

import "net/url"

// joinURL resolves href against base, returning href unchanged when
// either side fails to parse.
func joinURL(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	h, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(h).String()
}

package linkcheck

import (
	"net/url"
	"strings"
)

// DomainList decides whether a link points at a government site
type DomainList struct {
	suffixes []string
}

// NewDomainList creates a list from host suffixes such as "gov.in".
// Leading dots and case are ignored.
func NewDomainList(suffixes []string) *DomainList {
	d := &DomainList{}
	for _, s := range suffixes {
		s = strings.Trim(strings.ToLower(strings.TrimSpace(s)), ".")
		if s != "" {
			d.suffixes = append(d.suffixes, s)
		}
	}
	return d
}

// Official reports whether rawURL's host is one of the suffixes or a
// subdomain of one
func (d *DomainList) Official(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	for _, s := range d.suffixes {
		if host == s || strings.HasSuffix(host, "."+s) {
			return true
		}
	}
	return false
}

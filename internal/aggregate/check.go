package aggregate

import (
	"net/url"
	"path"
	"strings"

	"github.com/listenupapp/artfetch/internal/domain"
	"github.com/listenupapp/artfetch/internal/metrics"
	"github.com/listenupapp/artfetch/internal/safety"
)

var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".webp": {},
}

// checker applies the last checks a record passes before entering a
// superset: a usable asset URL and no blocked tag.
type checker struct {
	policy *safety.Policy
	hosts  []string
}

func newChecker(policy *safety.Policy, hosts []string) checker {
	return checker{policy: policy, hosts: hosts}
}

// accept reports whether r may be kept, or the drop reason.
func (c checker) accept(r domain.MediaRecord) (string, bool) {
	if !ValidAssetURL(r.CanonicalURL, c.hosts) {
		return metrics.DropInvalid, false
	}
	if _, blocked := c.policy.BlockedTag(r.Tags); blocked {
		return metrics.DropBlocklist, false
	}
	return "", true
}

// ValidAssetURL reports whether raw is an absolute http(s) URL served from
// one of hosts (or a subdomain) or naming a known image file type.
func ValidAssetURL(raw string, hosts []string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}

	for _, h := range hosts {
		h = strings.ToLower(h)
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}

	_, ok := imageExtensions[strings.ToLower(path.Ext(u.Path))]
	return ok
}

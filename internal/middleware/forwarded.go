package middleware

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextScheme holds the scheme the client used, as reported by a trusted proxy
const ContextScheme = "scheme"

// ForwardedScheme records X-Forwarded-Proto, but only for requests whose peer is one
// of the trusted proxies. Anyone else gets the header ignored.
func ForwardedScheme(trusted []string) (gin.HandlerFunc, error) {
	prefixes := make([]netip.Prefix, 0, len(trusted))
	for _, entry := range trusted {
		prefix, err := parseProxy(entry)
		if err != nil {
			return nil, err
		}
		prefixes = append(prefixes, prefix)
	}

	return func(c *gin.Context) {
		if len(prefixes) == 0 {
			c.Next()
			return
		}
		peer, err := netip.ParseAddr(c.RemoteIP())
		if err != nil {
			c.Next()
			return
		}
		peer = peer.Unmap()
		for _, prefix := range prefixes {
			if !prefix.Contains(peer) {
				continue
			}
			switch proto := strings.ToLower(strings.TrimSpace(c.GetHeader("X-Forwarded-Proto"))); proto {
			case "http", "https":
				c.Set(ContextScheme, proto)
			}
			break
		}
		c.Next()
	}, nil
}

func parseProxy(entry string) (netip.Prefix, error) {
	entry = strings.TrimSpace(entry)
	if prefix, err := netip.ParsePrefix(entry); err == nil {
		return prefix.Masked(), nil
	}
	addr, err := netip.ParseAddr(entry)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("invalid trusted proxy %q", entry)
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

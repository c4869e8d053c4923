package server

import (
	"net/http"
	"net/netip"
	"strings"

	"quotaflow-go/internal/config"
	"quotaflow-go/internal/logging"

	"github.com/gin-gonic/gin"
)

// managementACL decides who may reach pool and preference management.
// Loopback callers always pass; others need allowRemote and, when prefixes
// is non-empty, an address inside one of them.
type managementACL struct {
	allowRemote bool
	prefixes    []netip.Prefix
}

func newManagementACL(sc config.ServerConfig) managementACL {
	acl := managementACL{allowRemote: sc.ManagementAllowRemote}
	for _, entry := range sc.ManagementAllowIPs {
		if p, ok := parseAllowEntry(entry); ok {
			acl.prefixes = append(acl.prefixes, p)
		}
	}
	return acl
}

// parseAllowEntry accepts "10.0.0.0/8" or a bare address.
func parseAllowEntry(entry string) (netip.Prefix, bool) {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return netip.Prefix{}, false
	}
	if p, err := netip.ParsePrefix(entry); err == nil {
		return p.Masked(), true
	}
	addr, err := netip.ParseAddr(entry)
	if err != nil {
		return netip.Prefix{}, false
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), true
}

// allow returns "" or the reason the caller is refused.
func (a managementACL) allow(clientIP string) string {
	addr, err := netip.ParseAddr(strings.TrimSpace(clientIP))
	if err == nil {
		addr = addr.Unmap()
		if addr.IsLoopback() {
			return ""
		}
	}
	if !a.allowRemote {
		return "remote management disabled"
	}
	if len(a.prefixes) == 0 {
		return ""
	}
	if err == nil {
		for _, p := range a.prefixes {
			if p.Contains(addr) {
				return ""
			}
		}
	}
	return "ip not allowed for management"
}

func managementRemoteGuard(cfg *config.Config) gin.HandlerFunc {
	acl := newManagementACL(cfg.Server)
	return func(c *gin.Context) {
		if reason := acl.allow(c.ClientIP()); reason != "" {
			logging.WithReq(c, nil).WithField("reason", reason).Warn("management request denied")
			respondError(c, http.StatusForbidden, reason, nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

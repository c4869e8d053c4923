package logging

import (
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Keys handlers store on the gin context so request logs can say which
// feature, tier and credential served the call.
const (
	KeyRequestID  = "request_id"
	KeyFeature    = "feature"
	KeyTier       = "tier"
	KeyCredential = "credential"
	KeyErrorKind  = "error_kind"
)

var executionKeys = [...]string{KeyFeature, KeyTier, KeyCredential, KeyErrorKind}

// WithReq returns an entry with the request id, method, route and client ip,
// plus any execution keys set on c. extras win on conflict.
func WithReq(c *gin.Context, extras log.Fields) *log.Entry {
	fields := make(log.Fields, len(extras)+8)
	if c != nil && c.Request != nil {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		fields["method"] = c.Request.Method
		fields["path"] = route
		fields["ip"] = c.ClientIP()
		if rid := c.GetString(KeyRequestID); rid != "" {
			fields[KeyRequestID] = rid
		}
		for _, k := range executionKeys {
			if v, ok := c.Get(k); ok {
				fields[k] = v
			}
		}
	}
	for k, v := range extras {
		fields[k] = v
	}
	return log.WithFields(fields)
}

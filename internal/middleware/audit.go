package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vozip/isp-api/internal/models"
	"github.com/vozip/isp-api/internal/service"
)

const auditIntentKey = "auditIntent"

// AuditSink accepts bitácora entries.
type AuditSink interface {
	Record(ctx context.Context, entry models.AuditEntry)
}

// SetAuditIntent attaches the audit entry a handler wants written once the
// request succeeds.
func SetAuditIntent(c *gin.Context, intent models.AuditIntent) {
	c.Set(auditIntentKey, intent)
}

// Audit writes the handler's audit intent after a successful response. GET
// requests on export, report and morosos paths are recorded even without one.
func Audit(sink AuditSink, module models.AuditModule) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if sink == nil || c.Writer.Status() >= http.StatusBadRequest {
			return
		}
		intent, ok := CurrentAuditIntent(c)
		if !ok {
			intent, ok = defaultIntent(c)
			if !ok {
				return
			}
		}
		if intent.Modulo == "" {
			intent.Modulo = module
		}

		claims, ok := CurrentClaims(c)
		if !ok {
			return
		}
		actor := claims.UserID
		sink.Record(c.Request.Context(), models.AuditEntry{
			UsuarioID:   &actor,
			Accion:      intent.Accion,
			Modulo:      intent.Modulo,
			Descripcion: intent.Descripcion,
			Anterior:    intent.Anterior,
			Nuevo:       intent.Nuevo,
			RequestMeta: RequestMeta(c),
		})
	}
}

// CurrentAuditIntent returns the intent a handler attached, if any.
func CurrentAuditIntent(c *gin.Context) (models.AuditIntent, bool) {
	value, exists := c.Get(auditIntentKey)
	if !exists {
		return models.AuditIntent{}, false
	}
	intent, ok := value.(models.AuditIntent)
	return intent, ok
}

func defaultIntent(c *gin.Context) (models.AuditIntent, bool) {
	if c.Request.Method != http.MethodGet {
		return models.AuditIntent{}, false
	}
	path := strings.ToLower(c.Request.URL.Path)
	var action models.AuditAction
	switch {
	case strings.Contains(path, "exportar"), strings.Contains(path, "reporte"):
		action = models.AuditExport
	case strings.Contains(path, "morosos"):
		action = models.AuditQuery
	default:
		return models.AuditIntent{}, false
	}
	desc := fmt.Sprintf("%s %s", c.Request.Method, c.Request.URL.Path)
	var detail map[string]interface{}
	if q := c.Request.URL.RawQuery; q != "" {
		detail = map[string]interface{}{"query": q}
	}
	return models.AuditIntent{Accion: action, Descripcion: desc, Nuevo: detail}, true
}

// RequestMeta resolves client IP and user agent for audit entries.
func RequestMeta(c *gin.Context) models.RequestMeta {
	return models.RequestMeta{IP: ClientIP(c), UserAgent: UserAgent(c)}
}

// ClientIP prefers the first X-Forwarded-For hop, then gin's resolution, then
// the socket peer. IPv4-mapped IPv6 addresses are unwrapped.
func ClientIP(c *gin.Context) string {
	if fwd := c.GetHeader("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if first != "" {
			return normalizeIP(first)
		}
	}
	if ip := c.ClientIP(); ip != "" {
		return normalizeIP(ip)
	}
	if c.Request != nil && c.Request.RemoteAddr != "" {
		host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
		if err != nil {
			host = c.Request.RemoteAddr
		}
		if host != "" {
			return normalizeIP(host)
		}
	}
	return service.UnknownIP
}

// UserAgent returns the request's User-Agent or the unknown sentinel.
func UserAgent(c *gin.Context) string {
	if ua := strings.TrimSpace(c.GetHeader("User-Agent")); ua != "" {
		return ua
	}
	return service.UnknownUserAgent
}

func normalizeIP(ip string) string {
	return strings.TrimPrefix(ip, "::ffff:")
}

package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vozip/isp-api/internal/middleware"
	"github.com/vozip/isp-api/internal/models"
	appErrors "github.com/vozip/isp-api/pkg/errors"
	"github.com/vozip/isp-api/pkg/export"
	"github.com/vozip/isp-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		return nil
	}
	return claims
}

// pathID parses a positive integer path parameter, writing a 400 on failure.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, name+" inválido"))
		return 0, false
	}
	return id, true
}

func optionalInt64(raw string) *int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

func paging(c *gin.Context) models.Paging {
	var p models.Paging
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		p.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		p.PageSize = size
	}
	return p
}

func exportFormat(c *gin.Context) (export.Format, bool) {
	format, err := export.ParseFormat(c.DefaultQuery("formato", string(export.FormatXLSX)))
	if err != nil {
		response.Error(c, appErrors.Validation(err, "formato de exportación inválido"))
		return "", false
	}
	return format, true
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid payload"))
		return false
	}
	return true
}

func exportIntent(c *gin.Context, what string, format export.Format, rows int) {
	middleware.SetAuditIntent(c, models.AuditIntent{
		Accion:      models.AuditExport,
		Descripcion: "exportación de " + what,
		Nuevo:       map[string]interface{}{"formato": string(format), "filas": rows},
	})
}

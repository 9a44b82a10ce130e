package service

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vozip/isp-api/internal/repository"
	appErrors "github.com/vozip/isp-api/pkg/errors"
)

const dateLayout = "2006-01-02"

// exportPageSize bounds each page fetched while collecting export rows.
const exportPageSize = 100

// loadError maps a repository lookup failure to a not-found or internal error.
func loadError(err error, notFound, internal string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Internal(err, internal)
}

// writeError maps repository constraint sentinels onto conflicts.
func writeError(err error, conflict, internal string) error {
	switch {
	case errors.Is(err, repository.ErrDuplicate), errors.Is(err, repository.ErrReferenced):
		return appErrors.Clone(appErrors.ErrConflict, conflict)
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, "")
	}
	return appErrors.Internal(err, internal)
}

func parseDate(raw, field string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, appErrors.Validation(err, fmt.Sprintf("%s debe tener formato AAAA-MM-DD", field))
	}
	return t, nil
}

func optionalString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func trimOptional(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}

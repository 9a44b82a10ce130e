package service

import (
	"time"

	"github.com/vozip/isp-api/pkg/export"
)

// ExportFile is a rendered attachment ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
	Rows        int
}

type datasetRenderer func(format export.Format, data export.Dataset) ([]byte, error)

func renderExport(render datasetRenderer, format export.Format, base string, data export.Dataset, at time.Time) (*ExportFile, error) {
	if render == nil {
		render = export.Render
	}
	body, err := render(format, data)
	if err != nil {
		return nil, err
	}
	return &ExportFile{
		Filename:    format.Filename(base, at),
		ContentType: format.ContentType(),
		Data:        body,
		Rows:        len(data.Rows),
	}, nil
}

package dataprovider

import (
	"time"

	"github.com/forscht/rawbody/pkg/ns"
)

// Body is a buffered payload and its metadata. Data is only populated on
// Create and by Data.
type Body struct {
	Id          string        `json:"id" validate:"omitempty,max=64,regex=^[a-zA-Z0-9._-]+$"`
	ContentType ns.NullString `json:"content_type,omitempty"`
	Encoding    ns.NullString `json:"encoding,omitempty" validate:"omitempty,charset"`
	Size        int64         `json:"size"`
	Data        []byte        `json:"-"`
	CTime       time.Time     `json:"ctime"`
}

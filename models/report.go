package models

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ImageRef references an image held by the image store.
type ImageRef string

var ErrInvalidReport = errors.New("invalid report")

// Report represents a single submitted civic issue.
type Report struct {
	ID                 string    `json:"id"`
	Heading            string    `json:"heading"`
	Description        string    `json:"description"`
	Address            string    `json:"address"`
	Latitude           *float64  `json:"latitude,omitempty"`
	Longitude          *float64  `json:"longitude,omitempty"`
	Status             Status    `json:"status"`
	CreatedAt          time.Time `json:"created_at"`
	EvidenceImageRef   ImageRef  `json:"evidence_image_ref"`
	ResolutionImageRef ImageRef  `json:"resolution_image_ref,omitempty"`
}

// NewReportArgs holds the fields of a public submission.
type NewReportArgs struct {
	ID          string
	Heading     string
	Description string
	Address     string
	Latitude    *float64
	Longitude   *float64
	Evidence    ImageRef
	CreatedAt   time.Time
}

// Point is a geographic coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// NewReport validates a submission and returns a Pending report.
func NewReport(args NewReportArgs) (Report, error) {
	heading := strings.TrimSpace(args.Heading)
	description := strings.TrimSpace(args.Description)

	if strings.TrimSpace(args.ID) == "" {
		return Report{}, fmt.Errorf("%w: empty id", ErrInvalidReport)
	}
	if heading == "" {
		return Report{}, fmt.Errorf("%w: heading is required", ErrInvalidReport)
	}
	if description == "" {
		return Report{}, fmt.Errorf("%w: description is required", ErrInvalidReport)
	}
	if strings.TrimSpace(string(args.Evidence)) == "" {
		return Report{}, fmt.Errorf("%w: evidence image is required", ErrInvalidReport)
	}
	if err := validateCoordinates(args.Latitude, args.Longitude); err != nil {
		return Report{}, err
	}

	createdAt := args.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	return Report{
		ID:               args.ID,
		Heading:          heading,
		Description:      description,
		Address:          strings.TrimSpace(args.Address),
		Latitude:         copyFloat(args.Latitude),
		Longitude:        copyFloat(args.Longitude),
		Status:           StatusPending,
		CreatedAt:        createdAt,
		EvidenceImageRef: args.Evidence,
	}, nil
}

func validateCoordinates(lat, lon *float64) error {
	if (lat == nil) != (lon == nil) {
		return fmt.Errorf("%w: latitude and longitude must be given together", ErrInvalidReport)
	}
	if lat == nil {
		return nil
	}
	if math.IsNaN(*lat) || *lat < -90 || *lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range [-90, 90]", ErrInvalidReport, *lat)
	}
	if math.IsNaN(*lon) || *lon < -180 || *lon > 180 {
		return fmt.Errorf("%w: longitude %v out of range [-180, 180]", ErrInvalidReport, *lon)
	}
	return nil
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Location returns the report coordinates if it has any.
func (r Report) Location() (Point, bool) {
	if r.Latitude == nil || r.Longitude == nil {
		return Point{}, false
	}
	return Point{Lat: *r.Latitude, Lon: *r.Longitude}, true
}

// HasResolutionProof reports whether a resolution image is on file.
func (r Report) HasResolutionProof() bool {
	return r.ResolutionImageRef != ""
}

// Clone returns a copy that shares no pointers with r.
func (r Report) Clone() Report {
	c := r
	c.Latitude = copyFloat(r.Latitude)
	c.Longitude = copyFloat(r.Longitude)
	return c
}

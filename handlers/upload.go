package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"safaisetu/models"

	"github.com/gin-gonic/gin"
)

// Slack allowed on top of the image limit for the other multipart fields.
const formOverhead = 1 << 20

// limitBody bounds the request body before multipart parsing.
func (h *Handlers) limitBody(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.config.MaxImageBytes+formOverhead)
}

// readUpload returns the first file present under one of names. A missing
// file yields nil data and no error.
func (h *Handlers) readUpload(c *gin.Context, names ...string) ([]byte, error) {
	for _, name := range names {
		fh, err := c.FormFile(name)
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			return nil, formError(err)
		}
		if fh.Size > h.config.MaxImageBytes {
			return nil, fmt.Errorf("%w: %d > %d bytes", errImageTooLarge, fh.Size, h.config.MaxImageBytes)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open upload %s: %w", name, err)
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, h.config.MaxImageBytes+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read upload %s: %w", name, err)
		}
		if int64(len(data)) > h.config.MaxImageBytes {
			return nil, fmt.Errorf("%w: more than %d bytes", errImageTooLarge, h.config.MaxImageBytes)
		}
		return data, nil
	}
	return nil, nil
}

func formError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return fmt.Errorf("%w: request over %d bytes", errImageTooLarge, maxErr.Limit)
	}
	return fmt.Errorf("%w: malformed form: %v", models.ErrInvalidReport, err)
}

// coordinate accepts a JSON number, a numeric string, an empty string or null.
type coordinate struct {
	value *float64
}

func (c *coordinate) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		c.value = nil
		return nil
	}
	var s string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	} else {
		s = string(data)
	}
	v, err := parseCoordinate(s)
	if err != nil {
		return err
	}
	c.value = v
	return nil
}

func parseCoordinate(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid coordinate %q", models.ErrInvalidReport, s)
	}
	return &v, nil
}

// submission is the report part of a create request
type submission struct {
	Heading     string     `json:"heading"`
	Description string     `json:"description"`
	Address     string     `json:"address"`
	Latitude    coordinate `json:"latitude"`
	Longitude   coordinate `json:"longitude"`
}

// readSubmission reads the report fields from the "report" JSON part or,
// without one, from plain form values. Browsers send a Blob appended to
// FormData as a file part, so the document may arrive either way.
func readSubmission(c *gin.Context) (submission, error) {
	var s submission
	if raw, ok := c.GetPostForm("report"); ok && strings.TrimSpace(raw) != "" {
		return s, decodeSubmission([]byte(raw), &s)
	}
	raw, err := reportPart(c)
	if err != nil {
		return s, err
	}
	if len(bytes.TrimSpace(raw)) > 0 {
		return s, decodeSubmission(raw, &s)
	}

	s.Heading = c.PostForm("heading")
	s.Description = c.PostForm("description")
	s.Address = c.PostForm("address")
	if s.Latitude.value, err = parseCoordinate(c.PostForm("latitude")); err != nil {
		return s, err
	}
	if s.Longitude.value, err = parseCoordinate(c.PostForm("longitude")); err != nil {
		return s, err
	}
	return s, nil
}

// reportPart returns the "report" file part, or nil when there is none.
func reportPart(c *gin.Context) ([]byte, error) {
	fh, err := c.FormFile("report")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, formError(err)
	}
	if fh.Size > formOverhead {
		return nil, fmt.Errorf("%w: report document over %d bytes", models.ErrInvalidReport, formOverhead)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open report part: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, formOverhead+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read report part: %w", err)
	}
	if len(data) > formOverhead {
		return nil, fmt.Errorf("%w: report document over %d bytes", models.ErrInvalidReport, formOverhead)
	}
	return data, nil
}

func decodeSubmission(raw []byte, s *submission) error {
	if err := json.Unmarshal(raw, s); err != nil {
		if errors.Is(err, models.ErrInvalidReport) {
			return err
		}
		return fmt.Errorf("%w: malformed report document: %v", models.ErrInvalidReport, err)
	}
	return nil
}

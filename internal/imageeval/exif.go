package imageeval

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	exif "github.com/dsoprea/go-exif/v3"

	"github.com/factlens/factlens/internal/config"
)

// maxImageBytes limits how much of an image is downloaded for EXIF
// inspection. EXIF metadata sits at the front of the file.
const maxImageBytes = 2 * 1024 * 1024

// editingSoftware are software-tag substrings that indicate the image
// passed through an editor or generator after capture.
var editingSoftware = []string{
	"photoshop", "gimp", "lightroom", "affinity", "pixelmator",
	"midjourney", "dall-e", "dalle", "stable diffusion", "firefly",
}

// ExifReport is the outcome of inspecting an image's EXIF metadata.
type ExifReport struct {
	// HasExif indicates whether any EXIF data was present. Generated
	// images and heavily processed uploads usually have none.
	HasExif bool `json:"has_exif"`

	// Software is the EXIF Software tag value, if present.
	Software string `json:"software,omitempty"`

	// CameraMake is the EXIF Make tag value, if present. A real camera
	// make is a weak authenticity signal.
	CameraMake string `json:"camera_make,omitempty"`

	// Edited indicates the software tag matched a known editor or
	// generator.
	Edited bool `json:"edited"`
}

// ExifInspector downloads images and inspects their EXIF metadata.
type ExifInspector struct {
	httpClient *http.Client
	userAgent  string
}

// NewExifInspector creates an ExifInspector.
func NewExifInspector(timeout time.Duration) *ExifInspector {
	return &ExifInspector{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  config.DefaultUserAgent,
	}
}

// Inspect fetches the image and reports its EXIF software and camera
// tags. An image without EXIF data yields a report with HasExif false,
// not an error.
func (e *ExifInspector) Inspect(ctx context.Context, imageURL string) (*ExifReport, error) {
	data, err := e.fetch(ctx, imageURL)
	if err != nil {
		return nil, err
	}

	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil {
		if errors.Is(err, exif.ErrNoExif) {
			return &ExifReport{}, nil
		}
		return nil, fmt.Errorf("failed to extract EXIF data: %w", err)
	}

	tags, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to parse EXIF data: %w", err)
	}

	report := &ExifReport{HasExif: true}
	for _, tag := range tags {
		switch tag.TagName {
		case "Software":
			report.Software = tag.FormattedFirst
		case "Make":
			report.CameraMake = tag.FormattedFirst
		}
	}
	report.Edited = isEditingSoftware(report.Software)
	return report, nil
}

// fetch downloads up to maxImageBytes of the image.
func (e *ExifInspector) fetch(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("image fetch returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return data, nil
}

// isEditingSoftware reports whether the software tag names a known
// editor or image generator.
func isEditingSoftware(software string) bool {
	if software == "" {
		return false
	}
	lower := strings.ToLower(software)
	for _, name := range editingSoftware {
		if strings.Contains(lower, name) {
			return true
		}
	}
	return false
}

package models

// ScanRequest describes the capabilities and output sent to a scanner bridge
type ScanRequest struct {
	TwainCapSetting map[string]string `json:"twain_cap_setting"`
	OutputSettings  []OutputSetting   `json:"output_settings"`
}

// OutputSetting is a single requested output of a bridge scan
type OutputSetting struct {
	Type   string `json:"type"`
	Format string `json:"format"`
}

// DefaultScanRequest returns the fixed request used for every bridge scan:
// RGB pixels on US letter, returned inline as base64 JPEG.
func DefaultScanRequest() ScanRequest {
	return ScanRequest{
		TwainCapSetting: map[string]string{
			"ICAP_PIXELTYPE":      "TWPT_RGB",
			"ICAP_SUPPORTEDSIZES": "TWSS_USLETTER",
		},
		OutputSettings: []OutputSetting{
			{Type: "return-base64", Format: "jpg"},
		},
	}
}

// PixelMode of a managed scan job
type PixelMode string

const (
	PixelModeColor      PixelMode = "Color"
	PixelModeGrayscale  PixelMode = "Grayscale"
	PixelModeBlackWhite PixelMode = "BlackWhite"
)

// ImageFormat of the pages a managed scan job produces
type ImageFormat string

const (
	ImageFormatJPG ImageFormat = "JPG"
	ImageFormatPNG ImageFormat = "PNG"
	ImageFormatPDF ImageFormat = "PDF"
)

// DefaultResolution is the DPI used for managed scan jobs
const DefaultResolution = 200

// ScanJob is built fresh for every managed scan and dropped when its stream ends.
type ScanJob struct {
	ScannerName DeviceHandle `json:"scannerName"`
	PixelMode   PixelMode    `json:"pixelMode"`
	Resolution  int          `json:"resolution"`
	ImageFormat ImageFormat  `json:"imageFormat"`

	// OnUpdate receives every page or status payload. data is []byte for
	// binary pages and string for status messages.
	OnUpdate func(data any, last bool) `json:"-"`
	// OnError receives job level failures reported by the service.
	OnError func(data any, critical bool) `json:"-"`
}

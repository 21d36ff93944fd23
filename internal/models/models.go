package models

import "strings"

// ObjectURLPrefix is the path prefix of object URLs served from the blob store
const ObjectURLPrefix = "/blob/"

// ImageSource references displayable image data: a data URL or an object URL
type ImageSource string

// IsObjectURL reports whether the source is backed by the blob store
func (s ImageSource) IsObjectURL() bool {
	return strings.HasPrefix(string(s), ObjectURLPrefix)
}

// IsDataURL reports whether the source carries its bytes inline
func (s ImageSource) IsDataURL() bool {
	return strings.HasPrefix(string(s), "data:")
}

// Origin identifies which acquisition path produced an image
type Origin string

const (
	OriginLegacy  Origin = "legacy"
	OriginBridge  Origin = "bridge"
	OriginManaged Origin = "managed"
)

// Readiness is the connection state of the managed scan service
type Readiness int

const (
	ReadinessUnknown Readiness = iota
	ReadinessOpen
	ReadinessClosed
	ReadinessBlocked
)

func (r Readiness) String() string {
	switch r {
	case ReadinessOpen:
		return "open"
	case ReadinessClosed:
		return "closed"
	case ReadinessBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// DeviceHandle is an opaque reference to a scanning device
type DeviceHandle string

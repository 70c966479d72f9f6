// Package errors provides structured error handling for the asset pipeline.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Remote feed errors
	CodeHTTPStatus   Code = "HTTP_STATUS"
	CodeQueryFailed  Code = "QUERY_FAILED"
	CodeQueryNoData  Code = "QUERY_NO_DATA"
	CodeDecodeFailed Code = "DECODE_FAILED"

	// Descriptor normalization errors
	CodeMapNameMissing    Code = "MAP_NAME_MISSING"
	CodeMapSourceMissing  Code = "MAP_SOURCE_MISSING"
	CodeMapMinZoomMissing Code = "MAP_MIN_ZOOM_MISSING"
	CodeMapMaxZoomMissing Code = "MAP_MAX_ZOOM_MISSING"
	CodeRotationInvalid   Code = "ROTATION_INVALID"

	// Render errors
	CodeSVGParseFailed  Code = "SVG_PARSE_FAILED"
	CodeTileFetchFailed Code = "TILE_FETCH_FAILED"
	CodeRasterEncode    Code = "RASTER_ENCODE_FAILED"

	// Persistence errors
	CodeBundleWrite Code = "BUNDLE_WRITE_FAILED"
	CodeCacheIO     Code = "CACHE_IO"
)

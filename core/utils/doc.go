// Package utils provides loose scalar conversions for values decoded from untyped sources
// such as YAML manifests and raw database rows.
package utils

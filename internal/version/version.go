// ABOUTME: Build version information
// ABOUTME: Product identity printed by the command line tools
package version

const (
	// Version is the release version
	Version = "0.1.0"

	// Product is the product name
	Product = "soundbridge"

	// Manufacturer identifies the project
	Manufacturer = "Resonate Protocol"
)

// String returns the product and version, e.g. "soundbridge 0.1.0"
func String() string {
	return Product + " " + Version
}

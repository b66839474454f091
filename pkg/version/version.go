package version

// Version represents the current version of edstream
const Version = "0.3.0"

// BuildVersion returns the version string for display
func BuildVersion() string {
	return "edstream version " + Version
}

// UserAgent is sent with every request to the service.
func UserAgent() string {
	return "edstream/" + Version
}

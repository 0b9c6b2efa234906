package version

// Version is the current version of warproom.
// Overridden at build time with:
//   go build -ldflags="-X 'github.com/BioHazard786/warproom/internal/version.Version=v1.0.0'"
var Version = "dev"

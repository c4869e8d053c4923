package version

// Version is overridden at build time with -ldflags "-X quotaflow-go/internal/version.Version=...".
var Version = "dev"

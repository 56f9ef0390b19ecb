// Package buildinfo holds version metadata stamped in at link time:
//
//	go build -ldflags "-X github.com/expensebook/sheetsync/internal/buildinfo.Version=v0.3.0"
package buildinfo

var (
	// Version is the release tag.
	Version = "dev"
	// Commit is the git revision the binary was built from.
	Commit = "none"
	// Date is the build timestamp.
	Date = "unknown"
)

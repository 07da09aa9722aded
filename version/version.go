package version

// Set at build time via -ldflags.
var (
	Version = "dev"
	Commit  = ""
)

// Get returns the current version, including the commit when one was baked in.
func Get() string {
	v := Version
	if v == "" {
		v = "dev"
	}
	if Commit != "" {
		v += " (" + Commit + ")"
	}
	return v
}

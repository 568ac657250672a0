package webfetch

var (
	NormalizeURL = normalizeURL
	Truncate     = truncate
)

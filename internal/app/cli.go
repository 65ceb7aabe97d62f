package app

import "github.com/spf13/pflag"

// RegisterFlags registers the server flags on the given FlagSet
func RegisterFlags(flags *pflag.FlagSet) {
	flags.StringP("transport", "t", "", "Transport type: stdio or sse")
	flags.StringP("host", "H", "", "Host for SSE transport")
	flags.IntP("port", "p", 0, "Port for SSE transport")
	flags.StringP("auth-type", "a", "", "Authentication type: none, basic, or apikey")
	flags.StringP("auth-basic-username", "u", "", "Basic auth username")
	flags.StringP("auth-basic-password", "P", "", "Basic auth password")
	flags.StringSliceP("auth-api-keys", "k", nil, "API keys (comma-separated)")
	RegisterEngineFlags(flags)
	RegisterCIFlags(flags)
}

// RegisterEngineFlags registers the ranking engine flags
func RegisterEngineFlags(flags *pflag.FlagSet) {
	flags.StringP("corpus", "c", "", "Corpus file (JSON or YAML list of document records)")
	flags.Int("audit-capacity", 0, "Number of audit events kept in memory")
	flags.StringP("mode", "m", "", "Default ranking mode: flexible or strict")
	flags.IntP("top-k", "n", 0, "Default number of results (0 = all)")
	flags.Bool("semantic", false, "Enable the TF-IDF semantic signal by default")
	flags.Bool("fuzzy", false, "Enable fuzzy name matching by default")
	flags.Int64("max-content-bytes", 0, "Maximum bytes read when extracting document text")
	flags.String("export-dir", "", "Directory for audit exports")
	flags.String("weights-file", "", "JSON or YAML file with custom signal weights")
}

// RegisterCIFlags registers the snapshot diff and policy flags
func RegisterCIFlags(flags *pflag.FlagSet) {
	flags.Float64("max-down-pct", 0, "Fail when more than this percentage of common documents moved down")
	flags.Float64("max-negative-delta-score", 0, "Fail when the average final score dropped by more than this")
	flags.Int("top-n", 0, "Number of largest rank changes to report")
	flags.StringP("out-dir", "o", "", "Directory for diff reports")
}

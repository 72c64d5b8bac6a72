package discover

const (
	programName        = "ndi-discover"
	programDescription = "Discovers NDI sources on the network"

	defaultTimeoutSeconds = 5
	extraIPsEnvVar        = "NDI_EXTRA_IPS"

	timeoutFlag      = "timeout"
	timeoutShorthand = "t"
)

// usageTemplate is formatted with the name of the extra IPs variable.
const usageTemplate = `Usage:
  {{.UseLine}}{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command]{{end}}{{with .Long}}

{{.}}{{end}}

Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}{{if .HasAvailableSubCommands}}

Available Commands:{{range .Commands}}{{if .IsAvailableCommand}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{end}}

Environment:
  %s  Comma-separated list of extra IPs for discovery
`

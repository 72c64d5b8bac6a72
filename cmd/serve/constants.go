package serve

import (
	"time"
)

const (
	programDescription     = "NDI discovery gateway"
	programLongDescription = `Serves the discovered NDI sources over HTTP and manages the list of extra IPs
queried beyond the local network, initially read from the --extra-ips-env-var variable.`

	serverListenAddress           = "127.0.0.1:5000"
	serverIdleTimeout             = 15 * time.Second
	serverReadTimeout             = 15 * time.Second
	serverWriteTimeout            = 60 * time.Second
	serverGracefulShutdownTimeout = 30 * time.Second

	discoveryTimeout = 8 * time.Second
	extraIPsEnvVar   = "NDI_EXTRA_IPS"
)

const usageTemplate = `Usage:
  {{.UseLine}}{{if .HasAvailableLocalFlags}}

Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasAvailableInheritedFlags}}

Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}
`

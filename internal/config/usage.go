package config

import (
	"flag"
	"fmt"
	"io"
)

// aliases maps short flag names to their long form
var aliases = map[string]string{
	"p": "path",
	"r": "recursive",
	"e": "enable-webservice",
	"a": "address",
	"o": "port",
	"c": "config",
}

// stringFlag registers a string flag under its long and short names
func stringFlag(fs *flag.FlagSet, p *string, name, short string) {
	fs.StringVar(p, name, "", "")
	fs.StringVar(p, short, "", "")
}

func canonical(name string) string {
	if long, ok := aliases[name]; ok {
		return long
	}
	return name
}

func PrintUsage(out io.Writer) {
	fmt.Fprintf(out, "Usage: %s --path PATH --recursive BOOL [options]\n", programName)
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Watch a directory for created and deleted files and report them to a webservice")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Options:")
	writeOption(out, "-p, --path PATH", "Path to watch (required)")
	writeOption(out, "-r, --recursive BOOL", "Watch subdirectories too (required)")
	writeOption(out, "-e, --enable-webservice BOOL", "Send events to the webservice")
	writeOption(out, "-a, --address ADDR", "Webservice address, required with --enable-webservice")
	writeOption(out, "-o, --port PORT", "Webservice port, required with --enable-webservice")
	writeOption(out, "-c, --config FILE", "YAML config file; flags take precedence")
	writeOption(out, "--interval DURATION", "Time between detection cycles (default: 5s)")
	writeOption(out, "--timeout DURATION", "Webservice request timeout (default: 3s)")
	writeOption(out, "--backend poll|notify", "Change detection backend (default: poll)")
	writeOption(out, "--log-level LEVEL", "debug, info, warn or error (default: info)")
	writeOption(out, "--log-output PATH", "stdout or a file to append to (default: stdout)")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Webservice requests:")
	fmt.Fprintln(out, "  GET {address}:{port}/created/{path}")
	fmt.Fprintln(out, "  GET {address}:{port}/deleted/{path}")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Exit codes:")
	fmt.Fprintln(out, "  0  Stopped by interrupt")
	fmt.Fprintln(out, "  1  Usage or startup error")
}

func writeOption(out io.Writer, name, desc string) {
	fmt.Fprintf(out, "  %-30s %s\n", name, desc)
}

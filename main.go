package main

import (
	"errors"
	"flag"
	"os"
	"strings"

	"grimm.is/phoque/cmd"
	"grimm.is/phoque/internal/brand"
	"grimm.is/phoque/internal/firewall"
	"grimm.is/phoque/internal/tui"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "list", "ls":
		fs, configFile := newFlagSet("list")
		fs.Parse(os.Args[2:])
		err = cmd.RunList(*configFile)

	case "add":
		fs, configFile := newFlagSet("add")
		dir := fs.String("dir", "IN", "Direction: IN, OUT or FORWARD")
		proto := fs.String("proto", "TCP", "Protocol: TCP, UDP or ICMP")
		port := fs.String("port", "", "Port: 80, 1000-2000 or * (ignored for ICMP)")
		action := fs.String("action", "ALLOW", "Action: ALLOW, DENY or REJECT")
		stage := fs.Bool("stage", false, "Create the rule inactive")
		interactive := fs.Bool("i", false, "Fill in the rule interactively")
		fs.Parse(os.Args[2:])

		in := tui.RuleInput{Direction: *dir, Protocol: *proto, Port: *port, Action: *action, Stage: *stage}
		err = cmd.RunAdd(*configFile, in, *interactive)

	case "edit":
		id, rest := splitID(os.Args[2:])
		fs, configFile := newFlagSet("edit")
		dir := fs.String("dir", "", "New direction")
		proto := fs.String("proto", "", "New protocol")
		port := fs.String("port", "", "New port")
		action := fs.String("action", "", "New action")
		stage := fs.Bool("stage", false, "Make the rule inactive")
		activate := fs.Bool("activate", false, "Make the rule active")
		interactive := fs.Bool("i", false, "Edit the rule interactively")
		fs.Parse(rest)
		if id == "" {
			id = fs.Arg(0)
		}
		requireID("edit", id)

		var changes cmd.RuleChanges
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "dir":
				changes.Direction = dir
			case "proto":
				changes.Protocol = proto
			case "port":
				changes.Port = port
			case "action":
				changes.Action = action
			case "stage", "activate":
				active := *activate && !*stage
				changes.Active = &active
			}
		})
		err = cmd.RunEdit(*configFile, id, changes, *interactive)

	case "rm", "remove":
		id, rest := splitID(os.Args[2:])
		fs, configFile := newFlagSet("rm")
		yes := fs.Bool("y", false, "Do not ask for confirmation")
		fs.Parse(rest)
		if id == "" {
			id = fs.Arg(0)
		}
		requireID("rm", id)
		err = cmd.RunRemove(*configFile, id, *yes)

	case "toggle":
		id, rest := splitID(os.Args[2:])
		fs, configFile := newFlagSet("toggle")
		fs.Parse(rest)
		if id == "" {
			id = fs.Arg(0)
		}
		requireID("toggle", id)
		err = cmd.RunToggle(*configFile, id)

	case "toggle-all":
		fs, configFile := newFlagSet("toggle-all")
		fs.Parse(os.Args[2:])
		err = cmd.RunToggleAll(*configFile)

	case "apply":
		fs, configFile := newFlagSet("apply")
		dryRun := fs.Bool("dry-run", false, "Print the commands without running them")
		fs.BoolVar(dryRun, "n", false, "Dry run (short)")
		fs.Parse(os.Args[2:])
		err = cmd.RunApply(*configFile, *dryRun)

	case "diff":
		fs, configFile := newFlagSet("diff")
		fs.Parse(os.Args[2:])
		err = cmd.RunDiff(*configFile)

	case "check":
		fs, configFile := newFlagSet("check")
		verbose := fs.Bool("verbose", false, "Print the effective configuration")
		fs.BoolVar(verbose, "v", false, "Verbose output (short)")
		fs.Parse(os.Args[2:])
		err = cmd.RunCheck(*configFile, *verbose)

	case "version":
		cmd.Printer.Printf("%s %s (%s)\n", brand.LowerName, brand.Version, brand.GitCommit)

	case "help", "-h", "--help":
		printUsage()

	default:
		cmd.Printer.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		var platform *firewall.UnsupportedPlatformError
		if errors.As(err, &platform) {
			cmd.Printer.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(2)
		}
		cmd.Printer.Fprintf(os.Stderr, "%s %s failed: %v\n", brand.BinaryName, os.Args[1], err)
		os.Exit(1)
	}
}

// newFlagSet returns a flag set carrying the shared -config/-c flag.
func newFlagSet(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	configFile := fs.String("config", brand.DefaultConfigPath(), "Configuration file")
	fs.StringVar(configFile, "c", brand.DefaultConfigPath(), "Configuration file (short)")
	return fs, configFile
}

// splitID lets the rule id come before the flags, as in "edit 1a2b3c4d -port 443".
func splitID(args []string) (string, []string) {
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		return args[0], args[1:]
	}
	return "", args
}

func requireID(command, id string) {
	if id == "" {
		cmd.Printer.Fprintf(os.Stderr, "usage: %s %s <id>\n", brand.BinaryName, command)
		os.Exit(1)
	}
}

func printUsage() {
	cmd.Printer.Printf(`%s - %s

Usage:
  %s <command> [options]

Rule Commands:
  list        Show the rule list
  add         Add a rule (stored, not applied)
              Options: -dir, -proto, -port, -action, -stage, -i
  edit <id>   Change a rule; the id is kept
              Options: -dir, -proto, -port, -action, -stage, -activate, -i
  rm <id>     Remove a rule
              Options: -y
  toggle <id> Flip a rule between active and inactive, then apply
  toggle-all  Deactivate all rules if all are active, otherwise activate
              the rest, then apply

Filter Commands:
  apply       Remove previously applied rules and install the rule list
              Options: --dry-run (-n)
  diff        Compare the filter with the rule list
  check       Validate configuration and stored rules
              Options: --verbose (-v)

Every command accepts --config (-c) <file> (default %s).

Examples:
  %s add -dir in -proto tcp -port 22 -action allow
  %s add -dir in -proto udp -port 1000-2000 -action deny -stage
  %s apply -n
  %s toggle 1a2b3c4d
`,
		brand.Name, brand.Description,
		brand.BinaryName,
		brand.DefaultConfigPath(),
		brand.BinaryName, brand.BinaryName, brand.BinaryName, brand.BinaryName)
}

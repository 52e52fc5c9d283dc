package main

import (
	"flag"
	"fmt"
	"os"

	"faceclock/pkg/config"
	"faceclock/pkg/logging"
)

const version = "0.1.0"

// Command represents a CLI command.
type Command struct {
	Name        string
	Description string
	Usage       string
	Run         func(args []string) error
}

var (
	cfg      *config.Config
	commands map[string]*Command
)

func init() {
	commands = map[string]*Command{
		"run": {
			Name:        "run",
			Description: "Run the kiosk attendance agent",
			Usage:       "faceclock run",
			Run:         cmdRun,
		},
		"login": {
			Name:        "login",
			Description: "Log in to the HR platform and store the token",
			Usage:       "faceclock login <email>",
			Run:         cmdLogin,
		},
		"logout": {
			Name:        "logout",
			Description: "Remove the stored token",
			Usage:       "faceclock logout",
			Run:         cmdLogout,
		},
		"status": {
			Name:        "status",
			Description: "Show the state of a running agent",
			Usage:       "faceclock status",
			Run:         cmdStatus,
		},
		"config": {
			Name:        "config",
			Description: "Show current configuration",
			Usage:       "faceclock config",
			Run:         cmdConfig,
		},
		"version": {
			Name:        "version",
			Description: "Show version information",
			Usage:       "faceclock version",
			Run:         cmdVersion,
		},
		"help": {
			Name:        "help",
			Description: "Show help information",
			Usage:       "faceclock help [command]",
			Run:         cmdHelp,
		},
	}
}

func main() {
	configFile := flag.String("config", "", "Path to configuration file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	args := flag.Args()

	var err error
	if *configFile != "" {
		cfg, err = config.Load(*configFile)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not load config: %v\n", err)
		cfg = config.DefaultConfig()
	}
	cfg.ExpandPaths()

	logLevel := cfg.Logging.Level
	if *debug {
		logLevel = "debug"
	}
	if err := logging.Init(logLevel, cfg.Logging.File, cfg.Logging.JSON); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not initialize file logging: %v\n", err)
	}

	logging.Debugf("faceclock v%s starting", version)

	if len(args) < 1 {
		printUsage()
		os.Exit(0)
	}

	cmdName := args[0]
	cmd, ok := commands[cmdName]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmdName)
		printUsage()
		os.Exit(1)
	}

	if err := cmd.Run(args[1:]); err != nil {
		logging.WithError(err).Errorf("Command '%s' failed", cmdName)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("faceclock - Face Check-In Kiosk Agent")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Usage: faceclock [options] <command> [arguments]")
	fmt.Println("\nOptions:")
	fmt.Println("  -config <file>   Path to configuration file")
	fmt.Println("  -debug           Enable debug logging")
	fmt.Println("\nCommands:")
	for _, name := range []string{"run", "login", "logout", "status", "config", "version", "help"} {
		cmd := commands[name]
		fmt.Printf("  %-12s %s\n", cmd.Name, cmd.Description)
	}
	fmt.Println("\nExamples:")
	fmt.Println("  faceclock login hr-kiosk@example.com   # Store a platform token")
	fmt.Println("  faceclock run                          # Start the agent")
	fmt.Println("  faceclock -debug run                   # Start with debug output")
	fmt.Println("\nRun 'faceclock help <command>' for more information on a command.")
}

func cmdVersion(args []string) error {
	fmt.Printf("faceclock version %s\n", version)
	return nil
}

func cmdHelp(args []string) error {
	if len(args) < 1 {
		printUsage()
		return nil
	}

	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command: %s", args[0])
	}

	fmt.Printf("%s - %s\n", cmd.Name, cmd.Description)
	fmt.Printf("Usage: %s\n", cmd.Usage)
	return nil
}

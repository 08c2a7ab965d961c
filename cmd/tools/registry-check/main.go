// cmd/tools/registry-check/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"resource-discovery/internal/discovery/orchestrator"
	"resource-discovery/pkg/registry"
)

var registryPath string

func main() {
	initCmd := flag.NewFlagSet("init", flag.ExitOnError)
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	listCmd := flag.NewFlagSet("list", flag.ExitOnError)

	for _, fs := range []*flag.FlagSet{initCmd, updateCmd, validateCmd, listCmd} {
		fs.StringVar(&registryPath, "path", "configs/endpoint-registry.json", "Path to registry file")
	}
	force := initCmd.Bool("force", false, "Overwrite an existing file")

	id := updateCmd.String("id", "", "Endpoint ID (e.g., crisis-support-ai)")
	field := updateCmd.String("field", "", "Field to update (anonymous, authenticated, window, lookupLimit, promptCap, presentationCap, webSearch, transport)")
	value := updateCmd.String("value", "", "New value for the field")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init":
		initCmd.Parse(os.Args[2:])
		if err := initRegistry(*force); err != nil {
			fmt.Printf("Error writing registry: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote default registry to %s\n", registryPath)

	case "update":
		updateCmd.Parse(os.Args[2:])
		if *id == "" || *field == "" || *value == "" {
			fmt.Println("Error: id, field, and value are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		if err := updateEndpoint(*id, *field, *value); err != nil {
			fmt.Printf("Error updating endpoint: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated endpoint %s, field %s to %s\n", *id, *field, *value)

	case "validate":
		validateCmd.Parse(os.Args[2:])
		if err := validateRegistry(); err != nil {
			fmt.Printf("Registry validation failed: %v\n", err)
			os.Exit(1)
		}

	case "list":
		listCmd.Parse(os.Args[2:])
		if err := listEndpoints(); err != nil {
			fmt.Printf("Error listing endpoints: %v\n", err)
			os.Exit(1)
		}

	case "help":
		fallthrough
	default:
		help()
	}
}

func initRegistry(force bool) error {
	if _, err := os.Stat(registryPath); err == nil && !force {
		return fmt.Errorf("%s already exists (use -force to overwrite)", registryPath)
	}
	reg := registry.Default()
	reg.LastUpdated = time.Now().Format(time.RFC3339)
	return saveRegistry(reg, registryPath)
}

func updateEndpoint(id, field, value string) error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	ep, ok := reg.Lookup(id)
	if !ok {
		return fmt.Errorf("endpoint with ID %s not found", id)
	}

	switch field {
	case "transport":
		ep.Transport = value
	case "webSearch":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid webSearch value: %w", err)
		}
		ep.WebSearch = b
	case "anonymous", "authenticated", "window", "lookupLimit", "promptCap", "presentationCap":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid %s value: %w", field, err)
		}
		switch field {
		case "anonymous":
			ep.RateLimit.Anonymous = n
		case "authenticated":
			ep.RateLimit.Authenticated = n
		case "window":
			ep.RateLimit.WindowMinutes = n
		case "lookupLimit":
			ep.Catalog.LookupLimit = n
		case "promptCap":
			ep.Catalog.PromptCap = n
		case "presentationCap":
			ep.Ranking.PresentationCap = n
		}
	default:
		return fmt.Errorf("unknown field: %s", field)
	}

	if err := reg.Validate(); err != nil {
		return err
	}
	reg.LastUpdated = time.Now().Format(time.RFC3339)
	return saveRegistry(reg, registryPath)
}

// validateRegistry runs the schema and rule checks, then resolves every
// endpoint the way the server does at startup.
func validateRegistry() error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return err
	}
	for _, ep := range reg.Endpoints {
		if _, err := orchestrator.ProfileFromEndpoint(ep); err != nil {
			return err
		}
	}
	fmt.Printf("Registry validation passed. Found %d endpoints.\n", len(reg.Endpoints))
	return nil
}

func listEndpoints() error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return err
	}
	for _, ep := range reg.Endpoints {
		fmt.Printf("%-24s %-17s %-8s %3d/%-4d per %4dm  web=%t\n",
			ep.ID, ep.Persona, ep.Transport,
			ep.RateLimit.Anonymous, ep.RateLimit.Authenticated, ep.RateLimit.WindowMinutes,
			ep.WebSearch)
	}
	return nil
}

// saveRegistry handles saving the registry to file
func saveRegistry(reg *registry.EndpointRegistry, path string) error {
	data, err := reg.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

func help() {
	fmt.Print(`
Usage: registry-check <command> [flags]

Commands:
  init     Write the built-in endpoint registry to a file
  update   Update one field of an endpoint
  validate Validate the registry file
  list     Print a summary of every endpoint
  help     Show this help message

Examples:
  registry-check init -path configs/endpoint-registry.json
  registry-check update -id reentry-navigator-ai -field anonymous -value 10
  registry-check validate -path configs/endpoint-registry.json

Use 'registry-check <command> -h' for more information about a command.
`)
}

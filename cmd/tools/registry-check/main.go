// cmd/tools/registry-check/main.go
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"

	"care-match-workers/internal/common/config"
	"care-match-workers/internal/common/errors"
	"care-match-workers/internal/common/validation"
	"care-match-workers/pkg/registry"
)

func main() {
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	validatePath := validateCmd.String("path", "", "Registry file (defaults to the embedded registry)")
	validateConfigPath := validateCmd.String("config", "", "Worker config file to cross-check against the registry")

	checkCmd := flag.NewFlagSet("check", flag.ExitOnError)
	checkPath := checkCmd.String("path", "", "Registry file (defaults to the embedded registry)")
	taskType := checkCmd.String("taskType", "", "Task type whose input schema to apply")
	varsFile := checkCmd.String("vars", "", "JSON file with the job variables")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "validate":
		validateCmd.Parse(os.Args[2:])
		reg := mustLoad(*validatePath)
		problems := validateRegistry(reg)
		if *validateConfigPath != "" {
			cfg, err := config.LoadFromFile(*validateConfigPath)
			if err != nil {
				fmt.Printf("Error loading config: %v\n", err)
				os.Exit(1)
			}
			problems = append(problems, checkWorkerConfig(cfg, reg)...)
		}
		if len(problems) > 0 {
			for _, p := range problems {
				fmt.Println("  -", p)
			}
			os.Exit(1)
		}
		fmt.Printf("Registry %s is valid (%d activities)\n", reg.Version, len(reg.Activities))

	case "check":
		checkCmd.Parse(os.Args[2:])
		if *taskType == "" || *varsFile == "" {
			fmt.Println("Error: taskType and vars are required for check.")
			checkCmd.Usage()
			os.Exit(1)
		}
		if err := checkVariables(mustLoad(*checkPath), *taskType, *varsFile); err != nil {
			fmt.Printf("Variables rejected: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Variables accepted by %s\n", *taskType)

	default:
		help()
		os.Exit(1)
	}
}

func mustLoad(path string) *registry.ActivityRegistry {
	var (
		reg *registry.ActivityRegistry
		err error
	)
	if path == "" {
		reg, err = registry.Load()
	} else {
		reg, err = registry.LoadRegistry(path)
	}
	if err != nil {
		fmt.Printf("Error loading registry: %v\n", err)
		os.Exit(1)
	}
	return reg
}

// validateRegistry reports duplicate task types, schemas that do not compile,
// unparseable timeouts and error codes no worker can produce.
func validateRegistry(reg *registry.ActivityRegistry) []string {
	var problems []string

	known := make(map[string]bool, len(errors.BPMNErrorMapping))
	for _, code := range errors.BPMNErrorMapping {
		known[code] = true
	}

	seen := make(map[string]bool)
	for _, a := range reg.Activities {
		if a.TaskType == "" {
			problems = append(problems, fmt.Sprintf("activity %q has no taskType", a.ID))
			continue
		}
		if seen[a.TaskType] {
			problems = append(problems, fmt.Sprintf("taskType %q is registered twice", a.TaskType))
		}
		seen[a.TaskType] = true

		if a.Timeout != "" && a.TimeoutDuration(0) == 0 {
			problems = append(problems, fmt.Sprintf("%s: invalid timeout %q", a.TaskType, a.Timeout))
		}
		for _, code := range a.ErrorCodes {
			if !known[code] {
				problems = append(problems, fmt.Sprintf("%s: unknown error code %s", a.TaskType, code))
			}
		}
	}

	if _, err := validation.NewSchemaValidator(reg); err != nil {
		problems = append(problems, err.Error())
	}

	sort.Strings(problems)
	return problems
}

// checkWorkerConfig reports configured workers the registry does not know and
// worker timeouts longer than the activity allows.
func checkWorkerConfig(cfg *config.Config, reg *registry.ActivityRegistry) []string {
	var problems []string
	for name, wc := range cfg.Workers {
		activity, ok := reg.Find(name)
		if !ok {
			problems = append(problems, fmt.Sprintf("workers.%s: no registry activity", name))
			continue
		}
		limit := activity.TimeoutDuration(0)
		if timeout := config.GetDuration(wc.Timeout); limit > 0 && timeout > limit {
			problems = append(problems, fmt.Sprintf("workers.%s: timeout %s exceeds registry timeout %s", name, timeout, limit))
		}
	}
	sort.Strings(problems)
	return problems
}

func checkVariables(reg *registry.ActivityRegistry, taskType, path string) error {
	if _, ok := reg.Find(taskType); !ok {
		return fmt.Errorf("task type %s is not registered", taskType)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var variables map[string]interface{}
	if err := json.Unmarshal(data, &variables); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	validator, err := validation.NewSchemaValidator(reg)
	if err != nil {
		return err
	}
	return validator.ValidateInput(taskType, variables)
}

func help() {
	fmt.Println("Usage: registry-check <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  validate  Check the activity registry for consistency")
	fmt.Println("  check     Validate a job variables file against a task input schema")
}

// cmd/tools/catalog-updater/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"smartlocker-workers/pkg/catalog"
)

var catalogPath = "configs/task-catalog.json"

func main() {
	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)

	// Add command flags
	idAdd := addCmd.String("id", "", "Task ID (e.g., send-approval-request)")
	displayName := addCmd.String("displayName", "", "Display Name (e.g., Send Approval Request)")
	description := addCmd.String("description", "", "Description")
	category := addCmd.String("category", "", "Category (messaging, booking, locker, otp, notification)")
	taskType := addCmd.String("taskType", "", "Zeebe task type (usually the same as the ID)")
	version := addCmd.String("version", "1.0.0", "Version")
	implStatus := addCmd.String("status", "planned", "Implementation Status (planned, in-progress, completed, verified)")

	// Update command flags
	idUpdate := updateCmd.String("id", "", "Task ID to update")
	field := updateCmd.String("field", "", "Field to update (status, version, etc.)")
	value := updateCmd.String("value", "", "New value for the field")

	// Validate command flags
	validateCmd.StringVar(&catalogPath, "path", catalogPath, "Path to catalog file")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "add":
		addCmd.Parse(os.Args[2:])
		if *idAdd == "" || *displayName == "" || *description == "" || *category == "" || *taskType == "" {
			fmt.Println("Error: id, displayName, description, category, and taskType are required for add.")
			addCmd.Usage()
			os.Exit(1)
		}
		task := catalog.Task{
			ID:                   *idAdd,
			DisplayName:          *displayName,
			Description:          *description,
			Category:             *category,
			Version:              *version,
			TaskType:             *taskType,
			ImplementationStatus: *implStatus,
			InputSchema:          map[string]interface{}{},
			OutputSchema:         map[string]interface{}{},
			ErrorCodes:           []string{},
			Timeout:              "30s",
			Retries:              3,
			Workflows:            []string{},
			Tags:                 []string{},
		}
		if err := addTask(&task); err != nil {
			fmt.Printf("Error adding task: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Added task: %s\n", *idAdd)

	case "update":
		updateCmd.Parse(os.Args[2:])
		if *idUpdate == "" || *field == "" || *value == "" {
			fmt.Println("Error: id, field, and value are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		if err := updateTask(*idUpdate, *field, *value); err != nil {
			fmt.Printf("Error updating task: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated task %s, field %s to %s\n", *idUpdate, *field, *value)

	case "validate":
		validateCmd.Parse(os.Args[2:])
		cat, err := catalog.Load(catalogPath)
		if err != nil {
			fmt.Printf("Failed to load catalog: %v\n", err)
			os.Exit(1)
		}
		if err := cat.Validate(); err != nil {
			fmt.Printf("Catalog validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Catalog validation passed. Found %d tasks.\n", len(cat.Tasks))

	case "help":
		fallthrough
	default:
		help()
	}
}

func addTask(task *catalog.Task) error {
	cat, err := catalog.Load(catalogPath)
	if err != nil {
		if os.IsNotExist(err) {
			cat = &catalog.TaskCatalog{
				Version:     "1.0.0",
				LastUpdated: time.Now().Format(time.RFC3339),
				Tasks:       []catalog.Task{},
			}
		} else {
			return fmt.Errorf("failed to load catalog: %w", err)
		}
	}

	if cat.Find(task.ID) != nil {
		return fmt.Errorf("task with ID %s already exists", task.ID)
	}

	cat.Tasks = append(cat.Tasks, *task)
	cat.LastUpdated = time.Now().Format(time.RFC3339)

	return catalog.Save(cat, catalogPath)
}

func updateTask(id, field, value string) error {
	cat, err := catalog.Load(catalogPath)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	task := cat.Find(id)
	if task == nil {
		return fmt.Errorf("task with ID %s not found", id)
	}

	switch field {
	case "status":
		task.ImplementationStatus = value
	case "version":
		task.Version = value
	case "displayName":
		task.DisplayName = value
	case "description":
		task.Description = value
	case "category":
		task.Category = value
	case "taskType":
		task.TaskType = value
	case "timeout":
		task.Timeout = value
	case "retries":
		retries, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid retries value: %w", err)
		}
		task.Retries = retries
	default:
		return fmt.Errorf("unknown field: %s", field)
	}

	cat.LastUpdated = time.Now().Format(time.RFC3339)
	return catalog.Save(cat, catalogPath)
}

func help() {
	fmt.Println(`
Usage: catalog-updater <command> [flags]

Commands:
  add      Add a new task to the catalog
  update   Update an existing task's field
  validate Validate the catalog file
  help     Show this help message

Examples:
  catalog-updater add -id send-approval-request -displayName "Send Approval Request" -description "Sends the delivery approval prompt over WhatsApp" -category messaging -taskType send-approval-request
  catalog-updater update -id send-approval-request -field status -value verified
  catalog-updater validate -path configs/task-catalog.json

Use 'catalog-updater <command> -h' for more information about a command.`)
}

// pkg/catalog/catalog.go
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xeipuuv/gojsonschema"

	"smartlocker-workers/internal/common/validation"
)

func Load(path string) (*TaskCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cat TaskCatalog
	err = json.Unmarshal(data, &cat)
	return &cat, err
}

func Save(cat *TaskCatalog, path string) error {
	data, err := json.MarshalIndent(cat, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write catalog file: %w", err)
	}
	return nil
}

// Find returns the task with the given ID, or nil.
func (c *TaskCatalog) Find(id string) *Task {
	for i := range c.Tasks {
		if c.Tasks[i].ID == id {
			return &c.Tasks[i]
		}
	}
	return nil
}

// Validate checks structural invariants: no duplicate IDs or task types and
// no missing required fields.
func (c *TaskCatalog) Validate() error {
	if len(c.Tasks) == 0 {
		return fmt.Errorf("catalog contains no tasks")
	}

	ids := make(map[string]bool)
	taskTypes := make(map[string]bool)
	for _, task := range c.Tasks {
		if task.ID == "" {
			return fmt.Errorf("task missing required field: ID")
		}
		if ids[task.ID] {
			return fmt.Errorf("duplicate task ID: %s", task.ID)
		}
		ids[task.ID] = true

		if task.DisplayName == "" {
			return fmt.Errorf("task %s missing required field: DisplayName", task.ID)
		}
		if task.TaskType == "" {
			return fmt.Errorf("task %s missing required field: TaskType", task.ID)
		}
		if taskTypes[task.TaskType] {
			return fmt.Errorf("duplicate task type: %s", task.TaskType)
		}
		taskTypes[task.TaskType] = true

		if task.Category == "" {
			return fmt.Errorf("task %s missing required field: Category", task.ID)
		}

		if len(task.InputSchema) > 0 {
			if err := checkSchema(task.InputSchema); err != nil {
				return fmt.Errorf("task %s has invalid input schema: %w", task.ID, err)
			}
		}
		if len(task.OutputSchema) > 0 {
			if err := checkSchema(task.OutputSchema); err != nil {
				return fmt.Errorf("task %s has invalid output schema: %w", task.ID, err)
			}
		}
	}
	return nil
}

// checkSchema runs a schema both through the internal representation used
// for job-variable validation and through a full JSON Schema compile, so a
// catalog entry that either side would reject fails validation up front.
func checkSchema(m map[string]interface{}) error {
	if _, err := validation.SchemaFromMap(m); err != nil {
		return err
	}
	if _, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(m)); err != nil {
		return fmt.Errorf("schema does not compile: %w", err)
	}
	return nil
}

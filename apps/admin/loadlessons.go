package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/akilisha/funzo/core/lesson"
)

// loadLessons reads authored lesson content from a JSON fixture and upserts
// it into the catalog. Reloading the same fixture is idempotent.
func (cli *commandLine) loadLessons(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var lessons []lesson.Lesson
	if err := json.NewDecoder(f).Decode(&lessons); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}

	if err := cli.lsnSvc.Load(context.Background(), lessons...); err != nil {
		return err
	}
	logger.Printf("loaded %d lessons from %s", len(lessons), path)
	return nil
}

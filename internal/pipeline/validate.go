package pipeline

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/mwierzba/factgraph/internal/db"
	"github.com/mwierzba/factgraph/internal/models"
)

// ValidationError describes why a submitted batch was rejected. Index is
// the position of the offending item, or -1 for batch-level problems.
type ValidationError struct {
	Index   int
	Message string
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return e.Message
	}
	return fmt.Sprintf("item %d: %s", e.Index, e.Message)
}

// ValidateItems checks a submitted batch before anything is persisted.
// Validation stops at the first failing item. On success every spec is
// returned as an insert row with its position set.
func ValidateItems(specs []models.ItemSpec) ([]db.ItemInsert, error) {
	if len(specs) == 0 {
		return nil, &ValidationError{Index: -1, Message: "items list cannot be empty"}
	}

	inserts := make([]db.ItemInsert, 0, len(specs))
	for i, spec := range specs {
		insert, err := validateItem(spec)
		if err != nil {
			return nil, &ValidationError{Index: i, Message: err.Error()}
		}
		insert.Position = i
		inserts = append(inserts, insert)
	}
	return inserts, nil
}

func validateItem(spec models.ItemSpec) (db.ItemInsert, error) {
	itemType := models.ItemType(spec.Type)
	switch itemType {
	case models.ItemTypeText, models.ItemTypeFile, models.ItemTypeLink:
	case "":
		return db.ItemInsert{}, fmt.Errorf("item must have 'type' field")
	default:
		return db.ItemInsert{}, fmt.Errorf("invalid type: %s, must be one of text, file, link", spec.Type)
	}

	if spec.Content == "" {
		return db.ItemInsert{}, fmt.Errorf("item content cannot be empty")
	}

	switch itemType {
	case models.ItemTypeFile:
		if _, err := base64.StdEncoding.DecodeString(spec.Content); err != nil {
			return db.ItemInsert{}, fmt.Errorf("file content must be a valid base64 encoded string: %v", err)
		}
	case models.ItemTypeLink:
		content := strings.TrimSpace(spec.Content)
		if !strings.HasPrefix(content, "http://") && !strings.HasPrefix(content, "https://") {
			return db.ItemInsert{}, fmt.Errorf("link content must be a valid URL starting with the http:// or https:// scheme")
		}
	}

	wage, err := parseWage(spec.Wage)
	if err != nil {
		return db.ItemInsert{}, err
	}

	return db.ItemInsert{
		Type:    itemType,
		Content: spec.Content,
		Wage:    wage,
	}, nil
}

// parseWage accepts the numeric forms JSON can deliver a wage in. A
// numeric string is tolerated the way the rest of the API tolerates it.
func parseWage(raw any) (*float64, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case float64:
		return &v, nil
	case int:
		f := float64(v)
		return &f, nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("wage must be a valid number")
		}
		return &f, nil
	default:
		return nil, fmt.Errorf("wage must be a valid number")
	}
}

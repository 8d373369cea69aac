package debezium

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"nodegraph/src/domain"
	"nodegraph/src/domain/entities"
)

// CDCSerializer handles parsing and validation of CDC messages
type CDCSerializer struct {
	IncludeTables []string
}

// IsTableMonitored checks if table should be processed
func (s *CDCSerializer) IsTableMonitored(tableName string) bool {
	for _, included := range s.IncludeTables {
		// Exact match
		if tableName == included {
			return true
		}
		// nodes_* também casa com partições (nodes_p2025)
		if strings.HasSuffix(included, "*") {
			prefix := strings.TrimSuffix(included, "*")
			if strings.HasPrefix(tableName, prefix) {
				return true
			}
		}
	}
	return false
}

// ParseCDCEvent deserializes Kafka message to CDC event
func (s *CDCSerializer) ParseCDCEvent(messageValue []byte) (*CDCEvent, error) {
	var cdcEvent CDCEvent
	if err := json.Unmarshal(messageValue, &cdcEvent); err != nil {
		return nil, fmt.Errorf("failed to unmarshal CDC event: %w", err)
	}

	if err := s.validateCDCEvent(&cdcEvent); err != nil {
		return nil, fmt.Errorf("invalid CDC event: %w", err)
	}

	return &cdcEvent, nil
}

func (s *CDCSerializer) validateCDCEvent(event *CDCEvent) error {
	if event.Source.Table == "" {
		return fmt.Errorf("missing source table")
	}

	validOps := map[string]bool{"c": true, "u": true, "d": true, "r": true}
	if !validOps[event.Operation] {
		return fmt.Errorf("invalid operation: %q", event.Operation)
	}

	if event.Operation == "d" && event.Before == nil {
		return fmt.Errorf("missing 'before' data for delete operation")
	}

	if event.Operation != "d" && event.After == nil {
		return fmt.Errorf("missing 'after' data for operation %s", event.Operation)
	}

	return nil
}

// ShouldProcessEvent filters by table. Snapshot reads are processed like inserts.
func (s *CDCSerializer) ShouldProcessEvent(event *CDCEvent) bool {
	return s.IsTableMonitored(event.Source.Table)
}

// MapCDCOperation converts CDC operation code to a change type
func MapCDCOperation(cdcOp string) domain.ChangeType {
	switch cdcOp {
	case "u":
		return domain.ChangeUpdated
	case "d":
		return domain.ChangeDeleted
	default:
		// c e r (snapshot)
		return domain.ChangeCreated
	}
}

// ToChangeEvent maps a row of the nodes table to the event the application would have
// published for the same write.
func (s *CDCSerializer) ToChangeEvent(event *CDCEvent) (domain.ChangeEvent, error) {
	row := event.Row()

	rec := entities.Record{
		Metadata: entities.Metadata{
			GlobalID:        stringColumn(row, "global_id"),
			OwnerID:         stringColumn(row, "owner_id"),
			ClassName:       stringColumn(row, "class_name"),
			SourceID:        stringColumn(row, "source_id"),
			SourceClassName: stringColumn(row, "source_class_name"),
			TargetID:        stringColumn(row, "target_id"),
			TargetClassName: stringColumn(row, "target_class_name"),
		},
	}
	if rec.Metadata.GlobalID == "" {
		return domain.ChangeEvent{}, fmt.Errorf("row of %s has no global_id", event.Source.Table)
	}

	sortValue, err := int64Column(row, "sort_value")
	if err != nil {
		return domain.ChangeEvent{}, fmt.Errorf("row %s: %w", rec.Metadata.GlobalID, err)
	}
	rec.Metadata.SortValue = sortValue

	changeType := MapCDCOperation(event.Operation)
	if changeType != domain.ChangeDeleted {
		props, err := propsColumn(row, "props")
		if err != nil {
			return domain.ChangeEvent{}, fmt.Errorf("row %s: %w", rec.Metadata.GlobalID, err)
		}
		rec.Props = props
	}

	changeEvent := domain.NewChangeEvent(changeType, rec)
	if event.TsMs > 0 {
		changeEvent.OccurredAt = time.UnixMilli(event.TsMs).UTC()
	}
	return changeEvent, nil
}

func stringColumn(row map[string]interface{}, column string) string {
	value, _ := row[column].(string)
	return value
}

func int64Column(row map[string]interface{}, column string) (int64, error) {
	switch v := row[column].(type) {
	case nil:
		return 0, nil
	case float64:
		return int64(v), nil
	case string:
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("column %s: %w", column, err)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("column %s: unexpected type %T", column, v)
	}
}

// jsonb chega como string (io.debezium.data.Json) ou já decodificado, dependendo do conversor
func propsColumn(row map[string]interface{}, column string) (entities.Props, error) {
	switch v := row[column].(type) {
	case nil:
		return entities.Props{}, nil
	case map[string]interface{}:
		return entities.Props(v), nil
	case string:
		props := entities.Props{}
		if err := json.Unmarshal([]byte(v), &props); err != nil {
			return nil, fmt.Errorf("column %s: %w", column, err)
		}
		return props, nil
	default:
		return nil, fmt.Errorf("column %s: unexpected type %T", column, v)
	}
}

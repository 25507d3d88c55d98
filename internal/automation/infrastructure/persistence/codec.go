// Package persistence implements the automation repositories for both
// database backends. PostgreSQL stores documents as JSONB and uses
// native uuid/timestamptz columns; SQLite stores the same documents as
// TEXT with RFC 3339 timestamps.
package persistence

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bookline/bookline/internal/automation/domain"
)

// sqliteTimeLayout is fixed-width so that stored timestamps sort
// lexicographically in log order.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

func formatSQLiteTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseSQLiteTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("corrupt timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func marshalJSON(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	return data, nil
}

func unmarshalMap(data []byte) (map[string]any, error) {
	out := map[string]any{}
	if len(data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	return out, nil
}

func unmarshalConditions(data []byte) (domain.Conditions, error) {
	var conditions domain.Conditions
	if len(data) == 0 {
		return conditions, nil
	}
	if err := json.Unmarshal(data, &conditions); err != nil {
		return domain.Conditions{}, fmt.Errorf("failed to unmarshal conditions: %w", err)
	}
	return conditions, nil
}

func unmarshalActions(data []byte) ([]domain.Action, error) {
	var actions []domain.Action
	if len(data) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(data, &actions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal actions: %w", err)
	}
	return actions, nil
}

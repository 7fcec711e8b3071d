package audit

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"pms/internal/platform/querier"
)

type Event struct {
	ID         string          `json:"id"`
	ActorNPK   string          `json:"actorNpk"`
	Action     string          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	RequestID  string          `json:"requestId"`
	IP         string          `json:"ip"`
	CreatedAt  time.Time       `json:"createdAt"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
}

// Filter narrows the trail. Action may end in "*" to match a prefix such
// as "ipp.*"; Since and Until bound created_at when non-zero.
type Filter struct {
	Action     string
	EntityType string
	EntityID   string
	ActorNPK   string
	Since      time.Time
	Until      time.Time
}

type Service struct {
	DB  querier.Querier
	Now func() time.Time
}

func New(db querier.Querier) *Service {
	return &Service{DB: db, Now: time.Now}
}

func marshalState(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

func (s *Service) Record(ctx context.Context, actorNPK, action, entityType, entityID, requestID, ip string, before, after any) error {
	beforeJSON, err := marshalState(before)
	if err != nil {
		return err
	}
	afterJSON, err := marshalState(after)
	if err != nil {
		return err
	}

	_, err = s.DB.Exec(ctx, `
    INSERT INTO audit_events (id, actor_npk, action, entity_type, entity_id, request_id, ip, before_json, after_json, created_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
  `, uuid.NewString(), actorNPK, action, entityType, entityID, requestID, ip, beforeJSON, afterJSON, s.Now().UTC())
	return err
}

func (s *Service) Count(ctx context.Context, filter Filter) (int, error) {
	query, args := buildBaseQuery("SELECT COUNT(1)", filter)
	var total int
	if err := s.DB.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Service) List(ctx context.Context, filter Filter, includeDetails bool, limit, offset int) ([]Event, error) {
	selectCols := "id, actor_npk, action, entity_type, entity_id, request_id, ip, created_at"
	if includeDetails {
		selectCols += ", before_json, after_json"
	}
	query, args := buildBaseQuery("SELECT "+selectCols, filter)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Event{}
	for rows.Next() {
		var evt Event
		if includeDetails {
			var before, after string
			if err := rows.Scan(&evt.ID, &evt.ActorNPK, &evt.Action, &evt.EntityType, &evt.EntityID, &evt.RequestID, &evt.IP, &evt.CreatedAt, &before, &after); err != nil {
				return nil, err
			}
			if before != "" {
				evt.Before = json.RawMessage(before)
			}
			if after != "" {
				evt.After = json.RawMessage(after)
			}
		} else {
			if err := rows.Scan(&evt.ID, &evt.ActorNPK, &evt.Action, &evt.EntityType, &evt.EntityID, &evt.RequestID, &evt.IP, &evt.CreatedAt); err != nil {
				return nil, err
			}
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}

func buildBaseQuery(prefix string, filter Filter) (string, []any) {
	query := prefix + " FROM audit_events WHERE 1=1"
	var args []any
	add := func(clause string, value any) {
		args = append(args, value)
		query += fmt.Sprintf(" AND "+clause, len(args))
	}
	if action, ok := strings.CutSuffix(filter.Action, "*"); ok {
		add("action LIKE $%d", action+"%")
	} else if filter.Action != "" {
		add("action = $%d", filter.Action)
	}
	if filter.EntityType != "" {
		add("entity_type = $%d", filter.EntityType)
	}
	if filter.EntityID != "" {
		add("entity_id = $%d", filter.EntityID)
	}
	if filter.ActorNPK != "" {
		add("actor_npk = $%d", filter.ActorNPK)
	}
	if !filter.Since.IsZero() {
		add("created_at >= $%d", filter.Since.UTC())
	}
	if !filter.Until.IsZero() {
		add("created_at < $%d", filter.Until.UTC())
	}
	return query, args
}

var csvHeader = []string{"id", "actor_npk", "action", "entity_type", "entity_id", "request_id", "ip", "created_at"}

// WriteCSV writes up to limit matching events, newest first.
func (s *Service) WriteCSV(ctx context.Context, w io.Writer, filter Filter, limit int) error {
	events, err := s.List(ctx, filter, false, limit, 0)
	if err != nil {
		return err
	}
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}
	for _, evt := range events {
		row := []string{evt.ID, evt.ActorNPK, evt.Action, evt.EntityType, evt.EntityID, evt.RequestID, evt.IP, evt.CreatedAt.UTC().Format(time.RFC3339)}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

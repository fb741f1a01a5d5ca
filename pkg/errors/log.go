package errors

import (
	stdErrors "errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// LogFields flattens err into structured log fields. Only populated values
// are returned, so a plain error yields just its message.
func LogFields(err error) map[string]any {
	if err == nil {
		return nil
	}
	fields := map[string]any{"error": err.Error()}
	if typed := As(err); typed != nil {
		fields["error_code"] = string(typed.Code())
		if step := detailString(typed.Details(), "step"); step != "" {
			fields["step"] = step
		}
	}
	if causes := causeMessages(err); len(causes) > 1 {
		fields["error_causes"] = causes
	}
	if pg := postgresFields(err); len(pg) > 0 {
		for k, v := range pg {
			fields[k] = v
		}
	}
	return fields
}

// causeMessages walks single-cause wrapping only; joined errors report their
// combined message at the top.
func causeMessages(err error) []string {
	var out []string
	for e := err; e != nil; e = stdErrors.Unwrap(e) {
		out = append(out, e.Error())
	}
	return out
}

func postgresFields(err error) map[string]any {
	var sqlState, constraint, table, detail string

	var pgxErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case stdErrors.As(err, &pgxErr):
		sqlState, constraint, table, detail = pgxErr.Code, pgxErr.ConstraintName, pgxErr.TableName, pgxErr.Detail
	case stdErrors.As(err, &pqErr):
		sqlState, constraint, table, detail = string(pqErr.Code), pqErr.Constraint, pqErr.Table, pqErr.Detail
	default:
		return nil
	}

	out := map[string]any{"pg_code": sqlState}
	if constraint != "" {
		out["pg_constraint"] = constraint
	}
	if table != "" {
		out["pg_table"] = table
	}
	if detail != "" {
		out["pg_detail"] = detail
	}
	return out
}

func detailString(details any, key string) string {
	m, ok := details.(map[string]any)
	if !ok {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// PGDetail is what postgres reports about a failed statement. Both the pgx
// and lib/pq drivers are unpacked into it.
type PGDetail struct {
	Code       string
	Constraint string
	Table      string
	Detail     string
	Message    string
}

// ErrorDump flattens an error chain for logging.
type ErrorDump struct {
	TopMessage string
	Code       Code
	Chain      []string
	PG         *PGDetail
	// SQLite only reports text, kept from "constraint failed" on.
	SQLite string
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}
	d := ErrorDump{TopMessage: err.Error(), PG: postgresDetail(err)}
	if typed := As(err); typed != nil {
		d.Code = typed.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	if d.PG == nil {
		if _, tail, ok := strings.Cut(d.TopMessage, "constraint failed"); ok {
			d.SQLite = strings.TrimSpace("constraint failed" + tail)
		}
	}
	return d
}

func postgresDetail(err error) *PGDetail {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &PGDetail{
			Code:       pgErr.Code,
			Constraint: pgErr.ConstraintName,
			Table:      pgErr.TableName,
			Detail:     pgErr.Detail,
			Message:    pgErr.Message,
		}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return &PGDetail{
			Code:       string(pqErr.Code),
			Constraint: pqErr.Constraint,
			Table:      pqErr.Table,
			Detail:     pqErr.Detail,
			Message:    pqErr.Message,
		}
	}
	return nil
}

// Fields renders the dump as logger fields; empty values are left out.
func (d ErrorDump) Fields() map[string]any {
	fields := make(map[string]any)
	set := func(key, value string) {
		if value != "" {
			fields[key] = value
		}
	}
	set("error_code", string(d.Code))
	if pg := d.PG; pg != nil {
		set("pg_code", pg.Code)
		set("pg_constraint", pg.Constraint)
		set("pg_table", pg.Table)
		set("pg_detail", pg.Detail)
		set("pg_message", pg.Message)
	}
	set("sqlite_message", d.SQLite)
	if len(d.Chain) > 0 {
		fields["error_chain"] = d.Chain
	}
	return fields
}

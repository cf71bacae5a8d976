package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/syssam/velite"
	"github.com/syssam/velite/dialect"
)

// timeLayout is the text layout of DATETIME columns handed back by the
// driver as time.Time.
const timeLayout = "2006-01-02T15:04:05.0000000Z"

// stmt is a dialect.Stmt over a database/sql prepared statement. The first
// Step runs the query; later steps walk its rows.
type stmt struct {
	e     *Engine
	query string
	st    *sql.Stmt
	args  []velite.Value

	rows *sql.Rows
	done bool
	cols []string
	row  []velite.Value
	dest []any
}

func (s *stmt) SQL() string { return s.query }

func (s *stmt) Bind(i int, v velite.Value) error {
	if i < 1 {
		return velite.NewArgumentError("index", fmt.Sprintf("parameter index %d out of range", i))
	}
	for len(s.args) < i {
		s.args = append(s.args, velite.Null())
	}
	s.args[i-1] = v
	return nil
}

func (s *stmt) ClearBindings() {
	for i := range s.args {
		s.args[i] = velite.Null()
	}
}

func (s *stmt) Step(ctx context.Context) (bool, error) {
	if s.done {
		return false, nil
	}
	if s.rows == nil {
		start := time.Now()
		rows, err := s.st.QueryContext(ctx, driverArgs(s.args)...)
		s.e.record(ctx, s.query, s.args, start, err, true)
		if err != nil {
			s.done = true
			return false, Translate("step", s.query, err)
		}
		cols, err := rows.Columns()
		if err != nil {
			_ = rows.Close()
			s.done = true
			return false, Translate("step", s.query, err)
		}
		s.rows, s.cols = rows, cols
		s.row = make([]velite.Value, len(cols))
		s.dest = make([]any, len(cols))
	}
	if !s.rows.Next() {
		err := errors.Join(s.rows.Err(), s.rows.Close())
		s.rows, s.done = nil, true
		clear(s.row)
		if err != nil {
			s.e.stats.Errors.Add(1)
			return false, Translate("step", s.query, err)
		}
		return false, nil
	}
	ptrs := make([]any, len(s.dest))
	for i := range s.dest {
		s.dest[i] = nil
		ptrs[i] = &s.dest[i]
	}
	if err := s.rows.Scan(ptrs...); err != nil {
		return false, Translate("step", s.query, err)
	}
	for i, v := range s.dest {
		s.row[i] = columnValue(v)
	}
	return true, nil
}

// columnValue converts a scanned driver value into a Value.
func columnValue(v any) velite.Value {
	switch v := v.(type) {
	case time.Time:
		return velite.Text(v.UTC().Format(timeLayout))
	case int:
		return velite.Int64(int64(v))
	case int32:
		return velite.Int64(int64(v))
	}
	val, err := velite.ValueOf(v)
	if err != nil {
		return velite.Text(fmt.Sprint(v))
	}
	return val
}

func (s *stmt) ColumnCount() int { return len(s.cols) }

func (s *stmt) ColumnName(i int) string {
	if i < 0 || i >= len(s.cols) {
		return ""
	}
	return s.cols[i]
}

func (s *stmt) ColumnType(i int) velite.Kind {
	return s.Column(i).Kind()
}

func (s *stmt) Column(i int) velite.Value {
	if i < 0 || i >= len(s.row) {
		return velite.Null()
	}
	return s.row[i]
}

func (s *stmt) Exec(ctx context.Context) (dialect.Result, error) {
	if err := s.Reset(); err != nil {
		return dialect.Result{}, err
	}
	start := time.Now()
	res, err := s.st.ExecContext(ctx, driverArgs(s.args)...)
	s.e.record(ctx, s.query, s.args, start, err, false)
	if err != nil {
		return dialect.Result{}, Translate("step", s.query, err)
	}
	return s.e.result(res), nil
}

func (s *stmt) Reset() error {
	var err error
	if s.rows != nil {
		err = s.rows.Close()
	}
	s.rows, s.done, s.cols = nil, false, nil
	return Translate("reset", s.query, err)
}

func (s *stmt) Finalize() error {
	err := s.Reset()
	return errors.Join(err, Translate("finalize", s.query, s.st.Close()))
}

var _ dialect.Stmt = (*stmt)(nil)

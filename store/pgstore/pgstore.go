// Package pgstore is a Store on PostgreSQL.  Records are kept as JSONB next
// to the columns used for lookups; instance updates hold the row lock of
// the instance for the duration of the transaction.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/project-flogo/core/support/log"
	"github.com/project-flogo/recruit/definition"
	"github.com/project-flogo/recruit/instance"
	"github.com/project-flogo/recruit/model"
	"github.com/project-flogo/recruit/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS recruit_processes (
	id           TEXT PRIMARY KEY,
	organization TEXT NOT NULL DEFAULT '',
	body         JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS recruit_processes_org ON recruit_processes (organization);

CREATE TABLE IF NOT EXISTS recruit_instances (
	id           TEXT PRIMARY KEY,
	process_id   TEXT NOT NULL,
	candidate_id TEXT NOT NULL,
	body         JSONB NOT NULL,
	UNIQUE (process_id, candidate_id)
);

CREATE TABLE IF NOT EXISTS recruit_executions (
	id          TEXT PRIMARY KEY,
	instance_id TEXT NOT NULL REFERENCES recruit_instances (id),
	process_id  TEXT NOT NULL,
	assignee    TEXT NOT NULL DEFAULT '',
	is_open     BOOLEAN NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	seq         BIGINT NOT NULL DEFAULT 0,
	body        JSONB NOT NULL
);
ALTER TABLE recruit_executions ADD COLUMN IF NOT EXISTS seq BIGINT NOT NULL DEFAULT 0;
CREATE INDEX IF NOT EXISTS recruit_executions_instance ON recruit_executions (instance_id);
CREATE INDEX IF NOT EXISTS recruit_executions_process ON recruit_executions (process_id);
CREATE INDEX IF NOT EXISTS recruit_executions_assignee ON recruit_executions (assignee) WHERE is_open;
`

type Store struct {
	db     *sql.DB
	logger log.Logger
}

// Open connects to postgres and creates the schema if needed
func Open(ctx context.Context, cfg Config) (*Store, error) {
	db, err := openDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db, logger: log.ChildLogger(log.RootLogger(), "pgstore")}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateDefinition(ctx context.Context, rep *definition.DefinitionRep) error {
	b, err := store.EncodeDefinition(rep)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO recruit_processes (id, organization, body) VALUES ($1, $2, $3::jsonb)`,
		rep.ID, rep.Organization, string(b))
	if isUniqueViolation(err) {
		return model.NewConflictError("process", rep.ID, "already exists")
	}
	if err != nil {
		return fmt.Errorf("insert process '%s': %w", rep.ID, err)
	}
	return nil
}

func (s *Store) GetDefinition(ctx context.Context, id string) (*definition.DefinitionRep, error) {
	return getDefinition(ctx, s.db, id, "")
}

func (s *Store) ListDefinitions(ctx context.Context, org string) ([]*definition.DefinitionRep, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT body FROM recruit_processes WHERE $1 = '' OR organization = $1 ORDER BY id`, org)
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}
	defer rows.Close()

	var reps []*definition.DefinitionRep
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("list processes: %w", err)
		}
		rep, err := store.DecodeDefinition(body)
		if err != nil {
			return nil, err
		}
		reps = append(reps, rep)
	}
	return reps, rows.Err()
}

func (s *Store) UpdateDefinition(ctx context.Context, id string, fn store.DefinitionUpdateFunc) (*definition.DefinitionRep, error) {
	var updated *definition.DefinitionRep
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		rep, err := getDefinition(ctx, tx, id, " FOR UPDATE")
		if err != nil {
			return err
		}
		updated, err = fn(rep)
		if err != nil {
			return err
		}
		return putDefinition(ctx, tx, updated)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Store) DeleteDefinition(ctx context.Context, id string) (*store.DeleteResult, error) {
	result := &store.DeleteResult{}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		rep, err := getDefinition(ctx, tx, id, " FOR UPDATE")
		if err != nil {
			return err
		}

		// lock the instances so no update of them interleaves with the cascade
		rows, err := tx.QueryContext(ctx,
			`SELECT id FROM recruit_instances WHERE process_id = $1 ORDER BY id FOR UPDATE`, id)
		if err != nil {
			return fmt.Errorf("lock instances of process '%s': %w", id, err)
		}
		referenced := 0
		for rows.Next() {
			referenced++
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		if referenced == 0 {
			_, err := tx.ExecContext(ctx, `DELETE FROM recruit_processes WHERE id = $1`, id)
			return err
		}

		rep.Status = model.ProcessArchived
		if err := putDefinition(ctx, tx, rep); err != nil {
			return err
		}
		result.Archived = true

		executions, err := queryExecutions(ctx, tx,
			`SELECT body FROM recruit_executions WHERE process_id = $1`, id)
		if err != nil {
			return err
		}
		for _, exec := range executions {
			if !exec.HasLinkage() || exec.LinkageDeleted() {
				continue
			}
			exec.MarkLinkageDeleted()
			if err := putExecution(ctx, tx, exec); err != nil {
				return err
			}
			result.UnlinkedExecutions++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) CreateInstance(ctx context.Context, inst *instance.Instance) error {
	b, err := store.EncodeInstance(inst)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO recruit_instances (id, process_id, candidate_id, body) VALUES ($1, $2, $3, $4::jsonb)`,
		inst.ID(), inst.ProcessID(), inst.CandidateID(), string(b))
	if isUniqueViolation(err) {
		return model.NewConflictError("candidate", inst.CandidateID(), "already assigned to process '%s'", inst.ProcessID())
	}
	if err != nil {
		return fmt.Errorf("insert instance '%s': %w", inst.ID(), err)
	}
	return nil
}

func (s *Store) GetInstance(ctx context.Context, id string) (*instance.Instance, error) {
	return getInstance(ctx, s.db, id, "")
}

func (s *Store) ListInstances(ctx context.Context, filter store.InstanceFilter) ([]*instance.Instance, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT body FROM recruit_instances
		 WHERE ($1 = '' OR process_id = $1) AND ($2 = '' OR candidate_id = $2)
		 ORDER BY id`, filter.ProcessID, filter.CandidateID)
	if err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}
	defer rows.Close()

	var out []*instance.Instance
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("list instances: %w", err)
		}
		inst, err := store.DecodeInstance(body)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}

func (s *Store) UpdateInstance(ctx context.Context, id string, fn store.InstanceUpdateFunc) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		inst, err := getInstance(ctx, tx, id, " FOR UPDATE")
		if err != nil {
			return err
		}
		executions, err := queryExecutions(ctx, tx,
			`SELECT body FROM recruit_executions WHERE instance_id = $1`, id)
		if err != nil {
			return err
		}

		itx := store.NewInstanceTx(inst, executions)
		if err := fn(itx); err != nil {
			return err
		}
		itx.Instance.Touch()

		b, err := store.EncodeInstance(itx.Instance)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE recruit_instances SET body = $2::jsonb WHERE id = $1`, id, string(b)); err != nil {
			return fmt.Errorf("update instance '%s': %w", id, err)
		}

		for _, exec := range itx.Executions() {
			if err := putExecution(ctx, tx, exec); err != nil {
				return err
			}
		}

		if s.logger.DebugEnabled() {
			s.logger.Debugf("Instance[%s] committed version %d", id, itx.Instance.Version())
		}
		return nil
	})
}

func (s *Store) GetExecution(ctx context.Context, id string) (*instance.Execution, error) {
	executions, err := queryExecutions(ctx, s.db, `SELECT body FROM recruit_executions WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(executions) == 0 {
		return nil, model.NewNotFoundError("execution", id)
	}
	return executions[0], nil
}

func (s *Store) ListExecutions(ctx context.Context, filter store.ExecutionFilter) ([]*instance.Execution, error) {
	executions, err := queryExecutions(ctx, s.db,
		`SELECT body FROM recruit_executions
		 WHERE ($1 = '' OR process_id = $1) AND ($2 = '' OR instance_id = $2)
		   AND ($3 = '' OR assignee = $3) AND (NOT $4 OR is_open)
		 ORDER BY created_at, seq, id`,
		filter.ProcessID, filter.InstanceID, filter.Assignee, filter.OpenOnly)
	if err != nil {
		return nil, err
	}
	return executions, nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// querier is satisfied by *sql.DB and *sql.Tx
type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func getDefinition(ctx context.Context, q querier, id, lock string) (*definition.DefinitionRep, error) {
	var body []byte
	err := q.QueryRowContext(ctx, `SELECT body FROM recruit_processes WHERE id = $1`+lock, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewNotFoundError("process", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get process '%s': %w", id, err)
	}
	return store.DecodeDefinition(body)
}

func putDefinition(ctx context.Context, tx *sql.Tx, rep *definition.DefinitionRep) error {
	b, err := store.EncodeDefinition(rep)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE recruit_processes SET organization = $2, body = $3::jsonb WHERE id = $1`,
		rep.ID, rep.Organization, string(b))
	if err != nil {
		return fmt.Errorf("update process '%s': %w", rep.ID, err)
	}
	return nil
}

func getInstance(ctx context.Context, q querier, id, lock string) (*instance.Instance, error) {
	var body []byte
	err := q.QueryRowContext(ctx, `SELECT body FROM recruit_instances WHERE id = $1`+lock, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewNotFoundError("instance", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get instance '%s': %w", id, err)
	}
	return store.DecodeInstance(body)
}

func putExecution(ctx context.Context, tx *sql.Tx, exec *instance.Execution) error {
	b, err := store.EncodeExecution(exec)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO recruit_executions (id, instance_id, process_id, assignee, is_open, created_at, seq, body)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb)
		 ON CONFLICT (id) DO UPDATE SET assignee = EXCLUDED.assignee, is_open = EXCLUDED.is_open, body = EXCLUDED.body`,
		exec.ID(), exec.InstanceID(), exec.ProcessID(), exec.Assignee(), exec.IsOpen(), exec.CreatedAt(), exec.Sequence(), string(b))
	if err != nil {
		return fmt.Errorf("put execution '%s': %w", exec.ID(), err)
	}
	return nil
}

func queryExecutions(ctx context.Context, q querier, query string, args ...interface{}) ([]*instance.Execution, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query executions: %w", err)
	}
	defer rows.Close()

	var out []*instance.Execution
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("query executions: %w", err)
		}
		exec, err := store.DecodeExecution(body)
		if err != nil {
			return nil, err
		}
		out = append(out, exec)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

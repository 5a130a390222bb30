// Package badgerstore is an embedded persistent Store on BadgerDB.  Instance
// updates run in serializable badger transactions; a commit that conflicts
// with a concurrent update of the same instance is retried.
package badgerstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v3"
	"github.com/project-flogo/core/support/log"
	"github.com/project-flogo/recruit/definition"
	"github.com/project-flogo/recruit/instance"
	"github.com/project-flogo/recruit/model"
	"github.com/project-flogo/recruit/store"
)

const defaultMaxRetries = 16

const (
	processPrefix   = "process:"
	instancePrefix  = "instance:"
	assignedPrefix  = "assigned:"
	procInstPrefix  = "procinst:"
	executionPrefix = "execution:"
	instExecPrefix  = "instexec:"
)

// Config configures the badger store
type Config struct {
	// Path of the database directory, ignored when InMemory is set
	Path     string
	InMemory bool

	// MaxRetries bounds the retries of a conflicting instance update
	MaxRetries int
}

type Store struct {
	db         *badger.DB
	maxRetries int
	logger     log.Logger
}

// Open opens (or creates) the badger database described by cfg
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("badger store requires a path or in-memory mode")
	}

	logger := log.ChildLogger(log.RootLogger(), "badgerstore")

	opts := badger.DefaultOptions(cfg.Path).WithInMemory(cfg.InMemory).WithLogger(&badgerLogger{logger: logger})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	return &Store{db: db, maxRetries: maxRetries, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateDefinition(ctx context.Context, rep *definition.DefinitionRep) error {
	b, err := store.EncodeDefinition(rep)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(processPrefix + rep.ID)
		_, err := txn.Get(key)
		if err == nil {
			return model.NewConflictError("process", rep.ID, "already exists")
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, b)
	})
}

func (s *Store) GetDefinition(ctx context.Context, id string) (*definition.DefinitionRep, error) {
	var rep *definition.DefinitionRep
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		rep, err = getDefinition(txn, id)
		return err
	})
	return rep, err
}

func (s *Store) ListDefinitions(ctx context.Context, org string) ([]*definition.DefinitionRep, error) {
	var reps []*definition.DefinitionRep
	err := s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, processPrefix, func(value []byte) error {
			rep, err := store.DecodeDefinition(value)
			if err != nil {
				return err
			}
			if org == "" || rep.Organization == org {
				reps = append(reps, rep)
			}
			return nil
		})
	})
	return reps, err
}

func (s *Store) UpdateDefinition(ctx context.Context, id string, fn store.DefinitionUpdateFunc) (*definition.DefinitionRep, error) {
	var updated *definition.DefinitionRep
	err := s.retry(ctx, "process", id, func(txn *badger.Txn) error {
		rep, err := getDefinition(txn, id)
		if err != nil {
			return err
		}
		updated, err = fn(rep)
		if err != nil {
			return err
		}
		b, err := store.EncodeDefinition(updated)
		if err != nil {
			return err
		}
		return txn.Set([]byte(processPrefix+id), b)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Store) DeleteDefinition(ctx context.Context, id string) (*store.DeleteResult, error) {
	var result *store.DeleteResult
	err := s.retry(ctx, "process", id, func(txn *badger.Txn) error {
		result = &store.DeleteResult{}

		rep, err := getDefinition(txn, id)
		if err != nil {
			return err
		}

		instIDs, err := scanKeys(txn, procInstPrefix+id+":")
		if err != nil {
			return err
		}

		if len(instIDs) == 0 {
			return txn.Delete([]byte(processPrefix + id))
		}

		rep.Status = model.ProcessArchived
		b, err := store.EncodeDefinition(rep)
		if err != nil {
			return err
		}
		if err := txn.Set([]byte(processPrefix+id), b); err != nil {
			return err
		}
		result.Archived = true

		for _, instID := range instIDs {
			executions, err := instanceExecutions(txn, instID)
			if err != nil {
				return err
			}
			for _, exec := range executions {
				if !exec.HasLinkage() || exec.LinkageDeleted() {
					continue
				}
				exec.MarkLinkageDeleted()
				if err := putExecution(txn, exec); err != nil {
					return err
				}
				result.UnlinkedExecutions++
			}
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

	return s.retry(ctx, "instance", inst.ID(), func(txn *badger.Txn) error {
		assignedKey := []byte(assignedPrefix + inst.ProcessID() + ":" + inst.CandidateID())
		item, err := txn.Get(assignedKey)
		if err == nil {
			existing, _ := item.ValueCopy(nil)
			return model.NewConflictError("candidate", inst.CandidateID(), "already assigned to process '%s' (instance '%s')", inst.ProcessID(), existing)
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		instKey := []byte(instancePrefix + inst.ID())
		if _, err := txn.Get(instKey); err == nil {
			return model.NewConflictError("instance", inst.ID(), "already exists")
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if err := txn.Set(instKey, b); err != nil {
			return err
		}
		if err := txn.Set(assignedKey, []byte(inst.ID())); err != nil {
			return err
		}
		return txn.Set([]byte(procInstPrefix+inst.ProcessID()+":"+inst.ID()), nil)
	})
}

func (s *Store) GetInstance(ctx context.Context, id string) (*instance.Instance, error) {
	var inst *instance.Instance
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		inst, err = getInstance(txn, id)
		return err
	})
	return inst, err
}

func (s *Store) ListInstances(ctx context.Context, filter store.InstanceFilter) ([]*instance.Instance, error) {
	var out []*instance.Instance
	err := s.db.View(func(txn *badger.Txn) error {
		if filter.ProcessID != "" {
			ids, err := scanKeys(txn, procInstPrefix+filter.ProcessID+":")
			if err != nil {
				return err
			}
			for _, id := range ids {
				inst, err := getInstance(txn, id)
				if err != nil {
					return err
				}
				if filter.Matches(inst) {
					out = append(out, inst)
				}
			}
			return nil
		}

		return scanPrefix(txn, instancePrefix, func(value []byte) error {
			inst, err := store.DecodeInstance(value)
			if err != nil {
				return err
			}
			if filter.Matches(inst) {
				out = append(out, inst)
			}
			return nil
		})
	})
	return out, err
}

func (s *Store) UpdateInstance(ctx context.Context, id string, fn store.InstanceUpdateFunc) error {
	return s.retry(ctx, "instance", id, func(txn *badger.Txn) error {
		inst, err := getInstance(txn, id)
		if err != nil {
			return err
		}
		executions, err := instanceExecutions(txn, id)
		if err != nil {
			return err
		}

		tx := store.NewInstanceTx(inst, executions)
		if err := fn(tx); err != nil {
			return err
		}
		tx.Instance.Touch()

		b, err := store.EncodeInstance(tx.Instance)
		if err != nil {
			return err
		}
		if err := txn.Set([]byte(instancePrefix+id), b); err != nil {
			return err
		}

		for _, exec := range tx.Executions() {
			if err := putExecution(txn, exec); err != nil {
				return err
			}
			if tx.IsNew(exec.ID()) {
				if err := txn.Set([]byte(instExecPrefix+id+":"+exec.ID()), nil); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (s *Store) GetExecution(ctx context.Context, id string) (*instance.Execution, error) {
	var exec *instance.Execution
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		exec, err = getExecution(txn, id)
		return err
	})
	return exec, err
}

func (s *Store) ListExecutions(ctx context.Context, filter store.ExecutionFilter) ([]*instance.Execution, error) {
	var out []*instance.Execution
	err := s.db.View(func(txn *badger.Txn) error {
		if filter.InstanceID != "" {
			executions, err := instanceExecutions(txn, filter.InstanceID)
			if err != nil {
				return err
			}
			for _, exec := range executions {
				if filter.Matches(exec) {
					out = append(out, exec)
				}
			}
			return nil
		}

		return scanPrefix(txn, executionPrefix, func(value []byte) error {
			exec, err := store.DecodeExecution(value)
			if err != nil {
				return err
			}
			if filter.Matches(exec) {
				out = append(out, exec)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	store.SortExecutions(out)
	return out, nil
}

// retry runs fn in an update transaction, retrying when the commit
// conflicts with a concurrent transaction
func (s *Store) retry(ctx context.Context, kind, id string, fn func(txn *badger.Txn) error) error {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		if attempt >= s.maxRetries {
			return fmt.Errorf("%s '%s': giving up after %d conflicting commits: %w", kind, id, attempt, err)
		}
		if s.logger.DebugEnabled() {
			s.logger.Debugf("%s '%s': commit conflict, retrying (attempt %d)", kind, id, attempt)
		}
	}
}

func getDefinition(txn *badger.Txn, id string) (*definition.DefinitionRep, error) {
	value, err := getValue(txn, processPrefix+id)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, model.NewNotFoundError("process", id)
	}
	if err != nil {
		return nil, err
	}
	return store.DecodeDefinition(value)
}

func getInstance(txn *badger.Txn, id string) (*instance.Instance, error) {
	value, err := getValue(txn, instancePrefix+id)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, model.NewNotFoundError("instance", id)
	}
	if err != nil {
		return nil, err
	}
	return store.DecodeInstance(value)
}

func getExecution(txn *badger.Txn, id string) (*instance.Execution, error) {
	value, err := getValue(txn, executionPrefix+id)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, model.NewNotFoundError("execution", id)
	}
	if err != nil {
		return nil, err
	}
	return store.DecodeExecution(value)
}

func putExecution(txn *badger.Txn, exec *instance.Execution) error {
	b, err := store.EncodeExecution(exec)
	if err != nil {
		return err
	}
	return txn.Set([]byte(executionPrefix+exec.ID()), b)
}

func instanceExecutions(txn *badger.Txn, instanceID string) ([]*instance.Execution, error) {
	ids, err := scanKeys(txn, instExecPrefix+instanceID+":")
	if err != nil {
		return nil, err
	}
	executions := make([]*instance.Execution, 0, len(ids))
	for _, id := range ids {
		exec, err := getExecution(txn, id)
		if err != nil {
			return nil, err
		}
		executions = append(executions, exec)
	}
	return executions, nil
}

func getValue(txn *badger.Txn, key string) ([]byte, error) {
	item, err := txn.Get([]byte(key))
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

// scanPrefix calls fn with the value of every key under prefix
func scanPrefix(txn *badger.Txn, prefix string, fn func(value []byte) error) error {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	p := []byte(prefix)
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		value, err := it.Item().ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := fn(value); err != nil {
			return err
		}
	}
	return nil
}

// scanKeys returns the key suffixes under an index prefix
func scanKeys(txn *badger.Txn, prefix string) ([]string, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	var suffixes []string
	p := []byte(prefix)
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		key := it.Item().KeyCopy(nil)
		suffixes = append(suffixes, string(key[len(p):]))
	}
	return suffixes, nil
}

// badgerLogger routes badger's logging to the store logger
type badgerLogger struct {
	logger log.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Errorf(format, args...)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warnf(format, args...)
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	if l.logger.DebugEnabled() {
		l.logger.Debugf(format, args...)
	}
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	if l.logger.DebugEnabled() {
		l.logger.Debugf(format, args...)
	}
}

package sqlite

import (
	"strings"
	"sync"
)

// txState follows the transaction-control statements run on the
// connection, mirroring the engine's autocommit flag.
type txState struct {
	mu         sync.Mutex
	open       bool
	savepoints []string // innermost last
	implicit   bool     // opened by a savepoint, closed by its release
}

// observe updates the state after query ran. Failed statements leave it
// unchanged, except a failed rollback, which the engine only reports when
// no transaction is active.
func (s *txState) observe(query string, err error) {
	verb, rest := keyword(query)
	switch verb {
	case "begin", "savepoint", "release", "rollback", "commit", "end":
	default:
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		if verb == "rollback" && !isRollbackTo(rest) {
			s.reset()
		}
		return
	}
	switch verb {
	case "begin":
		s.open, s.implicit = true, false
	case "savepoint":
		if !s.open {
			s.open, s.implicit = true, true
		}
		name, _ := keyword(rest)
		s.savepoints = append(s.savepoints, name)
	case "release":
		name, _ := keyword(strings.TrimPrefix(strings.TrimSpace(rest), "savepoint "))
		if i := s.find(name); i >= 0 {
			s.savepoints = s.savepoints[:i]
		}
		if len(s.savepoints) == 0 && s.implicit {
			s.reset()
		}
	case "rollback":
		if !isRollbackTo(rest) {
			s.reset()
			return
		}
		_, after, _ := strings.Cut(strings.ToLower(rest), "to ")
		name, _ := keyword(strings.TrimPrefix(strings.TrimSpace(after), "savepoint "))
		if i := s.find(name); i >= 0 {
			s.savepoints = s.savepoints[:i+1]
		}
	case "commit", "end":
		s.reset()
	}
}

func (s *txState) reset() {
	s.open, s.implicit = false, false
	s.savepoints = s.savepoints[:0]
}

func (s *txState) find(name string) int {
	for i := len(s.savepoints) - 1; i >= 0; i-- {
		if strings.EqualFold(s.savepoints[i], name) {
			return i
		}
	}
	return -1
}

func (s *txState) autocommit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.open
}

// keyword splits the first word off query, lower-cased and unquoted.
func keyword(query string) (string, string) {
	query = strings.TrimSpace(query)
	i := strings.IndexFunc(query, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == ';'
	})
	if i < 0 {
		i = len(query)
	}
	return strings.ToLower(strings.Trim(query[:i], `"`)), query[i:]
}

func isRollbackTo(rest string) bool {
	rest = strings.ToLower(strings.TrimSpace(rest))
	rest = strings.TrimSpace(strings.TrimPrefix(rest, "transaction"))
	return strings.HasPrefix(rest, "to ")
}

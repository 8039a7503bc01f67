package database_test

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/iic3964/leyurgencia/backend/internal/infrastructure/clients/postgres"
)

// containsMatcher matches when the executed SQL contains the expected
// fragment, and remembers every statement it saw.
type containsMatcher struct {
	mu   sync.Mutex
	seen []string
}

func (m *containsMatcher) Match(expected, actual string) error {
	m.mu.Lock()
	m.seen = append(m.seen, actual)
	m.mu.Unlock()
	if !strings.Contains(actual, expected) {
		return fmt.Errorf("query %q does not contain %q", actual, expected)
	}
	return nil
}

func (m *containsMatcher) last() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.seen) == 0 {
		return ""
	}
	return m.seen[len(m.seen)-1]
}

func setupMockDB(t *testing.T) (*postgres.Client, sqlmock.Sqlmock, *containsMatcher) {
	t.Helper()
	matcher := &containsMatcher{}
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(matcher))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		mockDB.Close()
	})
	return postgres.NewClientFromDB(mockDB), mock, matcher
}

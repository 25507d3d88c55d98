package persistence

import (
	"github.com/bookline/bookline/internal/automation/domain"
	"github.com/bookline/bookline/internal/shared/infrastructure/database"
)

// NewEventStore returns the event store for the connection's driver.
func NewEventStore(conn database.Connection) domain.EventStore {
	if conn.Driver() == database.DriverSQLite {
		return NewSQLiteEventStore(conn)
	}
	return NewPostgresEventStore(conn)
}

// NewRuleRepository returns the rule repository for the connection's driver.
func NewRuleRepository(conn database.Connection) domain.RuleRepository {
	if conn.Driver() == database.DriverSQLite {
		return NewSQLiteRuleRepository(conn)
	}
	return NewPostgresRuleRepository(conn)
}

// NewRunRepository returns the run repository for the connection's driver.
func NewRunRepository(conn database.Connection) domain.RunRepository {
	if conn.Driver() == database.DriverSQLite {
		return NewSQLiteRunRepository(conn)
	}
	return NewPostgresRunRepository(conn)
}

// NewAlertRepository returns the alert repository for the connection's driver.
func NewAlertRepository(conn database.Connection) domain.AlertRepository {
	if conn.Driver() == database.DriverSQLite {
		return NewSQLiteAlertRepository(conn)
	}
	return NewPostgresAlertRepository(conn)
}

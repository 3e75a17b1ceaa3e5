package inmemdb

import (
	"sync"

	"github.com/darasa-app/darasa/core/notification"
	"github.com/darasa-app/darasa/core/user"
)

type (
	userTable struct {
		mutex sync.RWMutex
		table map[string]*user.User
	}

	notificationTable struct {
		mutex sync.RWMutex
		table map[string]*notification.Notification
	}

	// DB is a process-memory database for tests and local development.
	DB struct {
		user         *userTable
		notification *notificationTable
	}
)

func NewDB() *DB {
	return &DB{
		user:         &userTable{table: make(map[string]*user.User)},
		notification: &notificationTable{table: make(map[string]*notification.Notification)},
	}
}

// Reset drops all rows; test helper.
func (db *DB) Reset() {
	db.user.mutex.Lock()
	db.user.table = make(map[string]*user.User)
	db.user.mutex.Unlock()

	db.notification.mutex.Lock()
	db.notification.table = make(map[string]*notification.Notification)
	db.notification.mutex.Unlock()
}

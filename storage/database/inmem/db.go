package inmemdb

import (
	"sync"

	"github.com/trezcool/masomo-curriculum/core/subject"
	"github.com/trezcool/masomo-curriculum/core/user"
)

type (
	userTable struct {
		mutex sync.RWMutex
		table map[string]*user.User
	}

	// subjectTable also holds the topics, so that topic writes are atomic with the subject they belong to.
	subjectTable struct {
		mutex  sync.RWMutex
		table  map[string]*subject.Subject
		topics map[string][]*subject.Topic // by subject ID, in order
	}

	// DB is an in-memory database, for tests and DEBUG runs without postgres.
	DB struct {
		user    *userTable
		subject *subjectTable
	}
)

func NewDB() *DB {
	return &DB{
		user:    &userTable{table: make(map[string]*user.User)},
		subject: &subjectTable{table: make(map[string]*subject.Subject), topics: make(map[string][]*subject.Topic)},
	}
}

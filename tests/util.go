package testutil

import (
	"context"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-curriculum/core"
	"github.com/trezcool/masomo-curriculum/core/subject"
	"github.com/trezcool/masomo-curriculum/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func CreateSubject(t *testing.T, repo subject.Repository, name, code string) subject.Subject {
	now := time.Now().UTC()
	subj, err := repo.CreateSubject(context.Background(), subject.Subject{Name: name, Code: code, CreatedAt: now, UpdatedAt: now})
	if err != nil {
		t.Fatalf("createSubject() failed: %v", err)
	}
	return subj
}

// CreateTopics appends one topic per title to the subject, in order.
func CreateTopics(t *testing.T, repo subject.Repository, subjectID string, titles ...string) []subject.Topic {
	now := time.Now().UTC()
	topics := make([]subject.Topic, 0, len(titles))
	for _, title := range titles {
		topic, err := repo.CreateTopic(context.Background(), subject.Topic{
			SubjectID: subjectID,
			Title:     title,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			t.Fatalf("createTopics() failed: %v", err)
		}
		topics = append(topics, topic)
	}
	return topics
}

// NewValidator returns a validator with every validator of the app registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	translator := core.NewTranslator()
	validate := core.NewValidator(translator)
	user.InitValidators(validate, translator)
	subject.InitValidators(validate, translator)
	return validate, translator
}

package main

import (
	"context"
	"fmt"

	"github.com/trezcool/masomo-curriculum/core/subject"
)

func (cli *commandLine) addSubject(name, code string) error {
	ns := subject.NewSubject{Name: name, Code: code}
	if err := ns.Validate(cli.validate); err != nil {
		return err
	}
	subj, err := cli.subjectSvc.CreateSubject(context.Background(), ns)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "subject %s created (%s)\n", subj.ID, subj.Code)
	return nil
}

func (cli *commandLine) addTopic(subjectID, title, description string) error {
	ctx := context.Background()
	existing, err := cli.subjectSvc.QueryTopics(ctx, subjectID)
	if err != nil {
		return err
	}
	nt := subject.NewTopic{Title: title, Description: description}
	if err := nt.Validate(cli.validate, existing); err != nil {
		return err
	}
	topic, err := cli.subjectSvc.AddTopic(ctx, subjectID, nt)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "topic %s added at position %d\n", topic.ID, topic.Order)
	return nil
}

func (cli *commandLine) listTopics(subjectID string) error {
	topics, err := cli.subjectSvc.QueryTopics(context.Background(), subjectID)
	if err != nil {
		return err
	}
	for _, t := range topics {
		fmt.Fprintf(cli.out, "%3d. %s (%s)\n", t.Order, t.Title, t.ID)
	}
	return nil
}

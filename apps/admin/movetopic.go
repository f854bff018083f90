package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/trezcool/masomo-curriculum/core/reorder"
	"github.com/trezcool/masomo-curriculum/core/subject"
	"github.com/trezcool/masomo-curriculum/services/notify"
	"github.com/trezcool/masomo-curriculum/services/persist"
)

var errDragNotConfirmed = errors.New("drag not confirmed: reorder.itemHeight must exceed reorder.minDragDistance")

// moveTopic replays a drag of the topic to position through the reorder engine,
// so the CLI saves, notifies and rolls back exactly like an interactive client.
func (cli *commandLine) moveTopic(subjectID, topicID string, position int, remote bool) error {
	ctx := context.Background()
	topics, err := cli.subjectSvc.QueryTopics(ctx, subjectID)
	if err != nil {
		return err
	}
	store, err := reorder.NewStore(subject.Items(topics))
	if err != nil {
		return err
	}

	from := -1
	for i, id := range store.IDs() {
		if id == topicID {
			from = i
			break
		}
	}
	if from < 0 {
		return subject.ErrTopicNotFound
	}
	if position > store.Len() {
		return fmt.Errorf("position must be between 1 and %d", store.Len())
	}

	var persister reorder.Persister = persist.NewServicePersister(cli.subjectSvc)
	if remote {
		persister = persist.NewAPIPersister(cli.conf.API, nil)
	}
	notifier := notify.Multi{
		notify.NewLogNotifier(cli.logger),
		notify.NewMailNotifier(cli.mailSvc, cli.conf.Notify.Recipients...),
	}

	var ctrl *reorder.Controller
	opts := reorder.OptionsFromConfig(subjectID, cli.conf.Reorder)
	opts.Logger = cli.logger
	opts.ItemTitle = subject.TopicTitle
	opts.Feedback = reorder.FeedbackFunc(func(it reorder.Item) {
		fmt.Fprintf(cli.out, "moving %s...\n", subject.TopicTitle(it))
	})
	opts.Refresh = func(ctx context.Context) error {
		fresh, err := cli.subjectSvc.QueryTopics(ctx, subjectID)
		if err != nil {
			return err
		}
		return ctrl.Replace(subject.Items(fresh))
	}
	if ctrl, err = reorder.NewController(store, persister, notifier, opts); err != nil {
		return err
	}

	to := position - 1
	if to == from {
		fmt.Fprintf(cli.out, "%s is already at position %d\n", subject.TopicTitle(topicItem(store, from)), position)
		return nil
	}
	if !ctrl.Begin(from) || !ctrl.Move(0, float64(to-from)*cli.conf.Reorder.ItemHeight) {
		ctrl.Cancel()
		return errDragNotConfirmed
	}

	out := <-ctrl.End()
	switch out.Result {
	case reorder.ResultCommitted:
		for _, it := range ctrl.Store().Items() {
			fmt.Fprintf(cli.out, "%3d. %s\n", it.Order, subject.TopicTitle(it))
		}
		return nil
	case reorder.ResultRolledBack:
		return out.Err
	default:
		return fmt.Errorf("topic not moved: %s", out.Result)
	}
}

func topicItem(store *reorder.Store, index int) reorder.Item {
	it, _ := store.At(index)
	return it
}

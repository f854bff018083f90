// Package notify implements the notification side of topic reordering.
package notify

import (
	"net/mail"

	"github.com/trezcool/masomo-curriculum/core"
	"github.com/trezcool/masomo-curriculum/core/reorder"
)

type (
	// LogNotifier writes notifications to a core.Logger: successes at Info, failures at Warn.
	LogNotifier struct {
		logger core.Logger
	}

	// MailNotifier emails every notification to a fixed list of recipients.
	MailNotifier struct {
		mailSvc    core.EmailService
		recipients []mail.Address
	}

	// Multi fans every notification out to each of its notifiers, in order.
	Multi []reorder.Notifier
)

var (
	_ reorder.Notifier = (*LogNotifier)(nil)
	_ reorder.Notifier = (*MailNotifier)(nil)
	_ reorder.Notifier = Multi(nil)
)

func NewLogNotifier(logger core.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifySuccess(title, message string) {
	n.logger.Info(title + ": " + message)
}

func (n *LogNotifier) NotifyFailure(title, message string) {
	n.logger.Warn(title + ": " + message)
}

func NewMailNotifier(mailSvc core.EmailService, recipients ...string) *MailNotifier {
	return &MailNotifier{mailSvc: mailSvc, recipients: core.ParseAddresses(recipients...)}
}

func (n *MailNotifier) NotifySuccess(title, message string) { n.send(title, message) }

func (n *MailNotifier) NotifyFailure(title, message string) { n.send(title, message) }

func (n *MailNotifier) send(title, message string) {
	if len(n.recipients) == 0 {
		return
	}
	n.mailSvc.SendMessages(&core.EmailMessage{
		To:          n.recipients,
		Subject:     title,
		TextContent: message,
	})
}

func (m Multi) NotifySuccess(title, message string) {
	for _, n := range m {
		n.NotifySuccess(title, message)
	}
}

func (m Multi) NotifyFailure(title, message string) {
	for _, n := range m {
		n.NotifyFailure(title, message)
	}
}

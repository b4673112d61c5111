package bungee

import (
	"encoding/json"

	natsutil "github.com/kthomas/go-natsutil"
)

const natsViewCreatedSubject = "bungee.view.created"
const natsViewProcessedSubject = "bungee.view.processed"
const natsViewsMergedSubject = "bungee.views.merged"

// Notifier broadcasts view lifecycle events
type Notifier interface {
	Notify(subject string, payload []byte) error
}

// NatsNotifier publishes view lifecycle events to NATS jetstream
type NatsNotifier struct{}

// Notify publishes the payload on the given subject
func (n *NatsNotifier) Notify(subject string, payload []byte) error {
	_, err := natsutil.NatsJetstreamPublish(subject, payload)
	return err
}

// dispatchNotification broadcasts an event; failures are logged and never fail the operation
func (o *Orchestrator) dispatchNotification(subject string, params map[string]interface{}) {
	if o.notifier == nil {
		return
	}

	payload, err := json.Marshal(params)
	if err != nil {
		o.log.Warningf("failed to marshal %s notification; %s", subject, err.Error())
		return
	}

	if err := o.notifier.Notify(subject, payload); err != nil {
		o.log.Warningf("failed to dispatch %s notification; %s", subject, err.Error())
	}
}

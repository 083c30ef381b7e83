package notify

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"

	"factoryqc/internal/errs"
	"factoryqc/internal/ports"
)

// Publisher is the subset of *nats.Conn used for alert fan-out.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSNotifier publishes alert notifications as JSON on a subject.
type NATSNotifier struct {
	pub     Publisher
	subject string
}

var _ ports.Notifier = (*NATSNotifier)(nil)

func NewNATSNotifier(pub Publisher, subject string) *NATSNotifier {
	return &NATSNotifier{pub: pub, subject: strings.TrimSpace(subject)}
}

// ConnectNATS dials url with bounded reconnects and a client name.
func ConnectNATS(url string, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, errs.Wrap(err, "connect to nats")
	}
	return nc, nil
}

func (n *NATSNotifier) Notify(ctx context.Context, note ports.AlertNotification) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	if n.pub == nil {
		return errors.New("nats publisher is required")
	}

	payload, err := json.Marshal(note)
	if err != nil {
		return errs.Wrap(err, "marshal alert notification")
	}

	subject := n.subject + "." + note.Event
	if err := n.pub.Publish(subject, payload); err != nil {
		return errs.Wrapf(err, "publish %s", subject)
	}
	return nil
}

package mailer

import (
	"context"
	"fmt"
	"time"

	"vomprater-server/internal/lifecycle"
	"vomprater-server/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	emailsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vomprater_emails_sent_total",
		Help: "Number of author notification emails sent, by kind.",
	}, []string{"kind"})
	emailsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vomprater_emails_failed_total",
		Help: "Number of author notification emails that failed to send, by kind.",
	}, []string{"kind"})
)

// Dispatcher turns state-transition notification intents into author emails.
// It runs after the transition is persisted; delivery failures are logged and
// counted but never propagated to the caller.
type Dispatcher struct {
	mailer    Mailer
	publicURL string
	logger    *zap.Logger
}

// NewDispatcher creates a dispatcher. publicURL is the site origin used to
// build edit and read links, without a trailing slash.
func NewDispatcher(mailer Mailer, publicURL string, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		mailer:    mailer,
		publicURL: publicURL,
		logger:    logger.Named("MailDispatcher"),
	}
}

// Dispatch sends one email per intent. password carries the plaintext access
// secret and is only consulted for the created notification.
func (d *Dispatcher) Dispatch(ctx context.Context, story *models.Story, intents []lifecycle.Intent, password string) {
	for _, intent := range intents {
		if err := d.send(ctx, story, intent, password); err != nil {
			emailsFailed.WithLabelValues(string(intent.Kind)).Inc()
			d.logger.Error("Failed to send notification email",
				zap.String("kind", string(intent.Kind)),
				zap.String("story_id", story.ID.String()),
				zap.Error(err))
			continue
		}
		emailsSent.WithLabelValues(string(intent.Kind)).Inc()
	}
}

func (d *Dispatcher) send(ctx context.Context, story *models.Story, intent lifecycle.Intent, password string) error {
	if story.Author.Email == "" {
		return fmt.Errorf("story %s has no author email", story.ID)
	}

	german := story.Locale == "de"
	data := templateData{
		Title:    story.Title,
		Password: password,
		Reason:   intent.Reason,
	}

	var tmpl emailTemplate
	switch intent.Kind {
	case lifecycle.NotifyCreated:
		data.Link = d.editLink(story)
		tmpl = pick(german, createdDe, createdEn)
	case lifecycle.NotifySubmitted:
		tmpl = pick(german, submittedDe, submittedEn)
	case lifecycle.NotifyRejected:
		data.Link = d.editLink(story)
		tmpl = pick(german, rejectedDe, rejectedEn)
	case lifecycle.NotifyAccepted:
		data.Link = fmt.Sprintf("%s/stories/%s", d.publicURL, story.Slug)
		tmpl = pick(german, acceptedDe, acceptedEn)
	default:
		return fmt.Errorf("unknown notification kind %q", intent.Kind)
	}

	msg, err := tmpl.render(data)
	if err != nil {
		return err
	}
	msg.ToEmail = story.Author.Email
	msg.ToName = story.Author.Name

	sendCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	return d.mailer.SendEmail(sendCtx, msg)
}

// editLink uses the opaque editor key, never the story id.
func (d *Dispatcher) editLink(story *models.Story) string {
	return fmt.Sprintf("%s/draft-stories/%s", d.publicURL, story.EditorKey)
}

func pick(german bool, de, en emailTemplate) emailTemplate {
	if german {
		return de
	}
	return en
}

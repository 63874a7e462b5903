package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"visitor-management/models"
	"visitor-management/pkg/notify"
	"visitor-management/repository"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []notify.Message
}

func (m *recordingMailer) Send(_ context.Context, msg notify.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) messages() []notify.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notify.Message(nil), m.sent...)
}

type userSet map[primitive.ObjectID]*models.User

func (u userSet) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	if x, ok := u[id]; ok {
		return x, nil
	}
	return nil, repository.ErrNotFound
}

func TestMailNotifier_PassCheckedIn(t *testing.T) {
	hostID, visitorID := primitive.NewObjectID(), primitive.NewObjectID()
	mailer := &recordingMailer{}
	n := NewMailNotifier(mailer,
		userSet{hostID: {ID: hostID, Name: "Grace", Email: "grace@example.com"}},
		visitorSet{visitorID: {ID: visitorID, Name: "Ada", Company: "Analytical Engines"}},
	)

	pass := &models.Pass{HostID: &hostID, VisitorID: visitorID}
	n.PassCheckedIn(context.Background(), pass, &models.CheckLog{Gate: "Lobby", CreatedAt: time.Now()})

	require.Eventually(t, func() bool { return len(mailer.messages()) == 1 }, time.Second, 5*time.Millisecond)
	msg := mailer.messages()[0]
	assert.Equal(t, "grace@example.com", msg.ToEmail)
	assert.Equal(t, "Ada has arrived", msg.Subject)
	assert.Contains(t, msg.Text, "Lobby")
}

func TestMailNotifier_SkipsPassWithoutHost(t *testing.T) {
	mailer := &recordingMailer{}
	n := NewMailNotifier(mailer, userSet{}, visitorSet{})

	n.PassCheckedIn(context.Background(), &models.Pass{VisitorID: primitive.NewObjectID()}, &models.CheckLog{})

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, mailer.messages())
}

func TestMailNotifier_AppointmentApproved(t *testing.T) {
	visitorID := primitive.NewObjectID()
	mailer := &recordingMailer{}
	n := NewMailNotifier(mailer, userSet{}, visitorSet{visitorID: {ID: visitorID, Name: "Ada", Email: "ada@example.com"}})

	n.AppointmentApproved(context.Background(), &models.Appointment{VisitorID: visitorID, Purpose: "Design review", DateTime: time.Now()})

	require.Eventually(t, func() bool { return len(mailer.messages()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "ada@example.com", mailer.messages()[0].ToEmail)
	assert.Contains(t, mailer.messages()[0].Text, "Design review")
}

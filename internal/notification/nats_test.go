package notification

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	natstest "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindoraRwanda/mindorabeta/internal/domain"
	"github.com/mindoraRwanda/mindorabeta/internal/realtime"
)

func runNATS(t *testing.T) *server.Server {
	t.Helper()
	opts := natstest.DefaultTestOptions
	opts.Port = -1
	s := natstest.RunServer(&opts)
	t.Cleanup(s.Shutdown)
	return s
}

func connectNATS(t *testing.T, url string) *NATSPublisher {
	t.Helper()
	p, err := ConnectNATS(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

type emitted struct {
	userID string
	event  string
	n      *domain.Notification
}

type chanPusher chan emitted

func (c chanPusher) Emit(_ context.Context, userID, event string, data interface{}) (int, error) {
	n, _ := data.(*domain.Notification)
	c <- emitted{userID: userID, event: event, n: n}
	return 1, nil
}

func TestNATSPublisher_PublishesOnUserSubject(t *testing.T) {
	s := runNATS(t)
	pub := connectNATS(t, s.ClientURL())

	nc, err := nats.Connect(s.ClientURL())
	require.NoError(t, err)
	defer nc.Close()
	sub, err := nc.SubscribeSync(Subject("therapist-1"))
	require.NoError(t, err)
	require.NoError(t, nc.Flush())

	n := &domain.Notification{ID: "n-1", UserID: "therapist-1", Title: "Patient Risk Alert", Type: domain.NotificationSystem}
	require.NoError(t, pub.Publish(context.Background(), n))

	msg, err := sub.NextMsg(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, pub.origin, msg.Header.Get(OriginHeader))
	var got domain.Notification
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, "n-1", got.ID)
	assert.Equal(t, "Patient Risk Alert", got.Title)
}

func TestNATSPublisher_RelaysForeignNotifications(t *testing.T) {
	s := runNATS(t)
	serverPub := connectNATS(t, s.ClientURL())
	monitorPub := connectNATS(t, s.ClientURL())

	pushed := make(chanPusher, 4)
	sub, err := serverPub.Relay(pushed)
	require.NoError(t, err)
	defer func() { _ = sub.Unsubscribe() }()
	require.NoError(t, serverPub.conn.Flush())

	ctx := context.Background()
	require.NoError(t, serverPub.Publish(ctx, &domain.Notification{ID: "own", UserID: "therapist-1"}))
	require.NoError(t, serverPub.conn.Flush())
	require.NoError(t, monitorPub.Publish(ctx, &domain.Notification{ID: "alert", UserID: "therapist-1", Title: "Patient Risk Alert"}))

	select {
	case got := <-pushed:
		assert.Equal(t, "therapist-1", got.userID)
		assert.Equal(t, realtime.EventNewNotification, got.event)
		require.NotNil(t, got.n)
		assert.Equal(t, "alert", got.n.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("notification from another process was not relayed")
	}

	select {
	case got := <-pushed:
		t.Fatalf("unexpected relay of %+v", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestNotify_PublishesOverNATS(t *testing.T) {
	s := runNATS(t)
	monitorPub := connectNATS(t, s.ClientURL())
	serverPub := connectNATS(t, s.ClientURL())

	pushed := make(chanPusher, 1)
	sub, err := serverPub.Relay(pushed)
	require.NoError(t, err)
	defer func() { _ = sub.Unsubscribe() }()
	require.NoError(t, serverPub.conn.Flush())

	svc := NewService(&fakeRepo{}, nil, monitorPub)
	n, err := svc.Notify(context.Background(), "therapist-9", "Patient Risk Alert", "body", domain.NotificationSystem, nil)
	require.NoError(t, err)

	select {
	case got := <-pushed:
		assert.Equal(t, "therapist-9", got.userID)
		assert.Equal(t, n.ID, got.n.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("stored notification never reached the relay")
	}
}

package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/suite"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/igorvan/rfid-tap/pkg/config"
)

type EventsSuite struct {
	suite.Suite
}

func TestEventsSuite(t *testing.T) {
	suite.Run(t, &EventsSuite{})
}

func (s *EventsSuite) TestNewTapEvent() {
	now := time.Now()
	first := NewTapEvent("041AFF", 2, "alice", false, now)
	second := NewTapEvent("041AFF", 3, "alice", false, now)

	s.NotEmpty(first.ID)
	s.NotEqual(first.ID, second.ID)
	s.Equal("041AFF", first.UID)
	s.Equal(int64(2), first.TapCount)
}

func (s *EventsSuite) TestPubSub() {
	ctx := context.Background()
	srv := pstest.NewServer()
	defer srv.Close()

	conn, err := grpc.Dial(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	s.Require().NoError(err)
	defer conn.Close()

	client, err := pubsub.NewClient(ctx, "test-project", option.WithGRPCConn(conn))
	s.Require().NoError(err)
	defer client.Close()

	_, err = client.CreateTopic(ctx, "rfid-taps")
	s.Require().NoError(err)

	publisher := NewPubSub(client, "rfid-taps")
	event := NewTapEvent("041AFF", 1, "", true, time.Now().UTC().Truncate(time.Second))
	s.NoError(publisher.Publish(ctx, event))
	s.NoError(publisher.Close())

	msgs := srv.Messages()
	s.Require().Len(msgs, 1)
	s.Equal("041AFF", msgs[0].Attributes["uid"])

	var received TapEvent
	s.NoError(json.Unmarshal(msgs[0].Data, &received))
	s.Equal(event.ID, received.ID)
	s.Equal(event.UID, received.UID)
	s.Equal(event.TapCount, received.TapCount)
	s.True(received.Inserted)
	s.True(event.ScannedAt.Equal(received.ScannedAt))
}

func (s *EventsSuite) TestPubSubMissingTopic() {
	ctx := context.Background()
	srv := pstest.NewServer()
	defer srv.Close()

	conn, err := grpc.Dial(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	s.Require().NoError(err)
	defer conn.Close()

	client, err := pubsub.NewClient(ctx, "test-project", option.WithGRPCConn(conn))
	s.Require().NoError(err)
	defer client.Close()

	publisher := NewPubSub(client, "missing")
	s.Error(publisher.Publish(ctx, NewTapEvent("AA", 1, "", true, time.Now())))
	s.NoError(publisher.Close())
}

func (s *EventsSuite) TestOpen() {
	testCases := []struct {
		title       string
		cfg         config.Events
		expectNop   bool
		expectedErr bool
	}{
		{title: "Default driver", cfg: config.Events{}, expectNop: true},
		{title: "None", cfg: config.Events{Driver: "none"}, expectNop: true},
		{title: "Unknown driver", cfg: config.Events{Driver: "kafka"}, expectedErr: true},
		{
			title:       "NATS unreachable",
			cfg:         config.Events{Driver: "nats", NatsURL: "nats://127.0.0.1:1", Subject: "rfid.taps"},
			expectedErr: true,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.title, func() {
			res, err := Open(context.Background(), tc.cfg)
			if tc.expectedErr {
				s.Error(err)
				s.Nil(res)
				return
			}
			s.NoError(err)
			if tc.expectNop {
				s.Equal(Nop{}, res)
				s.NoError(res.Publish(context.Background(), NewTapEvent("AA", 1, "", true, time.Now())))
				s.NoError(res.Close())
			}
		})
	}
}

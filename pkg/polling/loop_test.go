package polling

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/igorvan/rfid-tap/pkg/database"
	"github.com/igorvan/rfid-tap/pkg/processing"
)

// read - one scripted poll; nil uid means no card, unreadable means the serial read fails
type read struct {
	uid        []byte
	unreadable bool
}

type deviceMock struct {
	mtx     sync.Mutex
	reads   []read
	current read
	uid     []byte
	finite  bool
	closed  bool
}

func (d *deviceMock) CardPresent() bool {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	if len(d.reads) == 0 {
		return false
	}
	d.current, d.reads = d.reads[0], d.reads[1:]
	return d.current.uid != nil
}

func (d *deviceMock) ReadSerial() bool {
	if d.current.unreadable {
		return false
	}
	d.uid = d.current.uid
	return true
}

func (d *deviceMock) UID() []byte  { return d.uid }
func (d *deviceMock) Close() error { d.closed = true; return nil }

func (d *deviceMock) Exhausted() bool {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	return d.finite && len(d.reads) == 0
}

type storageMock struct {
	mtx       sync.Mutex
	counts    map[string]int64
	usernames map[string]string
	failNext  bool
}

func (sm *storageMock) Tap(_ context.Context, uid string) (*database.Tap, error) {
	sm.mtx.Lock()
	defer sm.mtx.Unlock()
	if sm.failNext {
		sm.failNext = false
		return nil, fmt.Errorf("SQL exception: lock wait timeout exceeded")
	}
	count, ok := sm.counts[uid]
	sm.counts[uid] = count + 1
	return &database.Tap{UID: uid, TapCount: count + 1, Username: sm.usernames[uid], Inserted: !ok}, nil
}

type loggerMock struct {
	mtx    sync.Mutex
	errors []string
	infos  []string
}

func (l *loggerMock) Error(msg string, _ ...any) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	l.errors = append(l.errors, msg)
}

func (l *loggerMock) Info(msg string, _ ...any) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	l.infos = append(l.infos, msg)
}

type LoopSuite struct {
	suite.Suite
	storage *storageMock
	prcssr  *processing.Processor
}

func TestLoopSuite(t *testing.T) {
	suite.Run(t, &LoopSuite{})
}

func (s *LoopSuite) SetupTest() {
	s.storage = &storageMock{
		counts:    map[string]int64{},
		usernames: map[string]string{"041AFF": "alice"},
	}
	var err error
	s.prcssr, err = processing.New(s.storage, nil, nil)
	s.Require().NoError(err)
}

func (s *LoopSuite) TestNew() {
	res, err := New(nil, s.prcssr, nil, nil, 0, 0)
	s.Nil(res)
	s.Error(err)

	res, err = New(&deviceMock{}, nil, nil, nil, 0, 0)
	s.Nil(res)
	s.Error(err)

	res, err = New(&deviceMock{}, s.prcssr, nil, nil, 0, 0)
	s.NoError(err)
	s.NotNil(res)
}

func (s *LoopSuite) TestStep() {
	card := []byte{0x04, 0x1A, 0xFF}
	device := &deviceMock{reads: []read{
		{},
		{uid: card, unreadable: true},
		{uid: card},
		{uid: card},
		{uid: card},
	}}
	out := &bytes.Buffer{}
	loop, err := New(device, s.prcssr, out, nil, 0, 0)
	s.Require().NoError(err)

	testCases := []struct {
		title          string
		expectedStatus Status
		expectedCount  int64
		expectedOutput string
	}{
		{title: "No card", expectedStatus: Idle},
		{title: "Unreadable serial", expectedStatus: Idle},
		{title: "First scan", expectedStatus: Inserted, expectedCount: 1,
			expectedOutput: "UID: 041AFF\nUID inserted into database.\n"},
		{title: "Second scan", expectedStatus: Updated, expectedCount: 2,
			expectedOutput: "UID: 041AFF\nGoodbye alice\n"},
		{title: "Third scan", expectedStatus: Updated, expectedCount: 3,
			expectedOutput: "UID: 041AFF\nHello alice\n"},
	}

	for _, tc := range testCases {
		s.Run(tc.title, func() {
			out.Reset()
			res := loop.Step(context.TODO())
			s.Equal(tc.expectedStatus, res.Status)
			s.NoError(res.Err)
			s.Equal(tc.expectedOutput, out.String())
			if tc.expectedCount > 0 {
				s.Equal("041AFF", res.UID)
				s.Equal(tc.expectedCount, res.Outcome.TapCount)
			} else {
				s.Nil(res.Outcome)
			}
		})
	}
}

func (s *LoopSuite) TestStepFailure() {
	device := &deviceMock{reads: []read{{uid: []byte{0xAB}}, {uid: []byte{0xAB}}}}
	out := &bytes.Buffer{}
	loop, err := New(device, s.prcssr, out, nil, 0, 0)
	s.Require().NoError(err)

	s.storage.failNext = true
	res := loop.Step(context.TODO())
	s.Equal(Failed, res.Status)
	s.Equal("AB", res.UID)
	s.Error(res.Err)
	s.Equal("UID: AB\n", out.String())
	s.Zero(s.storage.counts["AB"])

	res = loop.Step(context.TODO())
	s.Equal(Inserted, res.Status)
	s.Equal(int64(1), s.storage.counts["AB"])
}

func (s *LoopSuite) TestRunUntilExhausted() {
	card := []byte{0x04, 0x1A, 0xFF}
	device := &deviceMock{finite: true, reads: []read{{uid: card}, {}, {uid: card}, {uid: []byte{0x01}}, {uid: card}}}
	log := &loggerMock{}
	out := &bytes.Buffer{}
	loop, err := New(device, s.prcssr, out, log, time.Millisecond, time.Millisecond)
	s.Require().NoError(err)

	s.storage.failNext = true
	s.NoError(loop.Run(context.Background()))

	// the first scan was dropped, the loop kept going
	s.Equal(int64(2), s.storage.counts["041AFF"])
	s.Equal(int64(1), s.storage.counts["01"])
	s.Equal([]string{"tap dropped"}, log.errors)
	s.Len(log.infos, 3)
	s.Contains(out.String(), "Goodbye alice")
}

func (s *LoopSuite) TestRunCancelled() {
	device := &deviceMock{}
	loop, err := New(device, s.prcssr, nil, nil, 5*time.Millisecond, time.Second)
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		s.NoError(err)
	case <-time.After(time.Second):
		s.Fail("loop did not stop after cancellation")
	}
}

func (s *LoopSuite) TestStatusString() {
	s.Equal("idle", Idle.String())
	s.Equal("inserted", Inserted.String())
	s.Equal("updated", Updated.String())
	s.Equal("failed", Failed.String())
	s.Equal("Status(9)", Status(9).String())
}

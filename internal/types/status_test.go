package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusPublisherSnapshotAndUpdate(t *testing.T) {
	p := NewStatusPublisher()
	assert.Equal(t, StateStarting, p.Snapshot().State)

	p.Update(func(s *AstStatus) {
		s.State = StateParsing
		s.FilesTotal = 3
	})

	snap := p.Snapshot()
	assert.Equal(t, StateParsing, snap.State)
	assert.Equal(t, 3, snap.FilesTotal)
}

func TestStatusPublisherWakePulsesWaiters(t *testing.T) {
	p := NewStatusPublisher()
	wake := p.WaitForWake()

	done := make(chan struct{})
	go func() {
		p.Update(func(s *AstStatus) { s.State = StateIdle })
		close(done)
	}()

	select {
	case <-wake:
	case <-time.After(time.Second):
		t.Fatal("wake channel never closed")
	}
	<-done
	require.Equal(t, StateIdle, p.Snapshot().State)
}

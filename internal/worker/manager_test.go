package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeWorker struct {
	name     string
	startErr error
	started  int
	stopped  int
	order    *[]string
}

func (f *fakeWorker) Start(ctx context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started++
	*f.order = append(*f.order, "start:"+f.name)
	return nil
}

func (f *fakeWorker) Stop() {
	f.stopped++
	*f.order = append(*f.order, "stop:"+f.name)
}

func (f *fakeWorker) Name() string { return f.name }

func TestManagerStartStopOrder(t *testing.T) {
	var order []string
	a := &fakeWorker{name: "a", order: &order}
	b := &fakeWorker{name: "b", order: &order}

	m := NewManager(zap.NewNop())
	m.Register(a)
	m.Register(b)
	require.Equal(t, 2, m.Count())

	require.NoError(t, m.StartAll(context.Background()))
	m.StopAll()

	assert.Equal(t, []string{"start:a", "start:b", "stop:b", "stop:a"}, order)
}

func TestManagerStartFailureRollsBack(t *testing.T) {
	var order []string
	a := &fakeWorker{name: "a", order: &order}
	b := &fakeWorker{name: "b", order: &order, startErr: errors.New("boom")}

	m := NewManager(zap.NewNop())
	m.Register(a)
	m.Register(b)

	err := m.StartAll(context.Background())
	require.Error(t, err)

	assert.Equal(t, 1, a.started)
	assert.Equal(t, 1, a.stopped, "already-started workers are stopped on failure")
	assert.Equal(t, 0, b.started)
}

package workers

import (
	"context"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/MKhiriev/go-sync-engine/internal/mock"
)

func TestWorkers_RunStartsAllInOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	w1 := mock.NewMockWorker(ctrl)
	w2 := mock.NewMockWorker(ctrl)
	ctx := context.Background()

	gomock.InOrder(
		w1.EXPECT().Run(ctx),
		w2.EXPECT().Run(ctx),
	)

	NewWorkers(w1, w2).Run(ctx)
}

func TestWorkers_StopInReverseOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	w1 := mock.NewMockWorker(ctrl)
	w2 := mock.NewMockWorker(ctrl)
	w3 := mock.NewMockWorker(ctrl)

	gomock.InOrder(
		w3.EXPECT().Stop(),
		w2.EXPECT().Stop(),
		w1.EXPECT().Stop(),
	)

	NewWorkers(w1, w2, w3).Stop()
}

func TestWorkers_Empty(t *testing.T) {
	ws := NewWorkers()

	// no workers, nothing to do
	ws.Run(context.Background())
	ws.Stop()

	var zero Workers
	zero.Run(context.Background())
	zero.Stop()
}

package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prathap-k00/expense-tracker/internal/amqp"
	"github.com/prathap-k00/expense-tracker/internal/core"
)

type fakeExporter struct {
	err      error
	calls    int
	deadline bool
}

func (f *fakeExporter) ProcessExport(ctx context.Context, userID int64, p core.Period) (string, error) {
	f.calls++
	_, f.deadline = ctx.Deadline()
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("mem:%d:%s", userID, p.Key()), nil
}

func TestExportWorker_HandleExportMessage(t *testing.T) {
	msg := amqp.NewReportExportMessage(7, core.NewPeriod(2024, 3))

	tests := []struct {
		name    string
		err     error
		wantErr bool
		want    Stats
	}{
		{name: "success", want: Stats{Processed: 1}},
		{name: "unknown user is skipped", err: fmt.Errorf("load user 7: %w", core.ErrNotFound), want: Stats{Skipped: 1}},
		{name: "writer failure is retried", err: errors.New("sheets quota exceeded"), wantErr: true, want: Stats{Failed: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp := &fakeExporter{err: tt.err}
			w := NewExportWorker(exp, time.Second)

			err := w.HandleExportMessage(context.Background(), msg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if exp.calls != 1 || !exp.deadline {
				t.Fatalf("calls=%d deadline=%v", exp.calls, exp.deadline)
			}
			if got := w.Stats(); got != tt.want {
				t.Fatalf("Stats = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNewExportWorkerDefaultsTimeout(t *testing.T) {
	w := NewExportWorker(&fakeExporter{}, 0)
	if w.timeout != DefaultExportTimeout {
		t.Fatalf("timeout = %v", w.timeout)
	}
}

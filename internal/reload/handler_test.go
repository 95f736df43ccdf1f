package reload

import (
	"context"
	"errors"
	"testing"

	"github.com/flemzord/chatwork-autoread/internal/config"
)

func TestHandler_Reload(t *testing.T) {
	t.Parallel()

	want := &config.Config{}
	want.Chatwork.ExcludeRoomIDs = []int64{7}

	var applied *config.Config
	h := NewHandler(
		func() (*config.Config, error) { return want, nil },
		func(cfg *config.Config) error { applied = cfg; return nil },
		nil,
	)

	if err := h.Reload(context.Background(), "test"); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if applied != want {
		t.Errorf("applied = %v, want loaded config", applied)
	}
}

func TestHandler_ReloadErrors(t *testing.T) {
	t.Parallel()

	loadErr := errors.New("bad yaml")
	applyErr := errors.New("rejected")
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name      string
		ctx       context.Context
		loadErr   error
		applyErr  error
		wantErr   error
		wantApply bool
	}{
		{"load fails", context.Background(), loadErr, nil, loadErr, false},
		{"apply fails", context.Background(), nil, applyErr, applyErr, true},
		{"context cancelled", cancelled, nil, nil, context.Canceled, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			called := false
			h := NewHandler(
				func() (*config.Config, error) {
					if tt.loadErr != nil {
						return nil, tt.loadErr
					}
					return &config.Config{}, nil
				},
				func(*config.Config) error { called = true; return tt.applyErr },
				nil,
			)

			err := h.Reload(tt.ctx, "test")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if called != tt.wantApply {
				t.Errorf("apply called = %v, want %v", called, tt.wantApply)
			}
		})
	}
}

package app

import (
	"errors"
	"testing"
	"time"
)

func TestNewOperation(t *testing.T) {
	now := time.Date(2024, 3, 15, 9, 30, 5, 0, time.FixedZone("CET", 3600))

	tests := []struct {
		name       string
		operation  string
		parameters string
	}{
		{name: "with parameters", operation: "SubmitImport", parameters: "/home/user/night.oal"},
		{name: "empty parameters", operation: "RunQueue", parameters: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := NewOperation(tt.operation, tt.parameters, now)

			if op.Name != tt.operation {
				t.Errorf("Name = %q, want %q", op.Name, tt.operation)
			}
			if op.Parameters != tt.parameters {
				t.Errorf("Parameters = %q, want %q", op.Parameters, tt.parameters)
			}
			if op.Status != "success" {
				t.Errorf("Status = %q, want %q", op.Status, "success")
			}
			if op.ID != "20240315T083005Z" {
				t.Errorf("ID = %q, want UTC timestamp 20240315T083005Z", op.ID)
			}
		})
	}
}

func TestOperation_Track(t *testing.T) {
	op := NewOperation("DeleteImport", "rec-1", time.Now())

	if err := op.Track(nil); err != nil {
		t.Fatalf("Track(nil) = %v, want nil", err)
	}
	if op.Failed() {
		t.Fatal("Failed() = true after a successful step")
	}

	boom := errors.New("boom")
	if err := op.Track(boom); !errors.Is(err, boom) {
		t.Errorf("Track() = %v, want %v", err, boom)
	}
	if !op.Failed() {
		t.Error("Failed() = false after a failed step")
	}
	op.Track(nil)
	if !op.Failed() {
		t.Error("a later success cleared the failure")
	}
}
